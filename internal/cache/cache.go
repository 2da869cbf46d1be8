package cache

import (
	"context"
	"time"
)

// DispatchCache records the gateway outcome of a dispatched message so
// recent delivery results can be inspected without hitting Postgres.
type DispatchCache interface {
	StoreDispatch(ctx context.Context, messageID int64, externalID, status string, sentAt time.Time) error
}
