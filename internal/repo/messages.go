package repo

import (
	"context"
	"time"

	"github.com/danielfabbri/logzone-api/internal/model"
)

// MessageFilter narrows message queries. Zero values mean "no
// constraint". Phone matches either side of the conversation
// (fromPhone OR toPhone); FromPhone/ToPhone match one side exactly.
type MessageFilter struct {
	ProjectID *int64
	Status    model.Status
	Type      model.MessageType
	Priority  model.Priority
	FromPhone string
	ToPhone   string
	Phone     string
	StartDate *time.Time
	EndDate   *time.Time
}

// MessagePatch is a partial update; nil fields are left untouched.
// Metadata and TemplateVariables replace the stored value wholesale,
// so callers merge before patching.
type MessagePatch struct {
	Content           *string
	Status            *model.Status
	Type              *model.MessageType
	Priority          *model.Priority
	ExternalID        *string
	Provider          *string
	Cost              *float64
	Currency          *string
	ScheduledAt       *time.Time
	DeliveredAt       *time.Time
	ReadAt            *time.Time
	Metadata          map[string]any
	Tags              []string
	Template          *string
	TemplateVariables map[string]any
}

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) (*model.Message, error)
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	// Find returns messages matching the filter ordered by creation
	// time, ascending or descending.
	Find(ctx context.Context, f MessageFilter, ascending bool, limit, skip int) ([]model.Message, error)
	Count(ctx context.Context, f MessageFilter) (int64, error)
	UpdateByID(ctx context.Context, id int64, p MessagePatch) (*model.Message, error)
	DeleteByID(ctx context.Context, id int64) error
	Stats(ctx context.Context, f MessageFilter) (*model.MessageStats, error)
	// ClaimDue picks pending messages whose scheduled time has passed
	// and stamps their attempt, so a concurrent or later tick skips
	// them.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.Message, error)
}
