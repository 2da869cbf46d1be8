package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type dispatchValue struct {
	ExternalID string    `json:"externalId"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sentAt"`
}

func (c *RedisCache) StoreDispatch(ctx context.Context, messageID int64, externalID, status string, sentAt time.Time) error {
	key := fmt.Sprintf("dispatch:%d", messageID)
	val := dispatchValue{
		ExternalID: externalID,
		Status:     status,
		SentAt:     sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}
