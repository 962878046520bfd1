package adapter

import (
	"context"
	"fmt"
	"time"

	"partsmarket/internal/pkg/redis"
)

const (
	// dedup:{consumer}:{event_id}
	keyDedup = "dedup:%s:%s"
	ttlDedup = 48 * time.Hour
)

// EventDedupRedisAdapter 是 port.EventDeduplicator 接口的 Redis 实现。
type EventDedupRedisAdapter struct {
	redisClient *redis.Client
}

func NewEventDedupRedisAdapter(redisClient *redis.Client) *EventDedupRedisAdapter {
	return &EventDedupRedisAdapter{redisClient: redisClient}
}

// MarkProcessed 用 SETNX 原子占位
func (a *EventDedupRedisAdapter) MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	ok, err := a.redisClient.GetClient().SetNX(ctx, fmt.Sprintf(keyDedup, consumer, eventID), "1", ttlDedup).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return ok, nil
}

// Forget 在处理失败时释放占位，让重投的消息可以再次处理
func (a *EventDedupRedisAdapter) Forget(ctx context.Context, consumer, eventID string) error {
	return a.redisClient.GetClient().Del(ctx, fmt.Sprintf(keyDedup, consumer, eventID)).Err()
}
