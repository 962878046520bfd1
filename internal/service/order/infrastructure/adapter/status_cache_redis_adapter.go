package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"partsmarket/internal/pkg/redis"
	"partsmarket/internal/service/order/domain"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	keyOrderStatus = "order_status:%s"
	ttlStatusCache = 5 * time.Minute
)

type cachedStatus struct {
	Status    domain.State `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// StatusCacheRedisAdapter 是 port.OrderStatusCache 接口的 Redis 实现。
type StatusCacheRedisAdapter struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewStatusCacheRedisAdapter(redisClient *redis.Client) *StatusCacheRedisAdapter {
	return &StatusCacheRedisAdapter{redisClient: redisClient, ttl: ttlStatusCache}
}

func (a *StatusCacheRedisAdapter) GetStatus(ctx context.Context, orderID string) (domain.State, bool, error) {
	raw, err := a.redisClient.GetClient().Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("status cache get: %w", err)
	}
	var v cachedStatus
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, fmt.Errorf("status cache decode: %w", err)
	}
	return v.Status, true, nil
}

func (a *StatusCacheRedisAdapter) SetStatus(ctx context.Context, orderID string, state domain.State) error {
	raw, err := json.Marshal(cachedStatus{Status: state, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := a.redisClient.GetClient().Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), raw, a.ttl).Err(); err != nil {
		return fmt.Errorf("status cache set: %w", err)
	}
	return nil
}

func (a *StatusCacheRedisAdapter) Invalidate(ctx context.Context, orderID string) error {
	return a.redisClient.GetClient().Del(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Err()
}
