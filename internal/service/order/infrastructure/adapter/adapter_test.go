package adapter

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"partsmarket/internal/pkg/redis"
	"partsmarket/internal/service/order/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStatusCache_SetGetInvalidate(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewStatusCacheRedisAdapter(client)
	ctx := context.Background()

	_, ok, err := cache.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetStatus(ctx, "order-1", domain.StateConfirmed))
	state, ok, err := cache.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.StateConfirmed, state)
	assert.Equal(t, ttlStatusCache, mr.TTL("order_status:order-1"))

	mr.FastForward(ttlStatusCache + time.Second)
	_, ok, err = cache.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetStatus(ctx, "order-1", domain.StateCancelled))
	require.NoError(t, cache.Invalidate(ctx, "order-1"))
	assert.False(t, mr.Exists("order_status:order-1"))
}

func TestStatusCache_CorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set("order_status:order-1", "not-json"))

	_, _, err := NewStatusCacheRedisAdapter(client).GetStatus(context.Background(), "order-1")
	assert.Error(t, err)
}

func TestEventDedup_MarkAndForget(t *testing.T) {
	mr, client := newTestRedis(t)
	dedup := NewEventDedupRedisAdapter(client)
	ctx := context.Background()

	first, err := dedup.MarkProcessed(ctx, "payments", "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := dedup.MarkProcessed(ctx, "payments", "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := dedup.MarkProcessed(ctx, "audit", "evt-1")
	require.NoError(t, err)
	assert.True(t, other)
	assert.Equal(t, ttlDedup, mr.TTL("dedup:payments:evt-1"))

	require.NoError(t, dedup.Forget(ctx, "payments", "evt-1"))
	retry, err := dedup.MarkProcessed(ctx, "payments", "evt-1")
	require.NoError(t, err)
	assert.True(t, retry)
}

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestEventKafkaAdapter_PublishesEnvelope(t *testing.T) {
	w := &captureWriter{}
	pub := NewEventKafkaAdapter(w, "marketplace-service")

	err := pub.Publish(context.Background(), "order-1", domain.EventFeeAccrued, &domain.FeeAccrued{
		OrderID:    "order-1",
		ResellerID: "reseller-1",
		Fee:        decimal.RequireFromString("7.50"),
		NetAmount:  decimal.RequireFromString("142.50"),
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-1", string(w.msgs[0].Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "fee.accrued", env.EventType)
	assert.Equal(t, eventVersion, env.EventVersion)
	assert.Equal(t, "marketplace-service", env.Producer)
	assert.Equal(t, "order-1", env.CorrelationID)

	var payload domain.FeeAccrued
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.True(t, payload.Fee.Equal(decimal.RequireFromString("7.5")))
}
