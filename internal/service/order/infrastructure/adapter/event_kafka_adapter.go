package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"partsmarket/internal/pkg/mq"
	"partsmarket/internal/service/order/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const eventVersion = 1

// Envelope 是所有对外领域事件的统一外壳
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // 订单 ID
	Payload       json.RawMessage `json:"payload"`
}

// EventKafkaAdapter 实现了 port.EventPublisher 接口。
type EventKafkaAdapter struct {
	writer   mq.MessageWriter
	producer string
}

// NewEventKafkaAdapter 创建一个新的领域事件生产者适配器。
func NewEventKafkaAdapter(writer mq.MessageWriter, producer string) *EventKafkaAdapter {
	return &EventKafkaAdapter{writer: writer, producer: producer}
}

// Publish 以 key 作为分区键，同一订单的事件落在同一分区
func (a *EventKafkaAdapter) Publish(ctx context.Context, key string, eventType domain.EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     string(eventType),
		EventVersion:  eventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      a.producer,
		CorrelationID: key,
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}

	envBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, a.writer, []byte(key), envBytes)
}
