package port

import (
	"context"

	"partsmarket/internal/service/order/domain"
)

// EventPublisher 在事务提交后发布领域事件，key 决定分区 (同一订单的事件有序)
type EventPublisher interface {
	Publish(ctx context.Context, key string, eventType domain.EventType, payload any) error
}
