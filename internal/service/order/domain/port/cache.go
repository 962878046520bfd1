package port

import (
	"context"

	"partsmarket/internal/service/order/domain"
)

// OrderStatusCache 缓存订单状态，读多写少的状态查询走缓存
type OrderStatusCache interface {
	GetStatus(ctx context.Context, orderID string) (domain.State, bool, error)
	SetStatus(ctx context.Context, orderID string, state domain.State) error
	Invalidate(ctx context.Context, orderID string) error
}

// EventDeduplicator 记录已处理的外部事件
type EventDeduplicator interface {
	// MarkProcessed 首次见到 eventID 时返回 true
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	// Forget 撤销占位，处理失败的事件可以被再次处理
	Forget(ctx context.Context, consumer, eventID string) error
}
