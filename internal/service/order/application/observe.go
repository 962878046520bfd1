package application

import (
	"context"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/pkg/metrics"
	"partsmarket/internal/service/order/domain"
	"partsmarket/internal/service/order/domain/port"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// fail 记录 span 错误并给错误加上用例上下文
func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if errors.Is(err, domain.ErrInsufficientStock) {
		metrics.RecordStockRejection()
	}
	return errors.Wrap(err, msg)
}

// notifier 在事务提交之后发布事件、刷新状态缓存；失败只记录日志，不影响已提交的结果
type notifier struct {
	publisher port.EventPublisher
	cache     port.OrderStatusCache
}

func (n notifier) orderChanged(ctx context.Context, eventType domain.EventType, o *domain.Order) {
	metrics.RecordOrderTransition(string(o.State))
	if n.cache != nil {
		if err := n.cache.SetStatus(ctx, o.ID, o.State); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order.id", o.ID).Msg("failed to refresh order status cache")
		}
	}
	n.publish(ctx, o.ID, eventType, &domain.OrderStatusChanged{
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		SellerID:   o.SellerID,
		Status:     o.State,
		Total:      o.Total,
		OccurredAt: o.UpdatedAt,
	})
}

func (n notifier) transactionChanged(ctx context.Context, t *domain.Transaction) {
	metrics.RecordTransactionTransition(string(t.Status))
	n.publish(ctx, t.OrderID, domain.EventTransactionStatusChanged, &domain.TransactionStatusChanged{
		TransactionID: t.ID,
		OrderID:       t.OrderID,
		Status:        t.Status,
		Method:        t.Method,
		Reason:        t.Reason,
		OccurredAt:    t.UpdatedAt,
	})
}

func (n notifier) feeAccrued(ctx context.Context, s *domain.Settlement, o *domain.Order) {
	if s == nil {
		return
	}
	metrics.RecordFeeAccrued(s.Fee)
	n.publish(ctx, s.OrderID, domain.EventFeeAccrued, &domain.FeeAccrued{
		OrderID:    s.OrderID,
		ResellerID: s.ResellerID,
		Fee:        s.Fee,
		NetAmount:  s.NetAmount,
		OccurredAt: o.UpdatedAt,
	})
}

func (n notifier) publish(ctx context.Context, key string, eventType domain.EventType, payload any) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, key, eventType, payload); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("event_type", string(eventType)).Str("key", key).Msg("failed to publish domain event")
	}
}
