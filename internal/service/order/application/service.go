// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/service/order/domain"
	"partsmarket/internal/service/order/domain/port"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderApplicationService 编排订单聚合、库存与结算，每个用例在一个数据库事务中完成
type OrderApplicationService struct {
	tx           domain.Transactor
	orders       domain.OrderRepository
	parts        domain.PartRepository
	transactions domain.TransactionRepository
	accounts     domain.AccountRepository
	cache        port.OrderStatusCache
	notifier     notifier
	cfg          Config
	tracer       trace.Tracer
	now          func() time.Time
}

func NewOrderApplicationService(
	tx domain.Transactor,
	orders domain.OrderRepository,
	parts domain.PartRepository,
	transactions domain.TransactionRepository,
	accounts domain.AccountRepository,
	publisher port.EventPublisher,
	cache port.OrderStatusCache,
	cfg Config,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		tx: tx, orders: orders, parts: parts, transactions: transactions, accounts: accounts,
		cache:    cache,
		notifier: notifier{publisher: publisher, cache: cache},
		cfg:      cfg, tracer: tracer, now: time.Now,
	}
}

// SetClock 替换时钟 (测试用)
func (s *OrderApplicationService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateOrder 创建一个 PENDING 订单，买家与卖家必须存在且卖家是经销商
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("buyer.id", req.BuyerID), attribute.String("seller.id", req.SellerID))

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		buyer, err := s.accounts.FindByID(ctx, req.BuyerID)
		if err != nil {
			return err
		}
		if !buyer.Active {
			return errors.Wrapf(domain.ErrInvalidArgument, "buyer %s is inactive", buyer.ID)
		}
		seller, err := s.accounts.FindByID(ctx, req.SellerID)
		if err != nil {
			return err
		}
		if !seller.IsReseller() {
			return errors.Wrapf(domain.ErrInvalidArgument, "account %s is not a reseller", seller.ID)
		}

		order, err = domain.NewOrder(uuid.NewString(), buyer.ID, seller.ID, req.DeliveryAddress, s.now())
		if err != nil {
			return err
		}
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, fail(span, err, "create order")
	}

	logger.Ctx(ctx).Info().Str("order.id", order.ID).Str("buyer.id", order.BuyerID).Msg("order created")
	s.notifier.orderChanged(ctx, domain.EventOrderCreated, order)
	return order, nil
}

// AddItem 锁定订单与配件，扣减库存并追加明细
func (s *OrderApplicationService) AddItem(ctx context.Context, orderID, partID string, quantity int) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.AddItem")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("part.id", partID), attribute.Int("quantity", quantity))

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, err = s.orders.FindByIDForUpdate(ctx, orderID); err != nil {
			return err
		}
		part, err := s.parts.FindByIDForUpdate(ctx, partID)
		if err != nil {
			return err
		}
		if _, err := order.AddItem(uuid.NewString(), part, quantity, s.now()); err != nil {
			return err
		}
		if err := s.parts.AdjustStock(ctx, part.ID, -quantity); err != nil {
			return err
		}
		return s.orders.Save(ctx, order)
	})
	if err != nil {
		return nil, fail(span, err, "add item")
	}

	logger.Ctx(ctx).Info().Str("order.id", orderID).Str("part.id", partID).Int("quantity", quantity).
		Str("total", order.Total.StringFixed(2)).Msg("item added")
	return order, nil
}

// RemoveItem 移除某个配件的所有明细并归还库存
func (s *OrderApplicationService) RemoveItem(ctx context.Context, orderID, partID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.RemoveItem")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("part.id", partID))

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, err = s.orders.FindByIDForUpdate(ctx, orderID); err != nil {
			return err
		}
		removed, err := order.RemoveItem(partID, s.now())
		if err != nil {
			return err
		}
		if err := releaseStock(ctx, s.parts, removed); err != nil {
			return err
		}
		return s.orders.Save(ctx, order)
	})
	if err != nil {
		return nil, fail(span, err, "remove item")
	}

	logger.Ctx(ctx).Info().Str("order.id", orderID).Str("part.id", partID).Msg("item removed")
	return order, nil
}

// UpdateItemQuantity 按新旧数量差值调整库存
func (s *OrderApplicationService) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateItemQuantity")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID), attribute.Int("quantity", quantity))

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.orders.FindItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		if order, err = s.orders.FindByIDForUpdate(ctx, item.OrderID); err != nil {
			return err
		}
		part, err := s.parts.FindByIDForUpdate(ctx, item.PartID)
		if err != nil {
			return err
		}
		delta, err := order.UpdateItemQuantity(itemID, part, quantity, s.now())
		if err != nil {
			return err
		}
		if err := s.parts.AdjustStock(ctx, part.ID, -delta); err != nil {
			return err
		}
		return s.orders.Save(ctx, order)
	})
	if err != nil {
		return nil, fail(span, err, "update item quantity")
	}

	logger.Ctx(ctx).Info().Str("order.id", order.ID).Str("item.id", itemID).Int("quantity", quantity).Msg("item quantity updated")
	return order, nil
}

// DeleteItem 删除一行明细并归还库存
func (s *OrderApplicationService) DeleteItem(ctx context.Context, itemID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.DeleteItem")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID))

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.orders.FindItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		if order, err = s.orders.FindByIDForUpdate(ctx, item.OrderID); err != nil {
			return err
		}
		part, err := s.parts.FindByIDForUpdate(ctx, item.PartID)
		if err != nil {
			return err
		}
		deleted, err := order.DeleteItem(itemID, part, s.now())
		if err != nil {
			return err
		}
		if err := s.parts.AdjustStock(ctx, part.ID, deleted.Quantity); err != nil {
			return err
		}
		return s.orders.Save(ctx, order)
	})
	if err != nil {
		return nil, fail(span, err, "delete item")
	}

	logger.Ctx(ctx).Info().Str("order.id", order.ID).Str("item.id", itemID).Msg("item deleted")
	return order, nil
}

// ConfirmPayment 直接确认订单支付并结算手续费
func (s *OrderApplicationService) ConfirmPayment(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var (
		order      *domain.Order
		settlement *domain.Settlement
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, err = s.orders.FindByIDForUpdate(ctx, orderID); err != nil {
			return err
		}
		settlement, err = confirmOrderPayment(ctx, s.orders, s.accounts, order, s.cfg.FeeRate, s.now())
		return err
	})
	if err != nil {
		return nil, fail(span, err, "confirm payment")
	}

	logger.Ctx(ctx).Info().Str("order.id", orderID).Msg("order payment confirmed")
	s.notifier.orderChanged(ctx, domain.EventOrderStatusChanged, order)
	s.notifier.feeAccrued(ctx, settlement, order)
	return order, nil
}

// CancelOrder 取消订单并归还全部库存，未完成的交易一并取消。
// 交易已确认时拒绝，需走交易撤销 (Reverse)
func (s *OrderApplicationService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var (
		order     *domain.Order
		cancelled *domain.Transaction
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, err = s.orders.FindByIDForUpdate(ctx, orderID); err != nil {
			return err
		}
		// 锁顺序与交易服务一致: 先订单后交易
		t, err := s.transactions.FindByOrderIDForUpdate(ctx, orderID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			t = nil
		case err != nil:
			return err
		}
		if t != nil && t.Status == domain.TxConfirmed && order.State == domain.StateConfirmed {
			return &domain.StateError{
				Entity: "order", ID: order.ID, From: string(order.State), Action: "cancel",
				Hint: "payment confirmed, reverse transaction " + t.ID + " instead",
			}
		}
		if err := cancelOrder(ctx, s.orders, s.parts, order, s.now()); err != nil {
			return err
		}

		if t == nil || (t.Status != domain.TxPending && t.Status != domain.TxProcessing) {
			return nil
		}
		if err := t.Cancel(s.now()); err != nil {
			return err
		}
		cancelled = t
		return s.transactions.Save(ctx, t)
	})
	if err != nil {
		return nil, fail(span, err, "cancel order")
	}

	logger.Ctx(ctx).Info().Str("order.id", orderID).Msg("order cancelled, stock released")
	s.notifier.orderChanged(ctx, domain.EventOrderStatusChanged, order)
	if cancelled != nil {
		s.notifier.transactionChanged(ctx, cancelled)
	}
	return order, nil
}

// MarkDelivered 记录外部履约完成
func (s *OrderApplicationService) MarkDelivered(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.MarkDelivered")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error { return o.MarkDelivered(s.now()) })
	if err != nil {
		return nil, fail(span, err, "mark delivered")
	}
	logger.Ctx(ctx).Info().Str("order.id", orderID).Msg("order delivered")
	s.notifier.orderChanged(ctx, domain.EventOrderStatusChanged, order)
	return order, nil
}

// UpdateStatus 是管理员改写状态；目标为 CANCELLED 时走取消流程以归还库存
func (s *OrderApplicationService) UpdateStatus(ctx context.Context, orderID string, status domain.State) (*domain.Order, error) {
	if status == domain.StateCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	ctx, span := s.tracer.Start(ctx, "app.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("status", string(status)))

	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error { return o.SetStatus(status, s.now()) })
	if err != nil {
		return nil, fail(span, err, "update status")
	}
	logger.Ctx(ctx).Warn().Str("order.id", orderID).Str("status", string(status)).Msg("order status overridden")
	s.notifier.orderChanged(ctx, domain.EventOrderStatusChanged, order)
	return order, nil
}

// UpdateDeliveryAddress 只覆盖补丁中非空的字段
func (s *OrderApplicationService) UpdateDeliveryAddress(ctx context.Context, orderID string, patch domain.Address) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateDeliveryAddress")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.mutate(ctx, orderID, func(o *domain.Order) error { return o.UpdateDeliveryAddress(patch, s.now()) })
	if err != nil {
		return nil, fail(span, err, "update delivery address")
	}
	logger.Ctx(ctx).Info().Str("order.id", orderID).Msg("delivery address updated")
	return order, nil
}

func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fail(span, err, "get order")
	}
	return order, nil
}

// GetOrderStatus 优先读缓存，未命中时回源并回填
func (s *OrderApplicationService) GetOrderStatus(ctx context.Context, orderID string) (domain.State, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrderStatus")
	defer span.End()

	if s.cache != nil {
		state, ok, err := s.cache.GetStatus(ctx, orderID)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order.id", orderID).Msg("status cache unavailable")
		} else if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return state, nil
		}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", fail(span, err, "get order status")
	}
	if s.cache != nil {
		if err := s.cache.SetStatus(ctx, orderID, order.State); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order.id", orderID).Msg("failed to fill status cache")
		}
	}
	return order.State, nil
}

func (s *OrderApplicationService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fail(span, err, "list orders")
	}
	return orders, nil
}

func (s *OrderApplicationService) mutate(ctx context.Context, orderID string, fn func(o *domain.Order) error) (*domain.Order, error) {
	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, err = s.orders.FindByIDForUpdate(ctx, orderID); err != nil {
			return err
		}
		if err := fn(order); err != nil {
			return err
		}
		return s.orders.Save(ctx, order)
	})
	return order, err
}

// cancelOrder 取消订单并按明细归还库存，供订单取消与交易撤销共用
func cancelOrder(ctx context.Context, orders domain.OrderRepository, parts domain.PartRepository, order *domain.Order, now time.Time) error {
	if err := order.Cancel(now); err != nil {
		return err
	}
	if err := releaseStock(ctx, parts, order.Items); err != nil {
		return err
	}
	return orders.Save(ctx, order)
}

func releaseStock(ctx context.Context, parts domain.PartRepository, items []*domain.OrderItem) error {
	for _, item := range items {
		if err := parts.AdjustStock(ctx, item.PartID, item.Quantity); err != nil {
			return errors.Wrapf(err, "release stock of part %s", item.PartID)
		}
	}
	return nil
}
