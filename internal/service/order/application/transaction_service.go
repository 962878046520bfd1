package application

import (
	"context"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/service/order/domain"
	"partsmarket/internal/service/order/domain/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TransactionApplicationService 驱动支付交易状态机，并把结果同步到订单
type TransactionApplicationService struct {
	tx           domain.Transactor
	transactions domain.TransactionRepository
	orders       domain.OrderRepository
	parts        domain.PartRepository
	accounts     domain.AccountRepository
	notifier     notifier
	cfg          Config
	tracer       trace.Tracer
	now          func() time.Time
}

func NewTransactionApplicationService(
	tx domain.Transactor,
	transactions domain.TransactionRepository,
	orders domain.OrderRepository,
	parts domain.PartRepository,
	accounts domain.AccountRepository,
	publisher port.EventPublisher,
	cache port.OrderStatusCache,
	cfg Config,
	tracer trace.Tracer,
) *TransactionApplicationService {
	return &TransactionApplicationService{
		tx: tx, transactions: transactions, orders: orders, parts: parts, accounts: accounts,
		notifier: notifier{publisher: publisher, cache: cache},
		cfg:      cfg, tracer: tracer, now: time.Now,
	}
}

func (s *TransactionApplicationService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateTransaction 为 PENDING 订单创建唯一的一笔交易
func (s *TransactionApplicationService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", req.OrderID), attribute.String("method", string(req.Method)))

	var t *domain.Transaction
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if t, err = domain.NewTransaction(uuid.NewString(), order, req.Method, req.Reference, s.now()); err != nil {
			return err
		}
		return s.transactions.Create(ctx, t)
	})
	if err != nil {
		return nil, fail(span, err, "create transaction")
	}

	logger.Ctx(ctx).Info().Str("tx.id", t.ID).Str("order.id", t.OrderID).Str("method", string(t.Method)).Msg("transaction created")
	s.notifier.transactionChanged(ctx, t)
	return t, nil
}

// Process 标记交易进入网关处理中，最终结果由网关回调 (Confirm / Refuse) 给出
func (s *TransactionApplicationService) Process(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.ProcessTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", id))

	t, err := s.mutate(ctx, id, func(t *domain.Transaction) error { return t.Process(s.now()) })
	if err != nil {
		return nil, fail(span, err, "process transaction")
	}
	logger.Ctx(ctx).Info().Str("tx.id", id).Msg("transaction processing")
	s.notifier.transactionChanged(ctx, t)
	return t, nil
}

// Confirm 确认交易、确认订单支付并结算手续费，三者在同一事务中提交
func (s *TransactionApplicationService) Confirm(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.ConfirmTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", id))

	var (
		t          *domain.Transaction
		order      *domain.Order
		settlement *domain.Settlement
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, t, err = s.lockOrderAndTransaction(ctx, id); err != nil {
			return err
		}
		now := s.now()
		if err := t.Confirm(now); err != nil {
			return err
		}
		if settlement, err = confirmOrderPayment(ctx, s.orders, s.accounts, order, s.cfg.FeeRate, now); err != nil {
			return err
		}
		return s.transactions.Save(ctx, t)
	})
	if err != nil {
		return nil, fail(span, err, "confirm transaction")
	}

	ev := logger.Ctx(ctx).Info().Str("tx.id", id).Str("order.id", t.OrderID)
	if settlement != nil {
		ev = ev.Str("platform_fee", settlement.Fee.StringFixed(2)).Str("net_amount", settlement.NetAmount.StringFixed(2))
	}
	ev.Msg("transaction confirmed")

	s.notifier.transactionChanged(ctx, t)
	s.notifier.orderChanged(ctx, domain.EventOrderStatusChanged, order)
	s.notifier.feeAccrued(ctx, settlement, order)
	return t, nil
}

func (s *TransactionApplicationService) Refuse(ctx context.Context, id, reason string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.RefuseTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", id), attribute.String("reason", reason))

	t, err := s.mutate(ctx, id, func(t *domain.Transaction) error { return t.Refuse(reason, s.now()) })
	if err != nil {
		return nil, fail(span, err, "refuse transaction")
	}
	logger.Ctx(ctx).Warn().Str("tx.id", id).Str("reason", reason).Msg("transaction refused")
	s.notifier.transactionChanged(ctx, t)
	return t, nil
}

// Reverse 在撤销窗口内撤销已确认的交易，并取消订单、归还库存
func (s *TransactionApplicationService) Reverse(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.ReverseTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", id))

	var (
		t     *domain.Transaction
		order *domain.Order
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, t, err = s.lockOrderAndTransaction(ctx, id); err != nil {
			return err
		}
		now := s.now()
		if err := t.Reverse(now, s.cfg.ReversalWindow); err != nil {
			return err
		}
		if err := cancelOrder(ctx, s.orders, s.parts, order, now); err != nil {
			return err
		}
		return s.transactions.Save(ctx, t)
	})
	if err != nil {
		return nil, fail(span, err, "reverse transaction")
	}

	logger.Ctx(ctx).Warn().Str("tx.id", id).Str("order.id", t.OrderID).Msg("transaction reversed, order cancelled")
	s.notifier.transactionChanged(ctx, t)
	s.notifier.orderChanged(ctx, domain.EventOrderStatusChanged, order)
	return t, nil
}

func (s *TransactionApplicationService) Cancel(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", id))

	t, err := s.mutate(ctx, id, func(t *domain.Transaction) error { return t.Cancel(s.now()) })
	if err != nil {
		return nil, fail(span, err, "cancel transaction")
	}
	logger.Ctx(ctx).Info().Str("tx.id", id).Msg("transaction cancelled")
	s.notifier.transactionChanged(ctx, t)
	return t, nil
}

func (s *TransactionApplicationService) CanReverse(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "app.CanReverse")
	defer span.End()

	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return false, fail(span, err, "can reverse")
	}
	return t.CanReverse(s.now(), s.cfg.ReversalWindow), nil
}

func (s *TransactionApplicationService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetTransaction")
	defer span.End()

	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err, "get transaction")
	}
	return t, nil
}

func (s *TransactionApplicationService) GetByOrder(ctx context.Context, orderID string) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetTransactionByOrder")
	defer span.End()

	t, err := s.transactions.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fail(span, err, "get transaction by order")
	}
	return t, nil
}

func (s *TransactionApplicationService) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListTransactions")
	defer span.End()

	txs, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, fail(span, err, "list transactions")
	}
	return txs, nil
}

// lockOrderAndTransaction 先锁订单再锁交易，与 CreateTransaction / CancelOrder 的加锁顺序一致
func (s *TransactionApplicationService) lockOrderAndTransaction(ctx context.Context, id string) (*domain.Order, *domain.Transaction, error) {
	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.orders.FindByIDForUpdate(ctx, t.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if t, err = s.transactions.FindByIDForUpdate(ctx, id); err != nil {
		return nil, nil, err
	}
	return order, t, nil
}

func (s *TransactionApplicationService) mutate(ctx context.Context, id string, fn func(t *domain.Transaction) error) (*domain.Transaction, error) {
	var t *domain.Transaction
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if t, err = s.transactions.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		return s.transactions.Save(ctx, t)
	})
	return t, err
}
