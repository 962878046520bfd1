package application

import (
	"context"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/service/order/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// confirmOrderPayment 确认订单支付并在同一事务内结算手续费 (锁定经销商行)。
// 库存在加入明细时已扣减，这里不再变动
func confirmOrderPayment(ctx context.Context, orders domain.OrderRepository, accounts domain.AccountRepository,
	order *domain.Order, rate decimal.Decimal, now time.Time) (*domain.Settlement, error) {
	if err := order.ConfirmPayment(now); err != nil {
		return nil, err
	}
	seller, err := accounts.FindByIDForUpdate(ctx, order.SellerID)
	if err != nil {
		return nil, err
	}
	settlement, err := domain.SettleFee(order, seller, rate, now)
	if err != nil {
		return nil, err
	}
	if settlement != nil {
		if err := accounts.Save(ctx, seller); err != nil {
			return nil, err
		}
	}
	if err := orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return settlement, nil
}

// SettlementApplicationService 处理经销商手续费余额与会员状态
type SettlementApplicationService struct {
	tx       domain.Transactor
	accounts domain.AccountRepository
	cfg      Config
	tracer   trace.Tracer
	now      func() time.Time
}

func NewSettlementApplicationService(tx domain.Transactor, accounts domain.AccountRepository, cfg Config, tracer trace.Tracer) *SettlementApplicationService {
	return &SettlementApplicationService{tx: tx, accounts: accounts, cfg: cfg, tracer: tracer, now: time.Now}
}

func (s *SettlementApplicationService) SetClock(now func() time.Time) {
	s.now = now
}

// SettleFees 扣减经销商欠费，amount 为 nil 时清零
func (s *SettlementApplicationService) SettleFees(ctx context.Context, resellerID string, amount *decimal.Decimal) (*domain.Account, error) {
	ctx, span := s.tracer.Start(ctx, "app.SettleFees")
	defer span.End()
	span.SetAttributes(attribute.String("reseller.id", resellerID))

	account, err := s.mutate(ctx, resellerID, func(a *domain.Account) error { return a.SettleFees(amount, s.now()) })
	if err != nil {
		return nil, fail(span, err, "settle fees")
	}
	logger.Ctx(ctx).Info().Str("reseller.id", resellerID).Str("fee_balance", account.FeeBalance.StringFixed(2)).Msg("reseller fees settled")
	return account, nil
}

// ActivatePremium days 为 0 时使用默认天数
func (s *SettlementApplicationService) ActivatePremium(ctx context.Context, resellerID string, days int) (*domain.Account, error) {
	ctx, span := s.tracer.Start(ctx, "app.ActivatePremium")
	defer span.End()
	span.SetAttributes(attribute.String("reseller.id", resellerID), attribute.Int("days", days))

	if days == 0 {
		days = s.cfg.DefaultPremiumDays
	}
	account, err := s.mutate(ctx, resellerID, func(a *domain.Account) error { return a.ActivatePremium(days, s.now()) })
	if err != nil {
		return nil, fail(span, err, "activate premium")
	}
	logger.Ctx(ctx).Info().Str("reseller.id", resellerID).Time("premium_until", *account.PremiumUntil).Msg("premium activated")
	return account, nil
}

func (s *SettlementApplicationService) DeactivatePremium(ctx context.Context, resellerID string) (*domain.Account, error) {
	ctx, span := s.tracer.Start(ctx, "app.DeactivatePremium")
	defer span.End()
	span.SetAttributes(attribute.String("reseller.id", resellerID))

	account, err := s.mutate(ctx, resellerID, func(a *domain.Account) error { return a.DeactivatePremium(s.now()) })
	if err != nil {
		return nil, fail(span, err, "deactivate premium")
	}
	logger.Ctx(ctx).Info().Str("reseller.id", resellerID).Msg("premium deactivated")
	return account, nil
}

func (s *SettlementApplicationService) GetFeeBalance(ctx context.Context, resellerID string) (decimal.Decimal, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetFeeBalance")
	defer span.End()

	account, err := s.accounts.FindByID(ctx, resellerID)
	if err != nil {
		return decimal.Zero, fail(span, err, "get fee balance")
	}
	if !account.IsReseller() {
		return decimal.Zero, fail(span, domain.ErrInvalidArgument, "account is not a reseller")
	}
	return account.FeeBalance, nil
}

func (s *SettlementApplicationService) mutate(ctx context.Context, id string, fn func(a *domain.Account) error) (*domain.Account, error) {
	var account *domain.Account
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if account, err = s.accounts.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(account); err != nil {
			return err
		}
		return s.accounts.Save(ctx, account)
	})
	return account, err
}
