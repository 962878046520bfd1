package application

import (
	"context"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/service/order/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CatalogApplicationService 是账户与配件目录的薄服务层
type CatalogApplicationService struct {
	tx       domain.Transactor
	accounts domain.AccountRepository
	parts    domain.PartRepository
	tracer   trace.Tracer
	now      func() time.Time
}

func NewCatalogApplicationService(tx domain.Transactor, accounts domain.AccountRepository, parts domain.PartRepository, tracer trace.Tracer) *CatalogApplicationService {
	return &CatalogApplicationService{tx: tx, accounts: accounts, parts: parts, tracer: tracer, now: time.Now}
}

func (s *CatalogApplicationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *CatalogApplicationService) RegisterAccount(ctx context.Context, req *RegisterAccountRequest) (*domain.Account, error) {
	ctx, span := s.tracer.Start(ctx, "app.RegisterAccount")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(req.Role)))

	now := s.now()
	account := &domain.Account{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		Active:    true,
		Address:   req.Address,
		StoreName: req.StoreName,
		TaxID:     req.TaxID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := account.Validate(); err != nil {
		return nil, fail(span, err, "register account")
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fail(span, err, "register account")
	}
	logger.Ctx(ctx).Info().Str("account.id", account.ID).Str("role", string(account.Role)).Msg("account registered")
	return account, nil
}

func (s *CatalogApplicationService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetAccount")
	defer span.End()

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err, "get account")
	}
	return account, nil
}

// CreatePart 只有经销商可以上架配件
func (s *CatalogApplicationService) CreatePart(ctx context.Context, req *CreatePartRequest) (*domain.Part, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreatePart")
	defer span.End()
	span.SetAttributes(attribute.String("reseller.id", req.ResellerID))

	now := s.now()
	part := &domain.Part{
		ID:           uuid.NewString(),
		ResellerID:   req.ResellerID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Brand:        req.Brand,
		VehicleModel: req.VehicleModel,
		Year:         req.Year,
		Condition:    req.Condition,
		Price:        req.Price,
		Stock:        req.Stock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := part.Validate(); err != nil {
		return nil, fail(span, err, "create part")
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		reseller, err := s.accounts.FindByID(ctx, req.ResellerID)
		if err != nil {
			return err
		}
		if !reseller.IsReseller() {
			return errors.Wrapf(domain.ErrInvalidArgument, "account %s is not a reseller", reseller.ID)
		}
		return s.parts.Create(ctx, part)
	})
	if err != nil {
		return nil, fail(span, err, "create part")
	}
	logger.Ctx(ctx).Info().Str("part.id", part.ID).Str("reseller.id", part.ResellerID).Int("stock", part.Stock).Msg("part listed")
	return part, nil
}

func (s *CatalogApplicationService) GetPart(ctx context.Context, id string) (*domain.Part, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetPart")
	defer span.End()

	part, err := s.parts.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err, "get part")
	}
	return part, nil
}

func (s *CatalogApplicationService) ListParts(ctx context.Context, filter domain.PartFilter) ([]*domain.Part, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListParts")
	defer span.End()

	parts, err := s.parts.List(ctx, filter)
	if err != nil {
		return nil, fail(span, err, "list parts")
	}
	return parts, nil
}

// RestockPart 管理员补货
func (s *CatalogApplicationService) RestockPart(ctx context.Context, id string, quantity int) (*domain.Part, error) {
	ctx, span := s.tracer.Start(ctx, "app.RestockPart")
	defer span.End()
	span.SetAttributes(attribute.String("part.id", id), attribute.Int("quantity", quantity))

	var part *domain.Part
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if part, err = s.parts.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := part.Credit(quantity); err != nil {
			return err
		}
		return s.parts.AdjustStock(ctx, id, quantity)
	})
	if err != nil {
		return nil, fail(span, err, "restock part")
	}
	logger.Ctx(ctx).Info().Str("part.id", id).Int("stock", part.Stock).Msg("part restocked")
	return part, nil
}

func (s *CatalogApplicationService) DisablePart(ctx context.Context, id string) (*domain.Part, error) {
	return s.setDisabled(ctx, id, true)
}

func (s *CatalogApplicationService) EnablePart(ctx context.Context, id string) (*domain.Part, error) {
	return s.setDisabled(ctx, id, false)
}

func (s *CatalogApplicationService) setDisabled(ctx context.Context, id string, disabled bool) (*domain.Part, error) {
	ctx, span := s.tracer.Start(ctx, "app.SetPartDisabled")
	defer span.End()
	span.SetAttributes(attribute.String("part.id", id), attribute.Bool("disabled", disabled))

	var part *domain.Part
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if part, err = s.parts.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if disabled {
			part.Disable(s.now())
		} else {
			part.Enable(s.now())
		}
		return s.parts.Save(ctx, part)
	})
	if err != nil {
		return nil, fail(span, err, "set part disabled")
	}
	logger.Ctx(ctx).Info().Str("part.id", id).Bool("disabled", disabled).Msg("part availability changed")
	return part, nil
}
