package infrastructure

import (
	"context"
	"errors"

	"partsmarket/internal/service/order/domain"

	"gorm.io/gorm"
)

type GormAccountRepository struct {
	db *gorm.DB
}

func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := conn(ctx, r.db).Create(FromDomainAccount(account)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(domain.ErrInvalidArgument, errors.New("email already registered"))
	}
	return err
}

func (r *GormAccountRepository) Save(ctx context.Context, account *domain.Account) error {
	return conn(ctx, r.db).Save(FromDomainAccount(account)).Error
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.find(conn(ctx, r.db), id)
}

func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.find(forUpdate(conn(ctx, r.db)), id)
}

func (r *GormAccountRepository) find(db *gorm.DB, id string) (*domain.Account, error) {
	var model AccountModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "account", ID: id}
		}
		return nil, err
	}
	return ToDomainAccount(&model), nil
}
