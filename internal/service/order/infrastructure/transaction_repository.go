package infrastructure

import (
	"context"
	"errors"

	"partsmarket/internal/service/order/domain"

	"gorm.io/gorm"
)

type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create 依赖 order_id 唯一索引拒绝同一订单的第二笔交易
func (r *GormTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	err := conn(ctx, r.db).Create(FromDomainTransaction(tx)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.StateError{Entity: "transaction", ID: tx.ID, From: "NONE", Action: "create", Hint: "order already has a transaction"}
	}
	return err
}

func (r *GormTransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	return conn(ctx, r.db).Save(FromDomainTransaction(tx)).Error
}

func (r *GormTransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.first(conn(ctx, r.db), "transaction", id, "id = ?", id)
}

func (r *GormTransactionRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.first(forUpdate(conn(ctx, r.db)), "transaction", id, "id = ?", id)
}

func (r *GormTransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return r.first(conn(ctx, r.db), "transaction for order", orderID, "order_id = ?", orderID)
}

func (r *GormTransactionRepository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return r.first(forUpdate(conn(ctx, r.db)), "transaction for order", orderID, "order_id = ?", orderID)
}

func (r *GormTransactionRepository) first(db *gorm.DB, entity, id string, query string, args ...any) (*domain.Transaction, error) {
	var model TransactionModel
	if err := db.Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: entity, ID: id}
		}
		return nil, err
	}
	return ToDomainTransaction(&model), nil
}

func (r *GormTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	q := conn(ctx, r.db).Model(&TransactionModel{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Method != "" {
		q = q.Where("method = ?", string(filter.Method))
	}
	var models []*TransactionModel
	if err := q.Order("timestamp DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	txs := make([]*domain.Transaction, len(models))
	for i, m := range models {
		txs[i] = ToDomainTransaction(m)
	}
	return txs, nil
}
