package infrastructure

import (
	"context"
	"errors"

	"partsmarket/internal/service/order/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func itemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return conn(ctx, r.db).Create(FromDomainOrder(order)).Error
}

// Save 先更新订单头，再删除已移除的明细，最后 upsert 剩余明细
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	db := conn(ctx, r.db)
	model := FromDomainOrder(order)

	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return err
	}

	keep := make([]string, 0, len(model.Items))
	for _, item := range model.Items {
		keep = append(keep, item.ID)
	}
	del := db.Where("order_id = ?", order.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&OrderItemModel{}).Error; err != nil {
		return err
	}

	for i := range model.Items {
		if err := db.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(conn(ctx, r.db), id)
}

func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(forUpdate(conn(ctx, r.db)), id)
}

func (r *GormOrderRepository) find(db *gorm.DB, id string) (*domain.Order, error) {
	var model OrderModel
	err := db.Preload("Items", itemsByPosition).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "order", ID: id}
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindItemByID(ctx context.Context, itemID string) (*domain.OrderItem, error) {
	var model OrderItemModel
	if err := conn(ctx, r.db).Where("id = ?", itemID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "order item", ID: itemID}
		}
		return nil, err
	}
	return ToDomainOrderItem(&model), nil
}

func (r *GormOrderRepository) FindItemsByOrder(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	var models []*OrderItemModel
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("position").Find(&models).Error; err != nil {
		return nil, err
	}
	items := make([]*domain.OrderItem, len(models))
	for i, m := range models {
		items[i] = ToDomainOrderItem(m)
	}
	return items, nil
}

func (r *GormOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	q := conn(ctx, r.db).Preload("Items", itemsByPosition)
	if filter.BuyerID != "" {
		q = q.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID != "" {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if filter.State != "" {
		q = q.Where("state = ?", string(filter.State))
	}
	var models []*OrderModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, len(models))
	for i, m := range models {
		orders[i] = ToDomainOrder(m)
	}
	return orders, nil
}
