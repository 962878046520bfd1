package infrastructure

import (
	"context"
	"errors"

	"partsmarket/internal/service/order/domain"

	"gorm.io/gorm"
)

// GormPartRepository 是 domain.PartRepository 的 GORM 实现
type GormPartRepository struct {
	db *gorm.DB
}

func NewGormPartRepository(db *gorm.DB) *GormPartRepository {
	return &GormPartRepository{db: db}
}

func (r *GormPartRepository) Create(ctx context.Context, part *domain.Part) error {
	return conn(ctx, r.db).Create(FromDomainPart(part)).Error
}

// Save 只更新非库存字段
func (r *GormPartRepository) Save(ctx context.Context, part *domain.Part) error {
	updateData := map[string]interface{}{
		"name":           part.Name,
		"description":    part.Description,
		"category":       part.Category,
		"brand":          part.Brand,
		"vehicle_model":  part.VehicleModel,
		"year":           part.Year,
		"part_condition": string(part.Condition),
		"price":          part.Price,
		"disabled":       part.Disabled,
		"updated_at":     part.UpdatedAt,
	}
	res := conn(ctx, r.db).Model(&PartModel{}).Where("id = ?", part.ID).Updates(updateData)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *GormPartRepository) FindByID(ctx context.Context, id string) (*domain.Part, error) {
	return r.find(conn(ctx, r.db), id)
}

func (r *GormPartRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Part, error) {
	return r.find(forUpdate(conn(ctx, r.db)), id)
}

func (r *GormPartRepository) find(db *gorm.DB, id string) (*domain.Part, error) {
	var model PartModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "part", ID: id}
		}
		return nil, err
	}
	return ToDomainPart(&model), nil
}

func (r *GormPartRepository) List(ctx context.Context, filter domain.PartFilter) ([]*domain.Part, error) {
	q := conn(ctx, r.db).Model(&PartModel{})
	if filter.ResellerID != "" {
		q = q.Where("reseller_id = ?", filter.ResellerID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		q = q.Where("stock > 0 AND disabled = ?", false)
	}
	var models []*PartModel
	if err := q.Order("name").Find(&models).Error; err != nil {
		return nil, err
	}
	parts := make([]*domain.Part, len(models))
	for i, m := range models {
		parts[i] = ToDomainPart(m)
	}
	return parts, nil
}

// AdjustStock 用条件更新保证库存不为负: 检查与扣减在同一条 SQL 中完成
func (r *GormPartRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	db := conn(ctx, r.db)
	q := db.Model(&PartModel{}).Where("id = ? AND stock + ? >= 0", id, delta)
	if delta < 0 {
		q = q.Where("disabled = ?", false)
	}
	res := q.UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := r.find(db, id)
	if err != nil {
		return err
	}
	available := current.Stock
	if current.Disabled {
		available = 0
	}
	return &domain.InsufficientStockError{PartID: id, Available: available, Requested: -delta}
}
