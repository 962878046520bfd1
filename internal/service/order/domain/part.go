// internal/service/order/domain/part.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Condition string

const (
	ConditionNew         Condition = "NEW"
	ConditionUsed        Condition = "USED"
	ConditionRefurbished Condition = "REFURBISHED"
)

// Part 是可售卖的库存单位，归属于唯一的经销商
type Part struct {
	ID           string
	ResellerID   string
	Name         string
	Description  string
	Category     string
	Brand        string
	VehicleModel string
	Year         int
	Condition    Condition
	Price        decimal.Decimal
	Stock        int
	Disabled     bool // 管理员下架；被订单引用的配件不会被删除
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Part) Validate() error {
	if p.ResellerID == "" {
		return invalidArgument("part must belong to a reseller")
	}
	if p.Name == "" {
		return invalidArgument("part name is required")
	}
	if p.Price.IsNegative() {
		return invalidArgument("part price must not be negative")
	}
	if p.Stock < 0 {
		return invalidArgument("part stock must not be negative")
	}
	switch p.Condition {
	case "", ConditionNew, ConditionUsed, ConditionRefurbished:
	default:
		return invalidArgument("unknown part condition %q", p.Condition)
	}
	return nil
}

func (p *Part) IsAvailable() bool {
	return p.Stock > 0 && !p.Disabled
}

// Debit 扣减库存，不允许部分扣减
func (p *Part) Debit(quantity int) error {
	if quantity <= 0 {
		return invalidArgument("debit quantity must be positive, got %d", quantity)
	}
	if !p.IsAvailable() || p.Stock < quantity {
		available := p.Stock
		if p.Disabled {
			available = 0
		}
		return &InsufficientStockError{PartID: p.ID, Available: available, Requested: quantity}
	}
	p.Stock -= quantity
	return nil
}

func (p *Part) Credit(quantity int) error {
	if quantity <= 0 {
		return invalidArgument("credit quantity must be positive, got %d", quantity)
	}
	p.Stock += quantity
	return nil
}

func (p *Part) Disable(now time.Time) {
	p.Disabled = true
	p.UpdatedAt = now
}

func (p *Part) Enable(now time.Time) {
	p.Disabled = false
	p.UpdatedAt = now
}
