package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddressColumns 以 embedded 方式展开到宿主表
type AddressColumns struct {
	Street     string `gorm:"type:varchar(255)"`
	Number     string `gorm:"type:varchar(20)"`
	Complement string `gorm:"type:varchar(255)"`
	District   string `gorm:"type:varchar(100)"`
	City       string `gorm:"type:varchar(100)"`
	State      string `gorm:"type:varchar(50)"`
	ZipCode    string `gorm:"type:varchar(20)"`
}

// PartModel 对应 parts 表
type PartModel struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)"`
	ResellerID   string          `gorm:"type:varchar(36);index;not null"`
	Name         string          `gorm:"type:varchar(255);not null"`
	Description  string          `gorm:"type:text"`
	Category     string          `gorm:"type:varchar(100);index"`
	Brand        string          `gorm:"type:varchar(100)"`
	VehicleModel string          `gorm:"type:varchar(100)"`
	Year         int             `gorm:"not null;default:0"`
	Condition    string          `gorm:"column:part_condition;type:varchar(20)"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock        int             `gorm:"not null;default:0"`
	Disabled     bool            `gorm:"not null;default:false"`
	CreatedAt    time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime:false"`
}

func (PartModel) TableName() string {
	return "parts"
}

// OrderModel 对应 orders 表，明细按 position 排序
type OrderModel struct {
	ID                string              `gorm:"primaryKey;type:varchar(36)"`
	BuyerID           string              `gorm:"type:varchar(36);index;not null"`
	SellerID          string              `gorm:"type:varchar(36);index;not null"`
	Total             decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	State             string              `gorm:"type:varchar(20);index;not null"`
	Delivery          AddressColumns      `gorm:"embedded;embeddedPrefix:delivery_"`
	PlatformFee       decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	NetAmountToSeller decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	FeeSettled        bool                `gorm:"not null;default:false"`
	PaidAt            *time.Time          `gorm:"default:null"`
	CreatedAt         time.Time           `gorm:"autoCreateTime:false;index"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime:false"`
	Items             []OrderItemModel    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string {
	return "orders"
}

type OrderItemModel struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `gorm:"type:varchar(36);index;not null"`
	PartID    string          `gorm:"type:varchar(36);index;not null"`
	Position  int             `gorm:"not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// TransactionModel 对应 transactions 表，order_id 唯一保证一单一笔交易
type TransactionModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	OrderID   string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	Timestamp time.Time `gorm:"not null"`
	Method    string    `gorm:"type:varchar(20);index;not null"`
	Status    string    `gorm:"type:varchar(20);index;not null"`
	Reference string    `gorm:"type:varchar(255)"`
	Reason    string    `gorm:"type:varchar(255)"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}

// AccountModel 对应 accounts 表，经销商专属列对其他角色为空
type AccountModel struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)"`
	Name          string          `gorm:"type:varchar(255);not null"`
	Email         string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone         string          `gorm:"type:varchar(30)"`
	Role          string          `gorm:"type:varchar(20);index;not null"`
	Active        bool            `gorm:"not null"`
	Address       AddressColumns  `gorm:"embedded;embeddedPrefix:address_"`
	StoreName     string          `gorm:"type:varchar(255)"`
	TaxID         string          `gorm:"type:varchar(20)"`
	FeeBalance    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PremiumActive bool            `gorm:"not null;default:false"`
	PremiumUntil  *time.Time      `gorm:"default:null"`
	CreatedAt     time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime:false"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

// AllModels 用于 AutoMigrate
func AllModels() []any {
	return []any{&AccountModel{}, &PartModel{}, &OrderModel{}, &OrderItemModel{}, &TransactionModel{}}
}
