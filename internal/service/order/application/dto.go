// internal/service/order/application/dto.go
package application

import (
	"time"

	"partsmarket/internal/service/order/domain"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	BuyerID         string         `json:"buyerId"`
	SellerID        string         `json:"sellerId"`
	DeliveryAddress domain.Address `json:"deliveryAddress"`
}

type AddItemRequest struct {
	PartID   string `json:"partId"`
	Quantity int    `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateStatusRequest struct {
	Status domain.State `json:"status"`
}

type CreateTransactionRequest struct {
	OrderID   string               `json:"orderId"`
	Method    domain.PaymentMethod `json:"method"`
	Reference string               `json:"reference"`
}

type RefuseRequest struct {
	Reason string `json:"reason"`
}

type RegisterAccountRequest struct {
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Role      domain.Role    `json:"role"`
	Address   domain.Address `json:"address"`
	StoreName string         `json:"storeName,omitempty"`
	TaxID     string         `json:"taxId,omitempty"`
}

type CreatePartRequest struct {
	ResellerID   string           `json:"resellerId"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Category     string           `json:"category"`
	Brand        string           `json:"brand"`
	VehicleModel string           `json:"vehicleModel"`
	Year         int              `json:"year"`
	Condition    domain.Condition `json:"condition"`
	Price        decimal.Decimal  `json:"price"`
	Stock        int              `json:"stock"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

// SettleFeesRequest 中 Amount 为空表示清零
type SettleFeesRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type PremiumRequest struct {
	Days int `json:"days"`
}

// OrderResponse 是订单的对外视图
type OrderResponse struct {
	ID                string              `json:"id"`
	BuyerID           string              `json:"buyerId"`
	SellerID          string              `json:"sellerId"`
	Status            domain.State        `json:"status"`
	Total             decimal.Decimal     `json:"total"`
	Items             []OrderItemResponse `json:"items"`
	DeliveryAddress   domain.Address      `json:"deliveryAddress"`
	FormattedAddress  string              `json:"formattedAddress,omitempty"`
	PlatformFee       *decimal.Decimal    `json:"platformFee,omitempty"`
	NetAmountToSeller *decimal.Decimal    `json:"netAmountToSeller,omitempty"`
	FeeSettled        bool                `json:"feeSettled"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

type OrderItemResponse struct {
	ID        string          `json:"id"`
	PartID    string          `json:"partId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func ToOrderResponse(o *domain.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:                o.ID,
		BuyerID:           o.BuyerID,
		SellerID:          o.SellerID,
		Status:            o.State,
		Total:             o.Total,
		Items:             make([]OrderItemResponse, 0, len(o.Items)),
		DeliveryAddress:   o.DeliveryAddress,
		PlatformFee:       o.PlatformFee,
		NetAmountToSeller: o.NetAmountToSeller,
		FeeSettled:        o.FeeSettled,
		PaidAt:            o.PaidAt,
		CreatedAt:         o.CreatedAt,
	}
	if !o.DeliveryAddress.IsZero() {
		resp.FormattedAddress = o.DeliveryAddress.Format()
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:        item.ID,
			PartID:    item.PartID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return resp
}

type TransactionResponse struct {
	ID        string                   `json:"id"`
	OrderID   string                   `json:"orderId"`
	Timestamp time.Time                `json:"timestamp"`
	Method    domain.PaymentMethod     `json:"method"`
	Status    domain.TransactionStatus `json:"status"`
	Reference string                   `json:"reference,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
}

func ToTransactionResponse(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        t.ID,
		OrderID:   t.OrderID,
		Timestamp: t.Timestamp,
		Method:    t.Method,
		Status:    t.Status,
		Reference: t.Reference,
		Reason:    t.Reason,
	}
}

type PartResponse struct {
	ID           string           `json:"id"`
	ResellerID   string           `json:"resellerId"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	Brand        string           `json:"brand,omitempty"`
	VehicleModel string           `json:"vehicleModel,omitempty"`
	Year         int              `json:"year,omitempty"`
	Condition    domain.Condition `json:"condition,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	Stock        int              `json:"stock"`
	Available    bool             `json:"available"`
}

func ToPartResponse(p *domain.Part) *PartResponse {
	return &PartResponse{
		ID:           p.ID,
		ResellerID:   p.ResellerID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Brand:        p.Brand,
		VehicleModel: p.VehicleModel,
		Year:         p.Year,
		Condition:    p.Condition,
		Price:        p.Price,
		Stock:        p.Stock,
		Available:    p.IsAvailable(),
	}
}

type AccountResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         domain.Role      `json:"role"`
	Active       bool             `json:"active"`
	StoreName    string           `json:"storeName,omitempty"`
	FeeBalance   *decimal.Decimal `json:"feeBalance,omitempty"`
	Premium      bool             `json:"premium"`
	PremiumUntil *time.Time       `json:"premiumUntil,omitempty"`
}

func ToAccountResponse(a *domain.Account, now time.Time) *AccountResponse {
	resp := &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Active:    a.Active,
		StoreName: a.StoreName,
	}
	if a.IsReseller() {
		balance := a.FeeBalance
		resp.FeeBalance = &balance
		resp.Premium = a.IsPremium(now)
		resp.PremiumUntil = a.PremiumUntil
	}
	return resp
}
