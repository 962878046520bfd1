package infrastructure

import (
	"partsmarket/internal/service/order/domain"

	"github.com/shopspring/decimal"
)

func toAddressColumns(a domain.Address) AddressColumns {
	return AddressColumns(a)
}

func toDomainAddress(c AddressColumns) domain.Address {
	return domain.Address(c)
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func fromNullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

// ToDomainPart 将数据库模型转换为领域模型
func ToDomainPart(m *PartModel) *domain.Part {
	if m == nil {
		return nil
	}
	return &domain.Part{
		ID:           m.ID,
		ResellerID:   m.ResellerID,
		Name:         m.Name,
		Description:  m.Description,
		Category:     m.Category,
		Brand:        m.Brand,
		VehicleModel: m.VehicleModel,
		Year:         m.Year,
		Condition:    domain.Condition(m.Condition),
		Price:        m.Price,
		Stock:        m.Stock,
		Disabled:     m.Disabled,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func FromDomainPart(p *domain.Part) *PartModel {
	return &PartModel{
		ID:           p.ID,
		ResellerID:   p.ResellerID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Brand:        p.Brand,
		VehicleModel: p.VehicleModel,
		Year:         p.Year,
		Condition:    string(p.Condition),
		Price:        p.Price,
		Stock:        p.Stock,
		Disabled:     p.Disabled,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func ToDomainOrderItem(m *OrderItemModel) *domain.OrderItem {
	return &domain.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		PartID:    m.PartID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Subtotal:  m.Subtotal,
	}
}

// ToDomainOrder 明细顺序沿用模型中的顺序 (已按 position 预加载)
func ToDomainOrder(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}
	o := &domain.Order{
		ID:                m.ID,
		BuyerID:           m.BuyerID,
		SellerID:          m.SellerID,
		Total:             m.Total,
		State:             domain.State(m.State),
		DeliveryAddress:   toDomainAddress(m.Delivery),
		PlatformFee:       fromNullDecimal(m.PlatformFee),
		NetAmountToSeller: fromNullDecimal(m.NetAmountToSeller),
		FeeSettled:        m.FeeSettled,
		PaidAt:            m.PaidAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for i := range m.Items {
		o.Items = append(o.Items, ToDomainOrderItem(&m.Items[i]))
	}
	return o
}

func FromDomainOrder(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:                o.ID,
		BuyerID:           o.BuyerID,
		SellerID:          o.SellerID,
		Total:             o.Total,
		State:             string(o.State),
		Delivery:          toAddressColumns(o.DeliveryAddress),
		PlatformFee:       toNullDecimal(o.PlatformFee),
		NetAmountToSeller: toNullDecimal(o.NetAmountToSeller),
		FeeSettled:        o.FeeSettled,
		PaidAt:            o.PaidAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for i, item := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:        item.ID,
			OrderID:   o.ID,
			PartID:    item.PartID,
			Position:  i,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return m
}

func ToDomainTransaction(m *TransactionModel) *domain.Transaction {
	if m == nil {
		return nil
	}
	return &domain.Transaction{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Timestamp: m.Timestamp,
		Method:    domain.PaymentMethod(m.Method),
		Status:    domain.TransactionStatus(m.Status),
		Reference: m.Reference,
		Reason:    m.Reason,
		UpdatedAt: m.UpdatedAt,
	}
}

func FromDomainTransaction(t *domain.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:        t.ID,
		OrderID:   t.OrderID,
		Timestamp: t.Timestamp,
		Method:    string(t.Method),
		Status:    string(t.Status),
		Reference: t.Reference,
		Reason:    t.Reason,
		UpdatedAt: t.UpdatedAt,
	}
}

func ToDomainAccount(m *AccountModel) *domain.Account {
	if m == nil {
		return nil
	}
	return &domain.Account{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Role:          domain.Role(m.Role),
		Active:        m.Active,
		Address:       toDomainAddress(m.Address),
		StoreName:     m.StoreName,
		TaxID:         m.TaxID,
		FeeBalance:    m.FeeBalance,
		PremiumActive: m.PremiumActive,
		PremiumUntil:  m.PremiumUntil,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func FromDomainAccount(a *domain.Account) *AccountModel {
	return &AccountModel{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Phone:         a.Phone,
		Role:          string(a.Role),
		Active:        a.Active,
		Address:       toAddressColumns(a.Address),
		StoreName:     a.StoreName,
		TaxID:         a.TaxID,
		FeeBalance:    a.FeeBalance,
		PremiumActive: a.PremiumActive,
		PremiumUntil:  a.PremiumUntil,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
