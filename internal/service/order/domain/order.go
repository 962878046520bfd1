// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem 是订单中的一行: 配件、数量与加入时的单价快照
type OrderItem struct {
	ID        string
	OrderID   string
	PartID    string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

func (i *OrderItem) recalculate() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order 是订单聚合的根实体，独占其明细
type Order struct {
	ID              string
	BuyerID         string
	SellerID        string
	Items           []*OrderItem // 按加入顺序
	Total           decimal.Decimal
	State           State
	DeliveryAddress Address

	// 支付确认时结算
	PlatformFee       *decimal.Decimal
	NetAmountToSeller *decimal.Decimal
	FeeSettled        bool
	PaidAt            *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// 工厂函数: NewOrder 创建一个 PENDING 状态的空订单
func NewOrder(id, buyerID, sellerID string, address Address, now time.Time) (*Order, error) {
	if id == "" || buyerID == "" || sellerID == "" {
		return nil, invalidArgument("order requires id, buyer and seller")
	}
	return &Order{
		ID:              id,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Total:           decimal.Zero,
		State:           StatePending,
		DeliveryAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) requirePending(action string) error {
	if o.State != StatePending {
		return orderStateError(o, action, "")
	}
	return nil
}

// RecalculateTotal 重新计算 total = Σ subtotal
func (o *Order) RecalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	o.Total = total
	return total
}

func (o *Order) Item(itemID string) (*OrderItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return nil, false
}

// AddItem 扣减配件库存并追加一行明细，单价取配件当前价格
func (o *Order) AddItem(itemID string, part *Part, quantity int, now time.Time) (*OrderItem, error) {
	if err := o.requirePending("add item"); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, invalidArgument("quantity must be positive, got %d", quantity)
	}
	if part.ResellerID != o.SellerID {
		return nil, invalidArgument("part %s is not sold by reseller %s", part.ID, o.SellerID)
	}
	if err := part.Debit(quantity); err != nil {
		return nil, err
	}

	item := &OrderItem{
		ID:        itemID,
		OrderID:   o.ID,
		PartID:    part.ID,
		Quantity:  quantity,
		UnitPrice: part.Price,
	}
	item.recalculate()
	o.Items = append(o.Items, item)
	o.RecalculateTotal()
	o.UpdatedAt = now
	return item, nil
}

// RemoveItem 移除该配件的全部明细，返回被移除的明细以便归还库存
func (o *Order) RemoveItem(partID string, now time.Time) ([]*OrderItem, error) {
	if err := o.requirePending("remove item"); err != nil {
		return nil, err
	}
	var kept, removed []*OrderItem
	for _, item := range o.Items {
		if item.PartID == partID {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) == 0 {
		return nil, &NotFoundError{Entity: "order item for part", ID: partID}
	}
	o.Items = kept
	o.RecalculateTotal()
	o.UpdatedAt = now
	return removed, nil
}

// UpdateItemQuantity 按差值扣减或归还库存，返回差值
func (o *Order) UpdateItemQuantity(itemID string, part *Part, quantity int, now time.Time) (int, error) {
	if err := o.requirePending("update item quantity"); err != nil {
		return 0, err
	}
	if quantity <= 0 {
		return 0, invalidArgument("quantity must be positive, got %d", quantity)
	}
	item, ok := o.Item(itemID)
	if !ok {
		return 0, &NotFoundError{Entity: "order item", ID: itemID}
	}
	if item.PartID != part.ID {
		return 0, invalidArgument("item %s does not reference part %s", itemID, part.ID)
	}

	delta := quantity - item.Quantity
	switch {
	case delta > 0:
		if err := part.Debit(delta); err != nil {
			return 0, err
		}
	case delta < 0:
		if err := part.Credit(-delta); err != nil {
			return 0, err
		}
	}

	item.Quantity = quantity
	item.recalculate()
	o.RecalculateTotal()
	o.UpdatedAt = now
	return delta, nil
}

// DeleteItem 删除一行明细并归还其数量
func (o *Order) DeleteItem(itemID string, part *Part, now time.Time) (*OrderItem, error) {
	if err := o.requirePending("delete item"); err != nil {
		return nil, err
	}
	idx := -1
	for i, item := range o.Items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &NotFoundError{Entity: "order item", ID: itemID}
	}
	item := o.Items[idx]
	if item.PartID != part.ID {
		return nil, invalidArgument("item %s does not reference part %s", itemID, part.ID)
	}
	if err := part.Credit(item.Quantity); err != nil {
		return nil, err
	}
	o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
	o.RecalculateTotal()
	o.UpdatedAt = now
	return item, nil
}

// ConfirmPayment 只做状态与时间戳变更，不触碰库存
func (o *Order) ConfirmPayment(now time.Time) error {
	if err := o.requirePending("confirm payment"); err != nil {
		return err
	}
	o.State = StateConfirmed
	paidAt := now
	o.PaidAt = &paidAt
	o.UpdatedAt = now
	return nil
}

// Cancel 取消订单。CANCELLED 是终态，DELIVERED 不可取消
func (o *Order) Cancel(now time.Time) error {
	if o.State != StatePending && o.State != StateConfirmed {
		return orderStateError(o, "cancel", "")
	}
	o.State = StateCancelled
	o.UpdatedAt = now
	return nil
}

// MarkDelivered 由外部履约事件触发
func (o *Order) MarkDelivered(now time.Time) error {
	if o.State != StateConfirmed {
		return orderStateError(o, "mark delivered", "")
	}
	o.State = StateDelivered
	o.UpdatedAt = now
	return nil
}

// SetStatus 是管理员的强制改写，订单取消后不再允许
func (o *Order) SetStatus(s State, now time.Time) error {
	if !s.Valid() {
		return invalidArgument("unknown order status %q", s)
	}
	if o.State == StateCancelled {
		return orderStateError(o, "set status to "+string(s), "cancelled orders are final")
	}
	o.State = s
	o.UpdatedAt = now
	return nil
}

// UpdateDeliveryAddress 合并地址补丁，发货前 (PENDING / CONFIRMED) 可改
func (o *Order) UpdateDeliveryAddress(patch Address, now time.Time) error {
	if o.State != StatePending && o.State != StateConfirmed {
		return orderStateError(o, "update delivery address", "")
	}
	o.DeliveryAddress = o.DeliveryAddress.Merge(patch)
	o.UpdatedAt = now
	return nil
}
