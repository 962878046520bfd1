// internal/service/order/domain/transaction.go
package domain

import (
	"time"
)

// DefaultReversalWindow 是确认后允许撤销的时长
const DefaultReversalWindow = 30 * 24 * time.Hour

// Transaction 是与订单一一对应的支付记录
type Transaction struct {
	ID        string
	OrderID   string
	Timestamp time.Time // 创建时间，也是撤销窗口的起点
	Method    PaymentMethod
	Status    TransactionStatus
	Reference string
	Reason    string // 拒付原因
	UpdatedAt time.Time
}

// NewTransaction 仅允许为 PENDING 订单创建交易
func NewTransaction(id string, order *Order, method PaymentMethod, reference string, now time.Time) (*Transaction, error) {
	if order.State != StatePending {
		return nil, orderStateError(order, "create transaction", "order already processed")
	}
	if !method.Valid() {
		return nil, invalidArgument("unknown payment method %q", method)
	}
	return &Transaction{
		ID:        id,
		OrderID:   order.ID,
		Timestamp: now,
		Method:    method,
		Status:    TxPending,
		Reference: reference,
		UpdatedAt: now,
	}, nil
}

func (t *Transaction) transition(from []TransactionStatus, to TransactionStatus, action, hint string, now time.Time) error {
	for _, s := range from {
		if t.Status == s {
			t.Status = to
			t.UpdatedAt = now
			return nil
		}
	}
	return txStateError(t, action, hint)
}

func (t *Transaction) Process(now time.Time) error {
	return t.transition([]TransactionStatus{TxPending}, TxProcessing, "process", "", now)
}

// Confirm 只变更交易本身；订单确认与费用结算由应用服务在同一事务中完成
func (t *Transaction) Confirm(now time.Time) error {
	return t.transition([]TransactionStatus{TxProcessing}, TxConfirmed, "confirm", "", now)
}

func (t *Transaction) Refuse(reason string, now time.Time) error {
	if err := t.transition([]TransactionStatus{TxPending, TxProcessing}, TxRefused, "refuse", "", now); err != nil {
		return err
	}
	t.Reason = reason
	return nil
}

func (t *Transaction) Cancel(now time.Time) error {
	hint := ""
	if t.Status == TxConfirmed {
		hint = "confirmed transactions must be reversed"
	}
	return t.transition([]TransactionStatus{TxPending, TxProcessing}, TxCancelled, "cancel", hint, now)
}

// CanReverse 要求严格早于 Timestamp + window，恰好到期即不可撤销
func (t *Transaction) CanReverse(now time.Time, window time.Duration) bool {
	return t.Status == TxConfirmed && now.Before(t.Timestamp.Add(window))
}

func (t *Transaction) Reverse(now time.Time, window time.Duration) error {
	if t.Status != TxConfirmed {
		return txStateError(t, "reverse", "")
	}
	if !now.Before(t.Timestamp.Add(window)) {
		return &PaymentError{TransactionID: t.ID, Reason: "outside reversal window"}
	}
	t.Status = TxReversed
	t.UpdatedAt = now
	return nil
}
