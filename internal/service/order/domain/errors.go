// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidOrderState       = errors.New("invalid order state")
	ErrInvalidTransactionState = errors.New("invalid transaction state")
	ErrPayment                 = errors.New("payment error")
	ErrInvalidArgument         = errors.New("invalid argument")
)

// InsufficientStockError 携带可用数量与请求数量
type InsufficientStockError struct {
	PartID    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for part %s: available %d, requested %d", e.PartID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StateError 表示实体在当前状态下不允许执行某个动作
type StateError struct {
	Entity string // "order" 或 "transaction"
	ID     string
	From   string
	Action string
	Hint   string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot %s from status %s", e.Entity, e.ID, e.Action, e.From)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *StateError) Is(target error) bool {
	switch e.Entity {
	case "order":
		return target == ErrInvalidOrderState
	case "transaction":
		return target == ErrInvalidTransactionState
	}
	return false
}

func orderStateError(o *Order, action, hint string) error {
	return &StateError{Entity: "order", ID: o.ID, From: string(o.State), Action: action, Hint: hint}
}

func txStateError(t *Transaction, action, hint string) error {
	return &StateError{Entity: "transaction", ID: t.ID, From: string(t.Status), Action: action, Hint: hint}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PaymentError 覆盖支付网关相关的失败: 拒付、超时、超出撤销窗口
type PaymentError struct {
	TransactionID string
	Reason        string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment error on transaction %s: %s", e.TransactionID, e.Reason)
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrPayment
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
