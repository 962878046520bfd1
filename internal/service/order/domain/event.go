// internal/service/order/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType 是对外发布的领域事件类型
type EventType string

const (
	EventOrderCreated             EventType = "order.created"
	EventOrderStatusChanged       EventType = "order.status_changed"
	EventTransactionStatusChanged EventType = "transaction.status_changed"
	EventFeeAccrued               EventType = "fee.accrued"
)

// OrderStatusChanged 在订单状态变化 (含创建) 后发布
type OrderStatusChanged struct {
	OrderID    string          `json:"orderId"`
	BuyerID    string          `json:"buyerId"`
	SellerID   string          `json:"sellerId"`
	Status     State           `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type TransactionStatusChanged struct {
	TransactionID string            `json:"transactionId"`
	OrderID       string            `json:"orderId"`
	Status        TransactionStatus `json:"status"`
	Method        PaymentMethod     `json:"method"`
	Reason        string            `json:"reason,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

type FeeAccrued struct {
	OrderID    string          `json:"orderId"`
	ResellerID string          `json:"resellerId"`
	Fee        decimal.Decimal `json:"fee"`
	NetAmount  decimal.Decimal `json:"netAmount"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// PaymentOutcome 是支付网关回传的结果
type PaymentOutcome string

const (
	OutcomeApproved PaymentOutcome = "APPROVED"
	OutcomeDeclined PaymentOutcome = "DECLINED"
)

// PaymentResultReceived 是从网关结果主题消费的事件
type PaymentResultReceived struct {
	EventID       string         `json:"eventId"`
	TransactionID string         `json:"transactionId"`
	Outcome       PaymentOutcome `json:"outcome"`
	Reason        string         `json:"reason,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
}
