// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态
type State string

const (
	StatePending   State = "PENDING"   // 初始状态，可增删明细
	StateConfirmed State = "CONFIRMED" // 支付已确认
	StateCancelled State = "CANCELLED" // 已取消 (终态)
	StateDelivered State = "DELIVERED" // 已交付 (终态)
)

func (s State) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateCancelled, StateDelivered:
		return true
	}
	return false
}

// TransactionStatus 定义了支付交易的状态
type TransactionStatus string

const (
	TxPending    TransactionStatus = "PENDING"
	TxProcessing TransactionStatus = "PROCESSING"
	TxConfirmed  TransactionStatus = "CONFIRMED"
	TxRefused    TransactionStatus = "REFUSED"
	TxCancelled  TransactionStatus = "CANCELLED"
	TxReversed   TransactionStatus = "REVERSED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxProcessing, TxConfirmed, TxRefused, TxCancelled, TxReversed:
		return true
	}
	return false
}

// PaymentMethod 对核心流程来说只是一个标签
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "CARD"
	MethodPix    PaymentMethod = "PIX"
	MethodBoleto PaymentMethod = "BOLETO"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodPix, MethodBoleto:
		return true
	}
	return false
}
