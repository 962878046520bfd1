// internal/service/order/domain/repository.go
package domain

import "context"

// Transactor 在一个数据库事务中执行 fn，fn 内的仓储调用共享该事务
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type PartRepository interface {
	Create(ctx context.Context, part *Part) error
	// Save 更新除库存外的字段，库存只能通过 AdjustStock 修改
	Save(ctx context.Context, part *Part) error
	FindByID(ctx context.Context, id string) (*Part, error)
	// FindByIDForUpdate 读取并锁定行，直到事务结束
	FindByIDForUpdate(ctx context.Context, id string) (*Part, error)
	List(ctx context.Context, filter PartFilter) ([]*Part, error)
	// AdjustStock 原子地执行 stock += delta，结果为负时返回 *InsufficientStockError
	AdjustStock(ctx context.Context, id string, delta int) error
}

type PartFilter struct {
	ResellerID    string
	Category      string
	AvailableOnly bool
}

// OrderRepository 定义了订单聚合 (含明细) 的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	// Save 保存订单及其明细，不在 order.Items 中的明细会被删除
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Order, error)
	FindItemByID(ctx context.Context, itemID string) (*OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID string) ([]*OrderItem, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
}

type OrderFilter struct {
	BuyerID  string
	SellerID string
	State    State
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	Save(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Transaction, error)
	FindByOrderID(ctx context.Context, orderID string) (*Transaction, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
}

type TransactionFilter struct {
	Status TransactionStatus
	Method PaymentMethod
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByIDForUpdate(ctx context.Context, id string) (*Account, error)
}
