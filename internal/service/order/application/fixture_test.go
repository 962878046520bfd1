package application_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"partsmarket/internal/service/order/application"
	"partsmarket/internal/service/order/domain"
	"partsmarket/internal/service/order/infrastructure"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type publishedEvent struct {
	Key       string
	EventType domain.EventType
	Payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, eventType domain.EventType, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Key: key, EventType: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) ofType(t domain.EventType) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

type memoryStatusCache struct {
	mu     sync.Mutex
	states map[string]domain.State
}

func (c *memoryStatusCache) GetStatus(_ context.Context, orderID string) (domain.State, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[orderID]
	return s, ok, nil
}

func (c *memoryStatusCache) SetStatus(_ context.Context, orderID string, state domain.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[orderID] = state
	return nil
}

func (c *memoryStatusCache) Invalidate(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, orderID)
	return nil
}

type fixture struct {
	ctx        context.Context
	db         *gorm.DB
	clock      *fakeClock
	publisher  *recordingPublisher
	cache      *memoryStatusCache
	orders     *application.OrderApplicationService
	txs        *application.TransactionApplicationService
	settlement *application.SettlementApplicationService
	catalog    *application.CatalogApplicationService
	buyer      *domain.Account
	seller     *domain.Account
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infrastructure.Migrate(context.Background(), db))
	return db
}

// openFileDB 使用文件库与多连接，事务以 BEGIN IMMEDIATE 开始，busy_timeout 等待写锁
func openFileDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", filepath.Join(t.TempDir(), "market.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infrastructure.Migrate(context.Background(), db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, openTestDB(t))
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		db:        db,
		clock:     &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
		cache:     &memoryStatusCache{states: map[string]domain.State{}},
	}

	tracer := noop.NewTracerProvider().Tracer("test")
	transactor := infrastructure.NewGormTransactor(db)
	orderRepo := infrastructure.NewGormOrderRepository(db)
	partRepo := infrastructure.NewGormPartRepository(db)
	txRepo := infrastructure.NewGormTransactionRepository(db)
	accountRepo := infrastructure.NewGormAccountRepository(db)
	cfg := application.DefaultConfig()

	f.orders = application.NewOrderApplicationService(transactor, orderRepo, partRepo, txRepo, accountRepo, f.publisher, f.cache, cfg, tracer)
	f.txs = application.NewTransactionApplicationService(transactor, txRepo, orderRepo, partRepo, accountRepo, f.publisher, f.cache, cfg, tracer)
	f.settlement = application.NewSettlementApplicationService(transactor, accountRepo, cfg, tracer)
	f.catalog = application.NewCatalogApplicationService(transactor, accountRepo, partRepo, tracer)
	f.orders.SetClock(f.clock.Now)
	f.txs.SetClock(f.clock.Now)
	f.settlement.SetClock(f.clock.Now)
	f.catalog.SetClock(f.clock.Now)

	var err error
	f.buyer, err = f.catalog.RegisterAccount(f.ctx, &application.RegisterAccountRequest{
		Name: "Maria", Email: "maria@example.com", Role: domain.RoleClient,
	})
	require.NoError(t, err)
	f.seller, err = f.catalog.RegisterAccount(f.ctx, &application.RegisterAccountRequest{
		Name: "João", Email: "joao@example.com", Role: domain.RoleReseller, StoreName: "Auto Peças do João", TaxID: "12345678000199",
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) part(t *testing.T, price string, stock int) *domain.Part {
	t.Helper()
	p, err := f.catalog.CreatePart(f.ctx, &application.CreatePartRequest{
		ResellerID: f.seller.ID,
		Name:       "Part " + price,
		Category:   "brakes",
		Condition:  domain.ConditionNew,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) order(t *testing.T) *domain.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(f.ctx, &application.CreateOrderRequest{
		BuyerID:  f.buyer.ID,
		SellerID: f.seller.ID,
		DeliveryAddress: domain.Address{
			Street: "Rua das Flores", Number: "100", District: "Centro", City: "Recife", State: "PE", ZipCode: "50000-000",
		},
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) stock(t *testing.T, partID string) int {
	t.Helper()
	p, err := f.catalog.GetPart(f.ctx, partID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) feeBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	b, err := f.settlement.GetFeeBalance(f.ctx, f.seller.ID)
	require.NoError(t, err)
	return b
}

// confirmedOrder 返回一个已支付确认的订单及其交易
func (f *fixture) confirmedOrder(t *testing.T, part *domain.Part, quantity int) (*domain.Order, *domain.Transaction) {
	t.Helper()
	o := f.order(t)
	_, err := f.orders.AddItem(f.ctx, o.ID, part.ID, quantity)
	require.NoError(t, err)
	tx, err := f.txs.CreateTransaction(f.ctx, &application.CreateTransactionRequest{OrderID: o.ID, Method: domain.MethodCard, Reference: "ref-" + o.ID})
	require.NoError(t, err)
	_, err = f.txs.Process(f.ctx, tx.ID)
	require.NoError(t, err)
	tx, err = f.txs.Confirm(f.ctx, tx.ID)
	require.NoError(t, err)
	o, err = f.orders.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	return o, tx
}
