package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"partsmarket/internal/service/order/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"golang.org/x/sync/errgroup"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

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
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func openFileDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", filepath.Join(t.TempDir(), "parts.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func seedReseller(t *testing.T, db *gorm.DB) *domain.Account {
	t.Helper()
	a := &domain.Account{
		ID: uuid.NewString(), Name: "Loja", Email: uuid.NewString() + "@example.com", Role: domain.RoleReseller,
		Active: true, StoreName: "Loja Centro", FeeBalance: decimal.Zero, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewGormAccountRepository(db).Create(context.Background(), a))
	return a
}

func seedPart(t *testing.T, db *gorm.DB, resellerID string, price string, stock int) *domain.Part {
	t.Helper()
	p := &domain.Part{
		ID: uuid.NewString(), ResellerID: resellerID, Name: "Amortecedor", Category: "suspension",
		Condition: domain.ConditionRefurbished, Price: decimal.RequireFromString(price), Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewGormPartRepository(db).Create(context.Background(), p))
	return p
}

func TestPartRepository_AdjustStockGuardsNegative(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGormPartRepository(db)
	part := seedPart(t, db, seedReseller(t, db).ID, "99.90", 3)

	require.NoError(t, repo.AdjustStock(ctx, part.ID, -2))
	err := repo.AdjustStock(ctx, part.ID, -2)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	require.NoError(t, repo.AdjustStock(ctx, part.ID, 4))
	got, err := repo.FindByID(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("99.90")))
	assert.Equal(t, domain.ConditionRefurbished, got.Condition)

	assert.ErrorIs(t, repo.AdjustStock(ctx, "missing", -1), domain.ErrNotFound)
}

func TestPartRepository_DisabledPartCannotBeDebited(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGormPartRepository(db)
	part := seedPart(t, db, seedReseller(t, db).ID, "10", 3)

	part.Disable(now)
	require.NoError(t, repo.Save(ctx, part))

	err := repo.AdjustStock(ctx, part.ID, -1)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, stockErr.Available)

	require.NoError(t, repo.AdjustStock(ctx, part.ID, 1))
	available, err := repo.List(ctx, domain.PartFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestOrderRepository_SaveSyncsItems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGormOrderRepository(db)
	reseller := seedReseller(t, db)
	a := seedPart(t, db, reseller.ID, "50.00", 10)
	b := seedPart(t, db, reseller.ID, "25.00", 10)

	order, err := domain.NewOrder(uuid.NewString(), "buyer-1", reseller.ID, domain.Address{Street: "Rua B", City: "Natal"}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	_, err = order.AddItem(uuid.NewString(), a, 2, now)
	require.NoError(t, err)
	itemB, err := order.AddItem(uuid.NewString(), b, 2, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, a.ID, got.Items[0].PartID)
	assert.Equal(t, "150.00", got.Total.StringFixed(2))
	assert.Equal(t, "Natal", got.DeliveryAddress.City)
	assert.Nil(t, got.PlatformFee)

	_, err = got.DeleteItem(itemB.ID, b, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, got))

	got, err = repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "100.00", got.Total.StringFixed(2))

	_, err = repo.FindItemByID(ctx, itemB.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	items, err := repo.FindItemsByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOrderRepository_PersistsSettlement(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGormOrderRepository(db)
	reseller := seedReseller(t, db)
	part := seedPart(t, db, reseller.ID, "33.33", 5)

	order, err := domain.NewOrder(uuid.NewString(), "buyer-1", reseller.ID, domain.Address{}, now)
	require.NoError(t, err)
	_, err = order.AddItem(uuid.NewString(), part, 1, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, order.ConfirmPayment(now))
	_, err = domain.SettleFee(order, reseller, domain.DefaultFeeRate, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConfirmed, got.State)
	require.NotNil(t, got.PlatformFee)
	assert.Equal(t, "1.67", got.PlatformFee.StringFixed(2))
	assert.Equal(t, "31.66", got.NetAmountToSeller.StringFixed(2))
	assert.True(t, got.FeeSettled)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(now))

	listed, err := repo.List(ctx, domain.OrderFilter{SellerID: reseller.ID, State: domain.StateConfirmed})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestTransactionRepository_UniquePerOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGormTransactionRepository(db)

	first := &domain.Transaction{ID: uuid.NewString(), OrderID: "order-1", Timestamp: now, Method: domain.MethodPix, Status: domain.TxPending, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, first))

	second := &domain.Transaction{ID: uuid.NewString(), OrderID: "order-1", Timestamp: now, Method: domain.MethodCard, Status: domain.TxPending, UpdatedAt: now}
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionState)

	require.NoError(t, first.Refuse("insufficient funds", now))
	require.NoError(t, repo.Save(ctx, first))
	got, err := repo.FindByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TxRefused, got.Status)
	assert.Equal(t, "insufficient funds", got.Reason)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = NewGormTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := repo.FindByOrderIDForUpdate(ctx, "order-1")
		if err != nil {
			return err
		}
		assert.Equal(t, first.ID, locked.ID)
		_, err = repo.FindByOrderIDForUpdate(ctx, "order-2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestPartRepository_ConcurrentDebitsStopAtZero(t *testing.T) {
	db := openFileDB(t, 4)
	ctx := context.Background()
	repo := NewGormPartRepository(db)
	part := seedPart(t, db, seedReseller(t, db).ID, "12.00", 4)

	var debited, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			err := repo.AdjustStock(ctx, part.ID, -1)
			switch {
			case err == nil:
				debited.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 4, debited.Load())
	assert.EqualValues(t, 6, rejected.Load())
	got, err := repo.FindByID(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewGormAccountRepository(db)
	a := seedReseller(t, db)

	dup := *a
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrInvalidArgument)

	require.NoError(t, a.AccrueFee(decimal.RequireFromString("7.5"), now))
	require.NoError(t, repo.Save(ctx, a))
	got, err := repo.FindByIDForUpdate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "7.50", got.FeeBalance.StringFixed(2))
	assert.True(t, got.Active)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	parts := NewGormPartRepository(db)
	part := seedPart(t, db, seedReseller(t, db).ID, "10", 5)

	boom := errors.New("boom")
	err := NewGormTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
		if err := parts.AdjustStock(ctx, part.ID, -3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := parts.FindByID(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}
