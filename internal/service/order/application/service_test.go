package application_test

import (
	"testing"

	"partsmarket/internal/service/order/application"
	"partsmarket/internal/service/order/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItem_DebitsStockAndRejectsOversell(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "40.00", 5)
	o := f.order(t)

	o, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 3)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "120.00", o.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "120.00", o.Total.StringFixed(2))
	assert.Equal(t, 2, f.stock(t, part.ID))

	_, err = f.orders.AddItem(f.ctx, o.ID, part.ID, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	assert.Equal(t, 2, f.stock(t, part.ID))
	reloaded, err := f.orders.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 1)
	assert.Equal(t, "120.00", reloaded.Total.StringFixed(2))
}

func TestAddItem_SnapshotsUnitPrice(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "19.90", 10)
	o := f.order(t)

	o, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 2)
	require.NoError(t, err)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("19.90")))
	assert.Equal(t, "39.80", o.Total.StringFixed(2))
}

func TestAddItem_DisabledPartIsUnavailable(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "10.00", 5)
	_, err := f.catalog.DisablePart(f.ctx, part.ID)
	require.NoError(t, err)

	o := f.order(t)
	_, err = f.orders.AddItem(f.ctx, o.ID, part.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 5, f.stock(t, part.ID))
}

func TestUpdateItemQuantity_AdjustsStockByDelta(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "30.00", 5)
	o := f.order(t)

	o, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t, part.ID))
	itemID := o.Items[0].ID

	o, err = f.orders.UpdateItemQuantity(f.ctx, itemID, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, part.ID))
	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, "30.00", o.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", o.Total.StringFixed(2))

	o, err = f.orders.UpdateItemQuantity(f.ctx, itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, part.ID))
	assert.Equal(t, "150.00", o.Total.StringFixed(2))

	_, err = f.orders.UpdateItemQuantity(f.ctx, itemID, 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 0, f.stock(t, part.ID))
}

func TestDeleteAndRemoveItem_ReleaseStock(t *testing.T) {
	f := newFixture(t)
	brake := f.part(t, "50.00", 10)
	filter := f.part(t, "12.50", 10)
	o := f.order(t)

	o, err := f.orders.AddItem(f.ctx, o.ID, brake.ID, 4)
	require.NoError(t, err)
	o, err = f.orders.AddItem(f.ctx, o.ID, filter.ID, 2)
	require.NoError(t, err)
	require.Equal(t, "225.00", o.Total.StringFixed(2))

	var filterItem string
	for _, item := range o.Items {
		if item.PartID == filter.ID {
			filterItem = item.ID
		}
	}
	o, err = f.orders.DeleteItem(f.ctx, filterItem)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, filter.ID))
	assert.Equal(t, "200.00", o.Total.StringFixed(2))

	o, err = f.orders.RemoveItem(f.ctx, o.ID, brake.ID)
	require.NoError(t, err)
	assert.Empty(t, o.Items)
	assert.True(t, o.Total.IsZero())
	assert.Equal(t, 10, f.stock(t, brake.ID))

	_, err = f.orders.DeleteItem(f.ctx, filterItem)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateOrder_ValidatesParticipants(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.CreateOrder(f.ctx, &application.CreateOrderRequest{BuyerID: f.buyer.ID, SellerID: f.buyer.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.orders.CreateOrder(f.ctx, &application.CreateOrderRequest{BuyerID: "missing", SellerID: f.seller.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	o := f.order(t)
	assert.Equal(t, domain.StatePending, o.State)
	assert.Len(t, f.publisher.ofType(domain.EventOrderCreated), 1)
}

func TestConfirmPayment_SettlesFeeOnce(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "75.00", 4)
	o := f.order(t)
	_, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 2)
	require.NoError(t, err)

	o, err = f.orders.ConfirmPayment(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConfirmed, o.State)
	require.NotNil(t, o.PlatformFee)
	assert.Equal(t, "7.50", o.PlatformFee.StringFixed(2))
	assert.Equal(t, "142.50", o.NetAmountToSeller.StringFixed(2))
	assert.Equal(t, "7.50", f.feeBalance(t).StringFixed(2))
	assert.Equal(t, 2, f.stock(t, part.ID))

	_, err = f.orders.ConfirmPayment(f.ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
	assert.Equal(t, "7.50", f.feeBalance(t).StringFixed(2))

	reloaded, err := f.orders.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "7.50", reloaded.PlatformFee.StringFixed(2))
	assert.Len(t, f.publisher.ofType(domain.EventFeeAccrued), 1)
}

func TestCancelOrder_ReleasesStockAndBlocksPayment(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "20.00", 6)
	o := f.order(t)
	_, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 4)
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t, part.ID))

	o, err = f.orders.CancelOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, o.State)
	assert.Equal(t, 6, f.stock(t, part.ID))

	_, err = f.orders.ConfirmPayment(f.ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
	_, err = f.orders.AddItem(f.ctx, o.ID, part.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
	_, err = f.orders.CancelOrder(f.ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)

	status, err := f.orders.GetOrderStatus(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, status)
	assert.Equal(t, 6, f.stock(t, part.ID))
	assert.True(t, f.feeBalance(t).IsZero())
}

func TestCancelOrder_CancelsOpenTransaction(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "20.00", 6)
	o := f.order(t)
	_, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 1)
	require.NoError(t, err)
	tx, err := f.txs.CreateTransaction(f.ctx, &application.CreateTransactionRequest{OrderID: o.ID, Method: domain.MethodPix})
	require.NoError(t, err)
	_, err = f.txs.Process(f.ctx, tx.ID)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(f.ctx, o.ID)
	require.NoError(t, err)

	tx, err = f.txs.GetTransaction(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCancelled, tx.Status)
}

func TestUpdateStatus_CancelledRoutesThroughCancellation(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "15.00", 3)
	o := f.order(t)
	_, err := f.orders.AddItem(f.ctx, o.ID, part.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 0, f.stock(t, part.ID))

	o, err = f.orders.UpdateStatus(f.ctx, o.ID, domain.StateCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, o.State)
	assert.Equal(t, 3, f.stock(t, part.ID))

	_, err = f.orders.UpdateStatus(f.ctx, o.ID, domain.StateConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
}

func TestMarkDelivered(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "15.00", 3)
	o := f.order(t)

	_, err := f.orders.MarkDelivered(f.ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)

	o, _ = f.confirmedOrder(t, part, 1)
	o, err = f.orders.MarkDelivered(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDelivered, o.State)

	_, err = f.orders.CancelOrder(f.ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
}

func TestGetOrderStatus_ReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)

	status, err := f.orders.GetOrderStatus(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, status)

	// 缓存优先
	require.NoError(t, f.cache.SetStatus(f.ctx, o.ID, domain.StateDelivered))
	status, err = f.orders.GetOrderStatus(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDelivered, status)

	require.NoError(t, f.cache.Invalidate(f.ctx, o.ID))
	status, err = f.orders.GetOrderStatus(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, status)

	_, err = f.orders.GetOrderStatus(f.ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrders_Filters(t *testing.T) {
	f := newFixture(t)
	first := f.order(t)
	second := f.order(t)
	_, err := f.orders.CancelOrder(f.ctx, second.ID)
	require.NoError(t, err)

	all, err := f.orders.ListOrders(f.ctx, domain.OrderFilter{BuyerID: f.buyer.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.orders.ListOrders(f.ctx, domain.OrderFilter{State: domain.StatePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
}

func TestUpdateDeliveryAddress_MergesPatch(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)

	o, err := f.orders.UpdateDeliveryAddress(f.ctx, o.ID, domain.Address{Number: "200", Complement: "Apto 12"})
	require.NoError(t, err)
	assert.Equal(t, "Rua das Flores, 200 - Apto 12, Centro, Recife - PE, CEP: 50000-000", o.DeliveryAddress.Format())

	reloaded, err := f.orders.GetOrder(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apto 12", reloaded.DeliveryAddress.Complement)

	_, err = f.orders.CancelOrder(f.ctx, o.ID)
	require.NoError(t, err)
	_, err = f.orders.UpdateDeliveryAddress(f.ctx, o.ID, domain.Address{City: "Olinda"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
}
