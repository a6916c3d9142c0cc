package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/domain/product"
	"github.com/xenking/order-inventory-service/internal/inventory"
	"github.com/xenking/order-inventory-service/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []order.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev order.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []order.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]order.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	ledger  *inventory.Ledger
	manager *Manager
	pub     *recordingPublisher
}

func newFixture() *fixture {
	store := memory.New()
	ledger := inventory.NewLedger(store)
	pub := &recordingPublisher{}
	return &fixture{
		ledger:  ledger,
		manager: NewManager(store, ledger, pub),
		pub:     pub,
	}
}

func (f *fixture) addProduct(t *testing.T, sku string, stock int, price string) product.Product {
	t.Helper()
	p, err := f.ledger.CreateProduct(context.Background(), product.Params{
		SKU:   sku,
		Name:  "Product " + sku,
		Stock: stock,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.ledger.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")

	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{
		ProductID:  p.ID,
		Quantity:   3,
		CustomerID: "cust-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, p.ID, o.ProductID)
	assert.Equal(t, 3, o.Quantity)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("15.00")), "total = %s", o.Total)
	assert.Equal(t, 7, f.stock(t, p.ID))
	assert.Equal(t, []order.EventType{order.EventCreated}, f.pub.types())
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")

	_, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{
		ProductID: p.ID,
		Quantity:  11,
	})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 11, insufficient.Requested)
	assert.Equal(t, 10, insufficient.Available)

	// No order record, no stock movement, no event.
	all, err := f.manager.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 10, f.stock(t, p.ID))
	assert.Empty(t, f.pub.types())
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{
		ProductID: "missing",
		Quantity:  1,
	})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestUpdateOrder_IncreaseQuantity(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	updated, err := f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: p.ID,
		Quantity:  5,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("25.00")))
	// Only the delta of 2 is taken on top of the 3 already held.
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestUpdateOrder_DecreaseQuantity(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 5})
	require.NoError(t, err)

	updated, err := f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: p.ID,
		Quantity:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 8, f.stock(t, p.ID))
}

func TestUpdateOrder_QuantityOnly(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	// No product id: the order keeps its current product.
	updated, err := f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		Quantity: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, p.ID, updated.ProductID)
	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestUpdateOrder_Unchanged(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	updated, err := f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: p.ID,
		Quantity:  3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, 7, f.stock(t, p.ID), "stock must not move on a no-op update")
}

func TestUpdateOrder_SwitchProduct(t *testing.T) {
	f := newFixture()
	pa := f.addProduct(t, "A", 10, "5.00")
	pb := f.addProduct(t, "B", 10, "2.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: pa.ID, Quantity: 3})
	require.NoError(t, err)

	updated, err := f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: pb.ID,
		Quantity:  4,
	})
	require.NoError(t, err)

	assert.Equal(t, pb.ID, updated.ProductID)
	assert.Equal(t, 4, updated.Quantity)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("8.00")))
	assert.Equal(t, 10, f.stock(t, pa.ID), "old product fully refunded")
	assert.Equal(t, 6, f.stock(t, pb.ID), "new product reserved")
}

func TestUpdateOrder_FailedSwitchKeepsOldReservation(t *testing.T) {
	f := newFixture()
	pa := f.addProduct(t, "A", 10, "5.00")
	pb := f.addProduct(t, "B", 2, "2.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: pa.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: pb.ID,
		Quantity:  5,
	})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// Order and both stock counters are exactly as before the attempt.
	got, err := f.manager.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, pa.ID, got.ProductID)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 7, f.stock(t, pa.ID))
	assert.Equal(t, 2, f.stock(t, pb.ID))
}

func TestUpdateOrder_FailedIncreaseKeepsOldReservation(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: p.ID,
		Quantity:  20,
	})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	// Only the delta of 17 was requested against the 7 still available.
	assert.Equal(t, 17, insufficient.Requested)

	got, err := f.manager.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 7, f.stock(t, p.ID))
}

func TestUpdateOrder_RejectedWhenNotPending(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{
		ProductID: p.ID,
		Quantity:  5,
	})

	var invalid *order.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, order.StatusPaid, invalid.Status)
	assert.Equal(t, 7, f.stock(t, p.ID))
}

func TestUpdateOrder_NotFound(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")

	_, err := f.manager.UpdateOrder(context.Background(), "missing", UpdateOrderRequest{
		ProductID: p.ID,
		Quantity:  1,
	})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	canceled, err := f.manager.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, order.StatusCanceled, canceled.Status)
	assert.Equal(t, 10, f.stock(t, p.ID), "cancellation refunds the reservation")

	// The record survives cancellation.
	got, err := f.manager.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, got.Status)
}

func TestCancelOrder_Terminal(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = f.manager.CancelOrder(context.Background(), o.ID)

	var invalid *order.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 10, f.stock(t, p.ID), "second cancel must not double-refund")
}

func TestCancelOrder_AfterPaidRejected(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = f.manager.CancelOrder(context.Background(), o.ID)

	var invalid *order.InvalidStateError
	require.ErrorAs(t, err, &invalid)
}

func TestDeleteOrder_RefundsStock(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, f.manager.DeleteOrder(context.Background(), o.ID))

	assert.Equal(t, 10, f.stock(t, p.ID))
	_, err = f.manager.GetOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestDeleteOrder_CanceledHoldsNoReservation(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err)

	require.NoError(t, f.manager.DeleteOrder(context.Background(), o.ID))

	assert.Equal(t, 10, f.stock(t, p.ID), "deleting a canceled order must not refund twice")
}

func TestDeleteOrder_NotFound(t *testing.T) {
	f := newFixture()
	require.ErrorIs(t, f.manager.DeleteOrder(context.Background(), "missing"), order.ErrNotFound)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	paid, err := f.manager.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)
}

func TestMarkPaid_Twice(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = f.manager.MarkPaid(context.Background(), o.ID)

	var invalid *order.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, order.StatusPaid, invalid.Status)
}

func TestMarkShipped(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)

	shipped, err := f.manager.MarkShipped(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, shipped.Status)
}

func TestMarkShipped_FromPendingRejected(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = f.manager.MarkShipped(context.Background(), o.ID)

	var invalid *order.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, order.StatusPending, invalid.Status)
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o1, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	o2, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	all, err := f.manager.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	ids := []string{all[0].ID, all[1].ID}
	assert.Contains(t, ids, o1.ID)
	assert.Contains(t, ids, o2.ID)
}

func TestLifecycleEvents(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")

	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.UpdateOrder(context.Background(), o.ID, UpdateOrderRequest{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)
	_, err = f.manager.MarkPaid(context.Background(), o.ID)
	require.NoError(t, err)
	_, err = f.manager.MarkShipped(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, []order.EventType{
		order.EventCreated,
		order.EventUpdated,
		order.EventPaid,
		order.EventShipped,
	}, f.pub.types())

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, o.ID, last.Order.ID)
	assert.NotEmpty(t, last.ID)
	assert.False(t, last.OccurredAt.IsZero())
}

func TestFailedOperationEmitsNoEvent(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 1, "5.00")

	_, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 2})
	require.Error(t, err)
	assert.Empty(t, f.pub.types())
}

// Two concurrent orders both asking for the full stock: exactly one is
// created, the other fails with InsufficientStockError, and stock ends at
// zero.
func TestConcurrentPlaceOrder(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 5, "5.00")

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{
				ProductID: p.ID,
				Quantity:  5,
			})
		}(i)
	}
	wg.Wait()

	var okCount, insufficientCount int
	for _, err := range errs {
		var insufficient *inventory.InsufficientStockError
		switch {
		case err == nil:
			okCount++
		case errors.As(err, &insufficient):
			insufficientCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, insufficientCount)
	assert.Equal(t, 0, f.stock(t, p.ID))

	all, err := f.manager.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteProduct_BlockedByActiveOrder(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.DeleteProduct(context.Background(), p.ID), inventory.ErrProductInUse)

	// Once the order is gone the product can be deleted.
	require.NoError(t, f.manager.DeleteOrder(context.Background(), o.ID))
	require.NoError(t, f.ledger.DeleteProduct(context.Background(), p.ID))
}

func TestDeleteProduct_AllowedWithCanceledOrder(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "X1", 10, "5.00")
	o, err := f.manager.PlaceOrder(context.Background(), PlaceOrderRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.manager.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err)

	require.NoError(t, f.ledger.DeleteProduct(context.Background(), p.ID))
}
