// Package orders implements the order lifecycle manager. Every mutation
// pairs the order record change with the matching stock reservation or
// refund inside one storage transaction, so the reservation invariant (one
// active reservation per active order) survives any failure or interleaving.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/inventory"
	"github.com/xenking/order-inventory-service/internal/storage"
)

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	ProductID  string
	Quantity   int
	CustomerID string
}

// UpdateOrderRequest holds the new (product, quantity) pair for an order
// update. Only PENDING orders may change. An empty ProductID keeps the
// order's current product, so quantity-only updates need not echo it.
type UpdateOrderRequest struct {
	ProductID string
	Quantity  int
}

// Manager drives order state transitions and the compensating stock
// movements that accompany them.
type Manager struct {
	store  storage.Store
	ledger *inventory.Ledger
	pub    order.Publisher
	now    func() time.Time
}

// NewManager creates a Manager. The ledger must share the same store so
// reservations commit together with order writes. A nil publisher disables
// event emission.
func NewManager(store storage.Store, ledger *inventory.Ledger, pub order.Publisher) *Manager {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Manager{
		store:  store,
		ledger: ledger,
		pub:    pub,
		now:    time.Now,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, order.Event) {}

func (m *Manager) emit(ctx context.Context, typ order.EventType, o order.Order) {
	m.pub.Publish(ctx, order.Event{
		ID:         uuid.New().String(),
		Type:       typ,
		OccurredAt: m.now().UTC(),
		Order:      order.Snap(o),
	})
}

func total(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// PlaceOrder reserves stock and creates a PENDING order in one atomic unit.
// If the reservation fails no order record is created.
func (m *Manager) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (order.Order, error) {
	var o order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := m.ledger.ReserveTx(ctx, tx, req.ProductID, req.Quantity); err != nil {
			return err
		}

		p, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}

		now := m.now().UTC()
		o = order.Order{
			ID:         uuid.New().String(),
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			Total:      total(p.Price, req.Quantity),
			Status:     order.StatusPending,
			CustomerID: req.CustomerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return order.Order{}, err
	}

	m.emit(ctx, order.EventCreated, o)
	return o, nil
}

// UpdateOrder moves an order's reservation to a new (product, quantity)
// pair. The new reservation is taken before the old one is released, and
// both happen in the same transaction as the order write: if anything fails
// the rollback restores the old reservation untouched.
func (m *Manager) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (order.Order, error) {
	var updated order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != order.StatusPending {
			return &order.InvalidStateError{Status: o.Status, Op: "update"}
		}

		if req.ProductID == "" {
			req.ProductID = o.ProductID
		}

		switch {
		case req.ProductID == o.ProductID && req.Quantity == o.Quantity:
			// Nothing reserved or refunded; stock must not move.
		case req.ProductID == o.ProductID:
			// Same product: settle the difference only. Reserving the full
			// new amount would double-count the quantity this order already
			// holds.
			delta := req.Quantity - o.Quantity
			if delta > 0 {
				err = m.ledger.ReserveTx(ctx, tx, o.ProductID, delta)
			} else {
				err = m.ledger.RefundTx(ctx, tx, o.ProductID, -delta)
			}
			if err != nil {
				return err
			}
		default:
			if err := m.ledger.ReserveTx(ctx, tx, req.ProductID, req.Quantity); err != nil {
				return err
			}
			if err := m.ledger.RefundTx(ctx, tx, o.ProductID, o.Quantity); err != nil {
				return err
			}
		}

		p, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}

		o.ProductID = req.ProductID
		o.Quantity = req.Quantity
		o.Total = total(p.Price, req.Quantity)
		o.UpdatedAt = m.now().UTC()

		updated = o
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		return order.Order{}, err
	}

	m.emit(ctx, order.EventUpdated, updated)
	return updated, nil
}

// CancelOrder refunds the reservation and marks the order CANCELED. The
// record stays around; CANCELED is terminal.
func (m *Manager) CancelOrder(ctx context.Context, id string) (order.Order, error) {
	var canceled order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !order.CanTransition(o.Status, order.StatusCanceled) {
			return &order.InvalidStateError{Status: o.Status, Op: "cancel"}
		}

		if err := m.ledger.RefundTx(ctx, tx, o.ProductID, o.Quantity); err != nil {
			return err
		}

		o.Status = order.StatusCanceled
		o.UpdatedAt = m.now().UTC()
		canceled = o
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		return order.Order{}, err
	}

	m.emit(ctx, order.EventCanceled, canceled)
	return canceled, nil
}

// DeleteOrder refunds the reservation (unless the order was already
// CANCELED and holds none) and removes the record.
func (m *Manager) DeleteOrder(ctx context.Context, id string) error {
	var deleted order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if o.Active() {
			if err := m.ledger.RefundTx(ctx, tx, o.ProductID, o.Quantity); err != nil {
				return err
			}
		}

		deleted = o
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}

	m.emit(ctx, order.EventDeleted, deleted)
	return nil
}

// MarkPaid advances a PENDING order to PAID. Driven by the external payment
// notification; any other starting status is rejected.
func (m *Manager) MarkPaid(ctx context.Context, id string) (order.Order, error) {
	o, err := m.transition(ctx, id, order.StatusPaid, "mark paid")
	if err != nil {
		return order.Order{}, err
	}
	m.emit(ctx, order.EventPaid, o)
	return o, nil
}

// MarkShipped advances a PAID order to SHIPPED.
func (m *Manager) MarkShipped(ctx context.Context, id string) (order.Order, error) {
	o, err := m.transition(ctx, id, order.StatusShipped, "mark shipped")
	if err != nil {
		return order.Order{}, err
	}
	m.emit(ctx, order.EventShipped, o)
	return o, nil
}

func (m *Manager) transition(ctx context.Context, id string, to order.Status, op string) (order.Order, error) {
	var out order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !order.CanTransition(o.Status, to) {
			return &order.InvalidStateError{Status: o.Status, Op: op}
		}
		o.Status = to
		o.UpdatedAt = m.now().UTC()
		out = o
		return tx.UpdateOrder(ctx, o)
	})
	if err != nil {
		return order.Order{}, err
	}
	return out, nil
}

// GetOrder returns an order by id.
func (m *Manager) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var o order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

// ListOrders returns all orders in creation order.
func (m *Manager) ListOrders(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	err := m.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = tx.ListOrders(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
