// Package inventory implements the inventory ledger: product records and the
// reservation/refund accounting that keeps stock non-negative under
// concurrent order traffic.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/order-inventory-service/internal/domain/product"
	"github.com/xenking/order-inventory-service/internal/storage"
)

// ErrProductInUse is returned when deleting a product that active orders
// still reference. Deletion is forbidden rather than cascade-refunded so
// live orders are never invalidated behind the customer's back.
var ErrProductInUse = errors.New("product is referenced by active orders")

// InsufficientStockError indicates a reservation request that exceeds the
// available stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Ledger owns product records and their stock counters. Every stock mutation
// goes through Reserve/Refund so that the reservation invariant holds.
type Ledger struct {
	store storage.Store
	now   func() time.Time
}

// NewLedger creates a Ledger backed by the given store.
func NewLedger(store storage.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// CreateProduct registers a new product. The SKU must be unique across all
// live products.
func (l *Ledger) CreateProduct(ctx context.Context, params product.Params) (product.Product, error) {
	var created product.Product
	err := l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.GetProductBySKU(ctx, params.SKU); err == nil {
			return &product.DuplicateSKUError{SKU: params.SKU}
		} else if !errors.Is(err, product.ErrNotFound) {
			return errors.Wrap(err, "check sku uniqueness")
		}

		now := l.now().UTC()
		created = product.Product{
			ID:         uuid.New().String(),
			SKU:        params.SKU,
			Name:       params.Name,
			BrandID:    params.BrandID,
			CategoryID: params.CategoryID,
			Stock:      params.Stock,
			Price:      params.Price,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.InsertProduct(ctx, created)
	})
	if err != nil {
		return product.Product{}, err
	}
	return created, nil
}

// UpdateProduct replaces the mutable fields of a product. A SKU that
// collides with a different product is rejected.
func (l *Ledger) UpdateProduct(ctx context.Context, id string, params product.Params) (product.Product, error) {
	var updated product.Product
	err := l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if params.SKU != p.SKU {
			if other, err := tx.GetProductBySKU(ctx, params.SKU); err == nil && other.ID != id {
				return &product.DuplicateSKUError{SKU: params.SKU}
			} else if err != nil && !errors.Is(err, product.ErrNotFound) {
				return errors.Wrap(err, "check sku uniqueness")
			}
		}

		p.SKU = params.SKU
		p.Name = params.Name
		p.BrandID = params.BrandID
		p.CategoryID = params.CategoryID
		p.Stock = params.Stock
		p.Price = params.Price
		p.UpdatedAt = l.now().UTC()

		updated = p
		return tx.UpdateProduct(ctx, p)
	})
	if err != nil {
		return product.Product{}, err
	}
	return updated, nil
}

// DeleteProduct removes a product. Products referenced by active orders
// cannot be deleted.
func (l *Ledger) DeleteProduct(ctx context.Context, id string) error {
	return l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.GetProductForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountActiveOrders(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrProductInUse
		}
		return tx.DeleteProduct(ctx, id)
	})
}

// GetProduct returns a product by id.
func (l *Ledger) GetProduct(ctx context.Context, id string) (product.Product, error) {
	var p product.Product
	err := l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// ListProducts returns all products in creation order.
func (l *Ledger) ListProducts(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	err := l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = tx.ListProducts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reserve atomically checks availability and decrements stock by quantity.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int) error {
	return l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return l.ReserveTx(ctx, tx, productID, quantity)
	})
}

// Refund atomically returns quantity to the product's stock.
func (l *Ledger) Refund(ctx context.Context, productID string, quantity int) error {
	return l.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return l.RefundTx(ctx, tx, productID, quantity)
	})
}

// ReserveTx performs a reservation inside a caller-owned transaction scope.
// The order manager uses this so the stock decrement and the order write
// commit together. The row lock taken here pins the stock counter for the
// rest of the scope, so two competing reservations serialize and the check
// can never be stale.
func (l *Ledger) ReserveTx(ctx context.Context, tx storage.Tx, productID string, quantity int) error {
	p, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock < quantity {
		return &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: p.Stock,
		}
	}
	return tx.AdjustStock(ctx, productID, -quantity)
}

// RefundTx reverses a reservation inside a caller-owned transaction scope.
// Refunding an amount that was never reserved is not detected here; callers
// own that bookkeeping.
func (l *Ledger) RefundTx(ctx context.Context, tx storage.Tx, productID string, quantity int) error {
	if _, err := tx.GetProductForUpdate(ctx, productID); err != nil {
		return err
	}
	return tx.AdjustStock(ctx, productID, quantity)
}
