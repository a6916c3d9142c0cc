// Package memory implements storage.Store with plain maps guarded by a
// single mutex. A transaction works on a copy of the state and is swapped in
// on commit, so a failed callback leaves the store untouched.
//
// The global mutex trivially satisfies the atomicity contract: no two scopes
// run concurrently at all. That is plenty for tests and single-node use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/domain/product"
	"github.com/xenking/order-inventory-service/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is an in-memory storage engine.
type Store struct {
	mu       sync.Mutex
	products map[string]product.Product
	orders   map[string]order.Order
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		products: make(map[string]product.Product),
		orders:   make(map[string]order.Order),
	}
}

// Atomic runs fn against a copy of the current state and commits the copy
// only when fn returns nil.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		products: cloneMap(s.products),
		orders:   cloneMap(s.orders),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.products = tx.products
	s.orders = tx.orders
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx implements storage.Tx over the copied state.
type memTx struct {
	products map[string]product.Product
	orders   map[string]order.Order
}

var _ storage.Tx = (*memTx)(nil)

func (t *memTx) GetProduct(_ context.Context, id string) (product.Product, error) {
	p, ok := t.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

// GetProductForUpdate is identical to GetProduct: the store-wide mutex
// already excludes every other writer.
func (t *memTx) GetProductForUpdate(ctx context.Context, id string) (product.Product, error) {
	return t.GetProduct(ctx, id)
}

func (t *memTx) GetProductBySKU(_ context.Context, sku string) (product.Product, error) {
	for _, p := range t.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return product.Product{}, product.ErrNotFound
}

func (t *memTx) ListProducts(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(t.products))
	for _, p := range t.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memTx) InsertProduct(_ context.Context, p product.Product) error {
	if _, ok := t.products[p.ID]; ok {
		return errors.Errorf("product %q already exists", p.ID)
	}
	t.products[p.ID] = p
	return nil
}

func (t *memTx) UpdateProduct(_ context.Context, p product.Product) error {
	if _, ok := t.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	t.products[p.ID] = p
	return nil
}

func (t *memTx) DeleteProduct(_ context.Context, id string) error {
	if _, ok := t.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(t.products, id)
	return nil
}

func (t *memTx) AdjustStock(_ context.Context, id string, delta int) error {
	p, ok := t.products[id]
	if !ok {
		return product.ErrNotFound
	}
	next := p.Stock + delta
	if next < 0 {
		return errors.Errorf("stock for product %q would become negative (%d)", id, next)
	}
	p.Stock = next
	t.products[id] = p
	return nil
}

func (t *memTx) GetOrder(_ context.Context, id string) (order.Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, id string) (order.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *memTx) ListOrders(_ context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, len(t.orders))
	for _, o := range t.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memTx) InsertOrder(_ context.Context, o order.Order) error {
	if _, ok := t.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	t.orders[o.ID] = o
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, o order.Order) error {
	if _, ok := t.orders[o.ID]; !ok {
		return order.ErrNotFound
	}
	t.orders[o.ID] = o
	return nil
}

func (t *memTx) DeleteOrder(_ context.Context, id string) error {
	if _, ok := t.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(t.orders, id)
	return nil
}

func (t *memTx) CountActiveOrders(_ context.Context, productID string) (int, error) {
	n := 0
	for _, o := range t.orders {
		if o.ProductID == productID && o.Active() {
			n++
		}
	}
	return n, nil
}
