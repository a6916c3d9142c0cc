// Package storage defines the transactional persistence boundary shared by
// the inventory ledger and the order lifecycle manager.
//
// All mutations flow through Store.Atomic: the callback either commits as a
// whole or leaves no trace. A Tx sees both products and orders so that a
// stock adjustment and the order mutation it pays for share one commit.
package storage

import (
	"context"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/domain/product"
)

// Store is the storage engine contract. Implementations must guarantee that
// two concurrent Atomic scopes touching the same product cannot interleave
// between its stock check and stock write.
type Store interface {
	// Atomic runs fn inside a transaction. A non-nil error from fn rolls the
	// transaction back and is returned unchanged.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available inside an atomic scope.
//
// Lookup methods return product.ErrNotFound / order.ErrNotFound (possibly
// wrapped) when the row is absent. The ForUpdate variants additionally take a
// write lock on the row for the remainder of the scope.
type Tx interface {
	GetProduct(ctx context.Context, id string) (product.Product, error)
	GetProductForUpdate(ctx context.Context, id string) (product.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (product.Product, error)
	ListProducts(ctx context.Context) ([]product.Product, error)
	InsertProduct(ctx context.Context, p product.Product) error
	UpdateProduct(ctx context.Context, p product.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// AdjustStock applies a signed delta to a product's stock. The caller is
	// responsible for holding the row lock and for the non-negativity check;
	// implementations may enforce stock >= 0 as a second line of defense.
	AdjustStock(ctx context.Context, id string, delta int) error

	GetOrder(ctx context.Context, id string) (order.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
	InsertOrder(ctx context.Context, o order.Order) error
	UpdateOrder(ctx context.Context, o order.Order) error
	DeleteOrder(ctx context.Context, id string) error

	// CountActiveOrders returns how many non-CANCELED orders reference the
	// product. Used to forbid deleting products that back live reservations.
	CountActiveOrders(ctx context.Context, productID string) (int, error)
}
