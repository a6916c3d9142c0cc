// Package order defines the order entity, its status machine, and the
// lifecycle events emitted when an order changes.
package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order represents a customer order holding a stock reservation against a
// single product. While the order is active (not CANCELED or deleted) its
// quantity is subtracted from the product's stock exactly once.
type Order struct {
	ID         string
	ProductID  string
	Quantity   int
	Total      decimal.Decimal
	Status     Status
	CustomerID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Active reports whether the order still holds a stock reservation.
func (o Order) Active() bool {
	return o.Status != StatusCanceled
}
