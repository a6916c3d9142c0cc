// Package product defines the catalog entity owned by the inventory ledger.
package product

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DuplicateSKUError indicates a SKU collision with another live product.
type DuplicateSKUError struct {
	SKU string
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("sku %q already exists", e.SKU)
}

// Product represents a catalog item with its available stock. Stock reflects
// total stock minus the quantities held by active orders and is mutated only
// through the inventory ledger.
type Product struct {
	ID         string
	SKU        string
	Name       string
	BrandID    int64
	CategoryID int64
	Stock      int
	Price      decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Params carries the caller-supplied fields for creating or updating a
// product. Numeric sign and type validation is assumed to have happened at
// the transport boundary.
type Params struct {
	SKU        string
	Name       string
	BrandID    int64
	CategoryID int64
	Stock      int
	Price      decimal.Decimal
}
