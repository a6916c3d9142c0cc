package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/domain/product"
	"github.com/xenking/order-inventory-service/internal/inventory"
)

// writeDomainError maps domain errors to HTTP status codes: absent records
// to 404, conflicts (duplicate sku, insufficient stock, product in use,
// forbidden transitions) to 409, anything unrecognized to 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dupSKU       *product.DuplicateSKUError
		insufficient *inventory.InsufficientStockError
		invalidState *order.InvalidStateError
	)

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.As(err, &dupSKU),
		errors.As(err, &insufficient),
		errors.As(err, &invalidState),
		errors.Is(err, inventory.ErrProductInUse):
		status = http.StatusConflict
		message = err.Error()
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		encodeError(e, status, message)
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
		encodeError(e, http.StatusBadRequest, message)
	})
}
