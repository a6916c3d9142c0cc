// Package handler exposes the inventory ledger and order lifecycle manager
// over HTTP. It is a thin translation layer: decode, delegate, encode. All
// correctness-critical logic lives in the domain services.
package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/order-inventory-service/internal/inventory"
	"github.com/xenking/order-inventory-service/internal/orders"
)

// orderCacheTTL bounds how long a cached order lookup may go stale when an
// invalidation is lost.
const orderCacheTTL = 5 * time.Minute

// Handler carries the domain services and the optional read cache.
type Handler struct {
	ledger  *inventory.Ledger
	manager *orders.Manager
	cache   *redis.Client // nil disables order lookup caching
}

// New constructs a Handler. Pass a nil cache to serve lookups straight from
// storage.
func New(ledger *inventory.Ledger, manager *orders.Manager, cache *redis.Client) *Handler {
	return &Handler{
		ledger:  ledger,
		manager: manager,
		cache:   cache,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.placeOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrder)
		r.Delete("/{id}", h.deleteOrder)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Post("/{id}/ship", h.shipOrder)
	})

	r.Post("/webhooks/payment", h.paymentWebhook)

	return r
}
