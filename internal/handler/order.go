package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/orders"
)

const orderCacheKey = "order:%s"

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	req, err := decodePlaceOrderRequest(data)
	if err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if req.ProductID == "" || req.CustomerID == "" {
		writeBadRequest(w, "product_id and customer_id are required")
		return
	}
	if req.Quantity <= 0 {
		writeBadRequest(w, "quantity must be greater than 0")
		return
	}

	o, err := h.manager.PlaceOrder(r.Context(), orders.PlaceOrderRequest{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.cacheOrder(r, o)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	all, err := h.manager.ListOrders(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range all {
			encodeOrder(e, o)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.cache != nil {
		key := fmt.Sprintf(orderCacheKey, id)
		if body, err := h.cache.Get(r.Context(), key).Bytes(); err == nil && len(body) > 0 {
			writeRaw(w, http.StatusOK, body)
			return
		}
	}

	o, err := h.manager.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.cacheOrder(r, o)
	writeRaw(w, http.StatusOK, encodedOrder(o))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	req, err := decodeUpdateOrderRequest(data)
	if err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if req.Quantity <= 0 {
		writeBadRequest(w, "quantity must be greater than 0")
		return
	}

	o, err := h.manager.UpdateOrder(r.Context(), chi.URLParam(r, "id"), orders.UpdateOrderRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.DeleteOrder(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.dropCachedOrder(r, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.manager.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.manager.MarkShipped(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// paymentWebhook is the external payment notification driving the
// PENDING -> PAID transition.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	orderID, err := decodePaymentWebhook(data)
	if err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if orderID == "" {
		orderID = r.URL.Query().Get("order_id")
	}
	if orderID == "" {
		writeBadRequest(w, "order_id is required")
		return
	}

	o, err := h.manager.MarkPaid(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("ok")
		e.Bool(true)
		e.ObjEnd()
	})
}

// cacheOrder refreshes the read cache after a lookup or mutation. Cache
// failures only cost freshness, so they are logged and swallowed.
func (h *Handler) cacheOrder(r *http.Request, o order.Order) {
	if h.cache == nil {
		return
	}
	key := fmt.Sprintf(orderCacheKey, o.ID)
	if err := h.cache.Set(r.Context(), key, encodedOrder(o), orderCacheTTL).Err(); err != nil {
		zctx.From(r.Context()).Warn("cache order", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (h *Handler) dropCachedOrder(r *http.Request, id string) {
	if h.cache == nil {
		return
	}
	key := fmt.Sprintf(orderCacheKey, id)
	if err := h.cache.Del(r.Context(), key).Err(); err != nil {
		zctx.From(r.Context()).Warn("invalidate order cache", zap.String("order_id", id), zap.Error(err))
	}
}
