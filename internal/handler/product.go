package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/order-inventory-service/internal/domain/product"
)

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	req, err := decodeProductRequest(data)
	if err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if msg, ok := validateProductRequest(req); !ok {
		writeBadRequest(w, msg)
		return
	}

	p, err := h.ledger.CreateProduct(r.Context(), product.Params{
		SKU:        req.SKU,
		Name:       req.Name,
		BrandID:    req.BrandID,
		CategoryID: req.CategoryID,
		Stock:      req.Stock,
		Price:      req.Price,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.ledger.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeBadRequest(w, "read body")
		return
	}
	req, err := decodeProductRequest(data)
	if err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if msg, ok := validateProductRequest(req); !ok {
		writeBadRequest(w, msg)
		return
	}

	p, err := h.ledger.UpdateProduct(r.Context(), chi.URLParam(r, "id"), product.Params{
		SKU:        req.SKU,
		Name:       req.Name,
		BrandID:    req.BrandID,
		CategoryID: req.CategoryID,
		Stock:      req.Stock,
		Price:      req.Price,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateProductRequest enforces the type constraints the core assumes have
// been checked at this boundary.
func validateProductRequest(req productRequest) (string, bool) {
	switch {
	case req.SKU == "":
		return "sku is required", false
	case req.Name == "":
		return "name is required", false
	case req.Stock < 0:
		return "stock must not be negative", false
	case !req.Price.IsPositive():
		return "price must be positive", false
	}
	return "", true
}
