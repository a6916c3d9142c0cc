// Package integration exercises the full HTTP surface against the in-memory
// storage backend: router, handlers, domain services, and error mapping
// together, with no external dependencies.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xenking/order-inventory-service/internal/handler"
	"github.com/xenking/order-inventory-service/internal/inventory"
	"github.com/xenking/order-inventory-service/internal/orders"
	"github.com/xenking/order-inventory-service/internal/storage"
	"github.com/xenking/order-inventory-service/internal/storage/memory"
)

// newStore returns a fresh storage backend for one test. The default is the
// in-memory store; the postgres harness (integration build tag) swaps in a
// container-backed store so the whole suite runs against real postgres too.
var newStore = func(t *testing.T) storage.Store {
	t.Helper()
	return memory.New()
}

type productResponse struct {
	ID         string      `json:"id"`
	SKU        string      `json:"sku"`
	Name       string      `json:"name"`
	BrandID    int64       `json:"brand_id"`
	CategoryID int64       `json:"category_id"`
	Stock      int         `json:"stock"`
	Price      json.Number `json:"price"`
	CreatedAt  string      `json:"created_at"`
	UpdatedAt  string      `json:"updated_at"`
}

type orderResponse struct {
	ID         string      `json:"id"`
	ProductID  string      `json:"product_id"`
	Quantity   int         `json:"quantity"`
	Total      json.Number `json:"total"`
	Status     string      `json:"status"`
	CustomerID string      `json:"customer_id"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := newStore(t)
	ledger := inventory.NewLedger(store)
	manager := orders.NewManager(store, ledger, nil)

	srv := httptest.NewServer(handler.New(ledger, manager, nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	return out
}

func createProduct(t *testing.T, srv *httptest.Server, sku string, stock int, price string) productResponse {
	t.Helper()
	code, body := do(t, http.MethodPost, srv.URL+"/products", map[string]any{
		"sku":         sku,
		"name":        "Product " + sku,
		"brand_id":    1,
		"category_id": 2,
		"stock":       stock,
		"price":       json.RawMessage(price),
	})
	require.Equal(t, http.StatusCreated, code, "body: %s", body)
	return decode[productResponse](t, body)
}

func placeOrder(t *testing.T, srv *httptest.Server, productID string, quantity int) orderResponse {
	t.Helper()
	code, body := do(t, http.MethodPost, srv.URL+"/orders", map[string]any{
		"product_id":  productID,
		"quantity":    quantity,
		"customer_id": "cust-1",
	})
	require.Equal(t, http.StatusCreated, code, "body: %s", body)
	return decode[orderResponse](t, body)
}

func getProduct(t *testing.T, srv *httptest.Server, id string) productResponse {
	t.Helper()
	code, body := do(t, http.MethodGet, srv.URL+"/products/"+id, nil)
	require.Equal(t, http.StatusOK, code, "body: %s", body)
	return decode[productResponse](t, body)
}
