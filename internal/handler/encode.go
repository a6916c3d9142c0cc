package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/domain/product"
)

// maxBodyBytes caps request bodies; every payload here is a handful of
// scalar fields.
const maxBodyBytes = 1 << 16

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func encodeError(e *jx.Encoder, code int, message string) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("brand_id")
	e.Int64(p.BrandID)
	e.FieldStart("category_id")
	e.Int64(p.CategoryID)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.StringFixed(2)))
	e.FieldStart("created_at")
	e.Str(p.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updated_at")
	e.Str(p.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("product_id")
	e.Str(o.ProductID)
	e.FieldStart("quantity")
	e.Int(o.Quantity)
	e.FieldStart("total")
	e.Num(jx.Num(o.Total.StringFixed(2)))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("customer_id")
	e.Str(o.CustomerID)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
}

// encodedOrder renders an order to raw JSON, used both for responses and for
// the cache entry so cached and fresh lookups are byte-identical.
func encodedOrder(o order.Order) []byte {
	e := &jx.Encoder{}
	encodeOrder(e, o)
	return e.Bytes()
}

type productRequest struct {
	SKU        string
	Name       string
	BrandID    int64
	CategoryID int64
	Stock      int
	Price      decimal.Decimal
}

func decodeProductRequest(data []byte) (productRequest, error) {
	var req productRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			req.SKU, err = d.Str()
		case "name":
			req.Name, err = d.Str()
		case "brand_id":
			req.BrandID, err = d.Int64()
		case "category_id":
			req.CategoryID, err = d.Int64()
		case "stock":
			req.Stock, err = d.Int()
		case "price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				req.Price, err = decimal.NewFromString(num.String())
			}
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

type placeOrderRequest struct {
	ProductID  string
	Quantity   int
	CustomerID string
}

func decodePlaceOrderRequest(data []byte) (placeOrderRequest, error) {
	var req placeOrderRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		case "customer_id":
			req.CustomerID, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

type updateOrderRequest struct {
	ProductID string
	Quantity  int
}

func decodeUpdateOrderRequest(data []byte) (updateOrderRequest, error) {
	var req updateOrderRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

func decodePaymentWebhook(data []byte) (orderID string, err error) {
	d := jx.DecodeBytes(data)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "order_id":
			orderID, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	})
	return orderID, err
}
