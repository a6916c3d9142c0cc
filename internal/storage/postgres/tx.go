package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-inventory-service/internal/domain/order"
	"github.com/xenking/order-inventory-service/internal/domain/product"
	"github.com/xenking/order-inventory-service/internal/storage"
)

const productColumns = `id, sku, name, brand_id, category_id, stock, price, created_at, updated_at`

const orderColumns = `id, product_id, quantity, total, status, customer_id, created_at, updated_at`

// pgTx implements storage.Tx over a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

var _ storage.Tx = (*pgTx)(nil)

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.BrandID, &p.CategoryID, &p.Stock, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, errors.Wrap(err, "scan product")
	}
	return p, nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.ProductID, &o.Quantity, &o.Total, &o.Status, &o.CustomerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, errors.Wrap(err, "scan order")
	}
	return o, nil
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (product.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id string) (product.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	return scanProduct(row)
}

func (t *pgTx) GetProductBySKU(ctx context.Context, sku string) (product.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	return scanProduct(row)
}

func (t *pgTx) ListProducts(ctx context.Context) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertProduct(ctx context.Context, p product.Product) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.SKU, p.Name, p.BrandID, p.CategoryID, p.Stock, p.Price, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert product %q", p.ID)
	}
	return nil
}

func (t *pgTx) UpdateProduct(ctx context.Context, p product.Product) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products
		SET sku = $2, name = $3, brand_id = $4, category_id = $5, stock = $6, price = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.BrandID, p.CategoryID, p.Stock, p.Price, p.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (t *pgTx) AdjustStock(ctx context.Context, id string, delta int) error {
	// The schema carries a stock >= 0 CHECK; the ledger performs the real
	// availability check under the row lock before calling this.
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		id, delta)
	if err != nil {
		return errors.Wrapf(err, "adjust stock of product %q", id)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (t *pgTx) GetOrder(ctx context.Context, id string) (order.Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, id string) (order.Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

func (t *pgTx) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertOrder(ctx context.Context, o order.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.ProductID, o.Quantity, o.Total, o.Status, o.CustomerID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o order.Order) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET product_id = $2, quantity = $3, total = $4, status = $5, customer_id = $6, updated_at = $7
		WHERE id = $1`,
		o.ID, o.ProductID, o.Quantity, o.Total, o.Status, o.CustomerID, o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteOrder(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (t *pgTx) CountActiveOrders(ctx context.Context, productID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE product_id = $1 AND status <> 'CANCELED'`,
		productID).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "count active orders for product %q", productID)
	}
	return n, nil
}
