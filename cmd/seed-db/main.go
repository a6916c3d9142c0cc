// Command seed-db loads an initial product catalog into PostgreSQL.
// Existing SKUs are skipped, so reseeding is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-inventory-service/internal/domain/product"
	"github.com/xenking/order-inventory-service/internal/inventory"
	"github.com/xenking/order-inventory-service/internal/storage/postgres"
)

type productJSON struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	BrandID    int64           `json:"brand_id"`
	CategoryID int64           `json:"category_id"`
	Stock      int             `json:"stock"`
	Price      decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var items []productJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	ledger := inventory.NewLedger(postgres.NewStore(pool))

	seeded, skipped := 0, 0
	for _, it := range items {
		_, err := ledger.CreateProduct(ctx, product.Params{
			SKU:        it.SKU,
			Name:       it.Name,
			BrandID:    it.BrandID,
			CategoryID: it.CategoryID,
			Stock:      it.Stock,
			Price:      it.Price,
		})
		var dup *product.DuplicateSKUError
		switch {
		case errors.As(err, &dup):
			skipped++
		case err != nil:
			return errors.Wrapf(err, "seed product %q", it.SKU)
		default:
			seeded++
		}
	}

	slog.Info("products seeded", slog.Int("created", seeded), slog.Int("skipped", skipped))
	return nil
}
