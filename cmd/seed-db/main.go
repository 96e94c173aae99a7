// Command seed-db loads demo catalog data, a set of sample coupons, and a
// default API key into the database. It is idempotent: re-running updates
// existing rows in place.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/repository"
)

type priceJSON struct {
	VariationID   int64           `json:"variation_id"`
	PriceSystemID int64           `json:"price_system_id"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
}

type productJSON struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	CategoryID int64       `json:"category_id"`
	OnSale     bool        `json:"on_sale"`
	Prices     []priceJSON `json:"prices"`
}

type seedCoupon struct {
	code         string
	amount       decimal.Decimal
	currency     string
	discountType string
	freeShipping bool
	usageLimit   int
	minimum      decimal.Decimal
	description  string
}

const (
	upsertProductSQL = `INSERT INTO products (id, tenant_id, name, category_id, on_sale)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		category_id = EXCLUDED.category_id,
		on_sale = EXCLUDED.on_sale`

	upsertPriceSQL = `INSERT INTO product_prices (product_id, variation_id, price_system_id, currency, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, variation_id, price_system_id, currency) DO UPDATE SET
		amount = EXCLUDED.amount`

	upsertSeedCouponSQL = `INSERT INTO coupons
		(tenant_id, code, amount, currency, discount_type, free_shipping, usage_limit, minimum_amount, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (tenant_id, code) DO UPDATE SET
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		discount_type = EXCLUDED.discount_type,
		free_shipping = EXCLUDED.free_shipping,
		usage_limit = EXCLUDED.usage_limit,
		minimum_amount = EXCLUDED.minimum_amount,
		active = TRUE`

	upsertAPIKeySQL = `INSERT INTO api_keys (tenant_id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET
		tenant_id = EXCLUDED.tenant_id,
		name = EXCLUDED.name,
		scopes = EXCLUDED.scopes,
		active = TRUE`
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
		tenantID     int64
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or COUPON_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or COUPON_API_KEY_PEPPER env)")
	flag.Int64Var(&tenantID, "tenant", 1, "tenant to seed data for")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("COUPON_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or COUPON_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("COUPON_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper, tenantID); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string, tenantID int64) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile, tenantID); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool, tenantID); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper, tenantID); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string, tenantID int64) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, tenantID, p.Name, p.CategoryID, p.OnSale); err != nil {
			return errors.Wrapf(err, "upsert product %d", p.ID)
		}

		for _, pr := range p.Prices {
			if _, err := pool.Exec(ctx, upsertPriceSQL,
				p.ID, pr.VariationID, pr.PriceSystemID, pr.Currency, pr.Amount,
			); err != nil {
				return errors.Wrapf(err, "upsert price for product %d", p.ID)
			}
		}

		slog.Info("upserted product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, tenantID int64) error {
	slog.Info("seeding sample coupons")

	coupons := []seedCoupon{
		{
			code:         "HAPPYHOURS",
			amount:       decimal.NewFromInt(18),
			currency:     "USD",
			discountType: "percent",
			description:  "Happy Hours: 18% off entire order",
		},
		{
			code:         "TENOFF",
			amount:       decimal.NewFromInt(10),
			currency:     "USD",
			discountType: "fixed_cart",
			minimum:      decimal.NewFromInt(50),
			description:  "10 USD off orders of 50 USD or more",
		},
		{
			code:         "WELCOME",
			amount:       decimal.NewFromInt(5),
			currency:     "USD",
			discountType: "fixed_product",
			usageLimit:   1000,
			description:  "5 USD off eligible products, limited run",
		},
		{
			code:         "SHIPFREE",
			amount:       decimal.Zero,
			currency:     "USD",
			discountType: "fixed_cart",
			freeShipping: true,
			description:  "Free shipping, no discount",
		},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertSeedCouponSQL,
			tenantID, c.code, c.amount, c.currency, c.discountType,
			c.freeShipping, c.usageLimit, c.minimum,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string, tenantID int64) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		tenantID, keyHash, "Default test key", []string{"create_order"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default test key"))

	return nil
}
