package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, tenant_id, name, category_id, on_sale
		FROM products WHERE tenant_id = $1 ORDER BY id`

	getProductByIDSQL = `SELECT id, tenant_id, name, category_id, on_sale
		FROM products WHERE tenant_id = $1 AND id = $2`

	// The most specific price row wins: exact variation and price system
	// rows sort before their 0-valued wildcard fallbacks.
	resolvePriceSQL = `SELECT p.category_id, p.on_sale, pp.amount
		FROM products p
		JOIN product_prices pp ON pp.product_id = p.id
		WHERE p.tenant_id = $1 AND p.id = $2
		AND pp.variation_id IN ($3, 0)
		AND pp.price_system_id IN ($4, 0)
		AND pp.currency = $5
		ORDER BY pp.variation_id DESC, pp.price_system_id DESC
		LIMIT 1`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE tenant_id = $1 AND id = $2)`
)

var (
	_ catalog.Repository    = (*CatalogRepository)(nil)
	_ catalog.PriceResolver = (*CatalogRepository)(nil)
)

// CatalogRepository implements catalog reads and price resolution backed by
// PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all products for a tenant ordered by ID.
func (r *CatalogRepository) List(ctx context.Context, tenantID int64) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, tenantID, id int64) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Resolve returns the unit price for a product under a price system in the
// requested currency, distinguishing a missing product from a missing price.
func (r *CatalogRepository) Resolve(ctx context.Context, q catalog.ItemQuery) (catalog.Resolved, error) {
	var (
		resolved catalog.Resolved
		amount   decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, resolvePriceSQL,
		q.TenantID, q.ProductID, q.VariationID, q.PriceSystemID, q.Currency,
	).Scan(&resolved.CategoryID, &resolved.OnSale, &amount)
	if err == nil {
		resolved.UnitPrice = amount
		resolved.Currency = q.Currency
		return resolved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return catalog.Resolved{}, fmt.Errorf("resolving price for product %d: %w", q.ProductID, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, productExistsSQL, q.TenantID, q.ProductID).Scan(&exists); err != nil {
		return catalog.Resolved{}, fmt.Errorf("checking product %d: %w", q.ProductID, err)
	}
	if !exists {
		return catalog.Resolved{}, catalog.ErrProductNotFound
	}
	return catalog.Resolved{}, catalog.ErrPriceNotFound
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.CategoryID, &p.OnSale)
	return p, err
}
