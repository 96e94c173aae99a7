package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders
	(id, tenant_id, customer_id, currency, items, subtotal, discount, total, free_shipping, coupon_codes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool  *pgxpool.Pool
	usage *UsageRepository
}

// NewOrderRepository returns an OrderRepository that uses the given pool and
// usage ledger.
func NewOrderRepository(pool *pgxpool.Pool, usage *UsageRepository) *OrderRepository {
	return &OrderRepository{pool: pool, usage: usage}
}

// CreateWithCoupons persists a new order and consumes the evaluation's
// coupon usages in one transaction. A rollback leaves the usage quotas
// untouched, so a failed order never spends a coupon.
func (r *OrderRepository) CreateWithCoupons(ctx context.Context, o *order.Order, eval *coupon.Result) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.TenantID, o.CustomerID, o.Currency, itemsJSON,
		o.Subtotal, o.Discount, o.Total, o.FreeShipping, o.CouponCodes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if err := r.usage.ConsumeTx(ctx, tx, eval); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}
