package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, tenant_id, code, amount, currency, discount_type, expires_at,
		usage_count, usage_limit, usage_limit_per_user, limit_items,
		free_shipping, exclude_on_sale, individual_use, minimum_amount, maximum_amount
		FROM coupons
		WHERE tenant_id = $1 AND UPPER(code) = UPPER($2) AND active = TRUE
		AND (expires_at IS NULL OR expires_at > NOW())`

	getCouponProductsSQL = `SELECT product_id, excluded FROM coupon_products WHERE coupon_id = $1`

	getCouponCategoriesSQL = `SELECT category_id, excluded FROM coupon_categories WHERE coupon_id = $1`
)

var _ coupon.Source = (*CouponRepository)(nil)

// CouponRepository implements coupon.Source backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active, non-expired coupon by its code
// (case-insensitive) for a tenant, including its allow/deny scope sets.
// Returns coupon.ErrNotFound when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, tenantID int64, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, tenantID, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	if err := r.loadScopes(ctx, &c); err != nil {
		return nil, fmt.Errorf("loading scopes for coupon %q: %w", code, err)
	}
	return &c, nil
}

// loadScopes fills the coupon's four scope sets from the join tables.
func (r *CouponRepository) loadScopes(ctx context.Context, c *coupon.Coupon) error {
	c.AllowedProducts = make(map[int64]struct{})
	c.ExcludedProducts = make(map[int64]struct{})
	c.AllowedCategories = make(map[int64]struct{})
	c.ExcludedCategories = make(map[int64]struct{})

	if err := r.collectScope(ctx, getCouponProductsSQL, c.ID, c.AllowedProducts, c.ExcludedProducts); err != nil {
		return err
	}
	return r.collectScope(ctx, getCouponCategoriesSQL, c.ID, c.AllowedCategories, c.ExcludedCategories)
}

func (r *CouponRepository) collectScope(ctx context.Context, query string, couponID int64, allowed, excluded map[int64]struct{}) error {
	rows, err := r.pool.Query(ctx, query, couponID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      int64
			exclude bool
		)
		if err := rows.Scan(&id, &exclude); err != nil {
			return err
		}
		if exclude {
			excluded[id] = struct{}{}
		} else {
			allowed[id] = struct{}{}
		}
	}
	return rows.Err()
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		expiresAt    *time.Time
		amount       decimal.Decimal
		minAmount    decimal.Decimal
		maxAmount    decimal.Decimal
	)
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Code, &amount, &c.Currency, &discountType, &expiresAt,
		&c.UsageCount, &c.UsageLimit, &c.UsageLimitPerUser, &c.LimitItems,
		&c.FreeShipping, &c.ExcludeOnSale, &c.IndividualUse, &minAmount, &maxAmount,
	)
	c.Amount = amount
	c.DiscountType = coupon.DiscountType(discountType)
	c.ExpiresAt = expiresAt
	c.MinimumAmount = minAmount
	c.MaximumAmount = maxAmount
	return c, err
}
