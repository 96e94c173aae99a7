package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const (
	getCustomerUsesSQL = `SELECT uses FROM coupon_customer_uses
		WHERE coupon_id = $1 AND customer_id = $2`

	lockCouponSQL = `SELECT code, usage_count, usage_limit FROM coupons
		WHERE id = $1 FOR UPDATE`

	incrementUsageSQL = `UPDATE coupons SET usage_count = usage_count + 1 WHERE id = $1`

	upsertCustomerUseSQL = `INSERT INTO coupon_customer_uses (coupon_id, customer_id, uses)
		VALUES ($1, $2, 1)
		ON CONFLICT (coupon_id, customer_id) DO UPDATE SET uses = coupon_customer_uses.uses + 1`
)

var _ coupon.UsageReader = (*UsageRepository)(nil)

// UsageRepository implements the coupon usage ledger backed by PostgreSQL.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// CustomerUses returns how many times the customer has redeemed the coupon.
func (r *UsageRepository) CustomerUses(ctx context.Context, couponID, customerID int64) (int, error) {
	var uses int
	err := r.pool.QueryRow(ctx, getCustomerUsesSQL, couponID, customerID).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting customer uses for coupon %d: %w", couponID, err)
	}
	return uses, nil
}

// ConsumeTx increments the usage counters named in the evaluation result
// inside the caller's transaction. Each coupon row is locked with FOR UPDATE
// and its limit re-checked under the lock, so concurrent orders redeeming
// the same coupon near its limit serialize instead of both passing.
func (r *UsageRepository) ConsumeTx(ctx context.Context, tx pgx.Tx, eval *coupon.Result) error {
	for _, couponID := range eval.AppliedCouponIDs {
		var (
			code       string
			usageCount int
			usageLimit int
		)
		if err := tx.QueryRow(ctx, lockCouponSQL, couponID).Scan(&code, &usageCount, &usageLimit); err != nil {
			return fmt.Errorf("locking coupon %d: %w", couponID, err)
		}
		if usageLimit > 0 && usageCount >= usageLimit {
			return &coupon.Error{
				Kind:    coupon.KindUsageLimitExceeded,
				Code:    code,
				Message: "usage limit reached",
			}
		}

		if _, err := tx.Exec(ctx, incrementUsageSQL, couponID); err != nil {
			return fmt.Errorf("incrementing usage for coupon %d: %w", couponID, err)
		}
		if eval.CustomerID != 0 {
			if _, err := tx.Exec(ctx, upsertCustomerUseSQL, couponID, eval.CustomerID); err != nil {
				return fmt.Errorf("recording customer use for coupon %d: %w", couponID, err)
			}
		}
	}
	return nil
}
