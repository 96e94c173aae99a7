// Package coupon implements the coupon discount evaluation engine: code
// normalization, eligibility validation, product/category scoping, and
// per-currency discount calculation for a set of coupons applied to an
// in-progress order.
//
// The engine is a pure in-memory evaluation step. It never writes to
// persistent storage; it reports which coupon usages should be consumed and
// leaves the transactional increment to the caller.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the admitted subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFixedCart applies a flat amount to the whole cart, once.
	DiscountFixedCart DiscountType = "fixed_cart"
	// DiscountFixedProduct applies a flat amount, valid only when the
	// coupon's scope admits at least one line item.
	DiscountFixedProduct DiscountType = "fixed_product"
)

// Coupon is a tenant-scoped promotional code with its discount rule and
// eligibility constraints. The engine only reads coupons; editing and
// persistence belong to the repository layer.
type Coupon struct {
	ID           int64
	TenantID     int64
	Code         string
	Amount       decimal.Decimal
	Currency     string
	DiscountType DiscountType
	ExpiresAt    *time.Time

	// Usage quotas. Zero means unlimited.
	UsageCount        int
	UsageLimit        int
	UsageLimitPerUser int

	// LimitItems caps the total line-item quantity the coupon may be
	// applied against. Zero means unlimited.
	LimitItems int

	FreeShipping  bool
	ExcludeOnSale bool
	IndividualUse bool

	// MinimumAmount and MaximumAmount bound the admitted subtotal
	// attributable to this coupon. A zero value means unset.
	MinimumAmount decimal.Decimal
	MaximumAmount decimal.Decimal

	// Scope sets. Empty sets impose no restriction in their dimension.
	AllowedProducts    map[int64]struct{}
	ExcludedProducts   map[int64]struct{}
	AllowedCategories  map[int64]struct{}
	ExcludedCategories map[int64]struct{}
}

// LineItem is one resolved product entry in the order under evaluation.
type LineItem struct {
	ProductID   int64
	VariationID int64
	Quantity    int
	UnitPrice   decimal.Decimal
	Currency    string
	CategoryID  int64
	OnSale      bool
}

// Subtotal returns unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Customer identifies the redeeming customer together with their prior
// per-coupon use counts, pre-fetched by the caller.
type Customer struct {
	ID int64
	// Uses maps coupon ID to the number of times this customer has
	// already redeemed that coupon.
	Uses map[int64]int
}

// Result is the outcome of a successful evaluation. The caller applies it
// inside the same transaction that persists the order.
type Result struct {
	// Discounts maps currency code to the aggregate non-negative discount
	// in that currency. Each coupon's contribution is accumulated with
	// 2-decimal rounding at every step.
	Discounts map[string]decimal.Decimal
	// AppliedCouponIDs lists, in input order, the coupons whose usage
	// counters must be incremented.
	AppliedCouponIDs []int64
	// FreeShipping is the OR of all applied coupons' free shipping flags.
	FreeShipping bool
	// CustomerID is the resolved customer identity, zero when anonymous.
	CustomerID int64
}

// ErrNotFound is returned by a Source when no active coupon matches a code.
var ErrNotFound = errors.New("coupon not found")

// Source provides lookup of active coupons by normalized code for a tenant.
// Implementations must return ErrNotFound when no active coupon matches.
type Source interface {
	FindByCode(ctx context.Context, tenantID int64, code string) (*Coupon, error)
}

// UsageReader reports how many times a customer has redeemed a coupon.
// It is consulted only for coupons that declare a per-user limit and whose
// count was not pre-fetched onto the Customer.
type UsageReader interface {
	CustomerUses(ctx context.Context, couponID, customerID int64) (int, error)
}

// NormalizeCode trims surrounding whitespace and uppercases a coupon code.
// "save10", "SAVE10 " and "SAVE10" all normalize to the same code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
