// Package order implements order placement on top of the coupon evaluation
// engine: item validation, price resolution, discount application, and
// transactional persistence of the order together with coupon usage
// consumption.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Sentinel errors for order validation.
var ErrEmptyItems = fmt.Errorf("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// Item is a priced line item of a placed order.
type Item struct {
	ProductID   int64           `json:"product_id"`
	VariationID int64           `json:"variation_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order is a placed customer order with its pricing and discount outcome.
type Order struct {
	ID           string
	TenantID     int64
	CustomerID   int64
	Currency     string
	Items        []Item
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	FreeShipping bool
	CouponCodes  []string
	CreatedAt    time.Time
}

// Repository persists orders. CreateWithCoupons must write the order and
// consume the evaluation's coupon usages in a single transaction, so a
// failed order never spends a coupon's quota.
type Repository interface {
	CreateWithCoupons(ctx context.Context, o *Order, eval *coupon.Result) error
}
