package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/catalog"
)

// ItemRef is an unresolved line item as submitted by the order flow: product,
// optional variation, and quantity. Prices are resolved by the engine through
// the catalog resolver.
type ItemRef struct {
	ProductID   int64
	VariationID int64
	Quantity    int
}

// Request carries everything one evaluation needs. Codes are matched
// case-insensitively after trimming; Currency is an optional hint that pins
// the evaluation currency before the first coupon is accepted.
type Request struct {
	TenantID      int64
	CustomerID    int64
	PriceSystemID int64
	Currency      string
	Codes         []string
	Items         []ItemRef
}

// Engine sequences validation, price resolution, scoping, calculation, and
// post-condition checks for a coupon set. It holds no per-evaluation state
// and is safe for concurrent use; the caller owns the locking discipline on
// usage counters when applying the result.
type Engine struct {
	coupons Source
	prices  catalog.PriceResolver
	usage   UsageReader
	now     func() time.Time
}

// NewEngine creates an Engine backed by the given collaborators.
func NewEngine(coupons Source, prices catalog.PriceResolver, usage UsageReader) *Engine {
	return &Engine{
		coupons: coupons,
		prices:  prices,
		usage:   usage,
		now:     time.Now,
	}
}

// Evaluate runs the full evaluation for one coupon set. Any failure aborts
// the whole set: no partial discount is ever reported. Every failure is a
// *Error: business-rule rejections under their own kind, unexpected
// collaborator failures under KindInternal with the cause unwrappable.
//
// Evaluate never consumes usage quota. The caller must increment the usage
// counters named in the result inside the same transaction that persists the
// order, holding row locks on the coupon rows so concurrent redemptions near
// a limit serialize.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Codes) == 0 {
		return &Result{Discounts: Buckets{}, CustomerID: req.CustomerID}, nil
	}

	codes, verr := normalizeCodes(req.Codes)
	if verr != nil {
		return nil, verr
	}

	coupons, err := e.fetch(ctx, req.TenantID, codes)
	if err != nil {
		return nil, err
	}

	customer := e.customer(req)
	if err := e.validate(ctx, coupons, customer, req.Currency); err != nil {
		return nil, err
	}

	items, err := e.resolveItems(ctx, req, coupons[0].Currency)
	if err != nil {
		return nil, err
	}

	buckets := Buckets{}
	contributions := make([]contribution, 0, len(coupons))
	for _, c := range coupons {
		contrib, verr := calculate(c, items)
		if verr != nil {
			return nil, verr
		}
		buckets = buckets.add(c.Currency, contrib.amount)
		contributions = append(contributions, contrib)
	}

	if err := checkPostConditions(contributions, items); err != nil {
		return nil, err
	}

	result := &Result{
		Discounts:        buckets,
		AppliedCouponIDs: make([]int64, len(coupons)),
		CustomerID:       req.CustomerID,
	}
	for i, c := range coupons {
		result.AppliedCouponIDs[i] = c.ID
		result.FreeShipping = result.FreeShipping || c.FreeShipping
	}
	return result, nil
}

// fetch resolves all codes to active, non-expired coupons, preserving input
// order.
func (e *Engine) fetch(ctx context.Context, tenantID int64, codes []string) ([]*Coupon, error) {
	now := e.now()
	coupons := make([]*Coupon, len(codes))
	for i, code := range codes {
		c, err := e.coupons.FindByCode(ctx, tenantID, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, newError(KindNotFound, code, "no active coupon matches")
			}
			return nil, internalError(err, code, "coupon lookup failed")
		}
		if c.expired(now) {
			return nil, newError(KindNotFound, code, "no active coupon matches")
		}
		coupons[i] = c
	}
	return coupons, nil
}

func (e *Engine) customer(req Request) *Customer {
	if req.CustomerID == 0 {
		return nil
	}
	return &Customer{ID: req.CustomerID}
}

// validate runs the item-independent checks over the whole set in input
// order. currencyHint, when set, pins the evaluation currency before the
// first coupon is accepted.
func (e *Engine) validate(ctx context.Context, coupons []*Coupon, customer *Customer, currencyHint string) error {
	setCurrency := currencyHint
	for _, c := range coupons {
		priorUses, err := e.priorUses(ctx, c, customer)
		if err != nil {
			return err
		}
		if verr := validateCoupon(c, len(coupons), setCurrency, customer, priorUses); verr != nil {
			return verr
		}
		setCurrency = c.Currency
	}
	return nil
}

// priorUses returns the customer's redemption count for the coupon,
// preferring counts pre-fetched onto the Customer over a ledger lookup.
func (e *Engine) priorUses(ctx context.Context, c *Coupon, customer *Customer) (int, error) {
	if c.UsageLimitPerUser == 0 || customer == nil || customer.ID == 0 {
		return 0, nil
	}
	if uses, ok := customer.Uses[c.ID]; ok {
		return uses, nil
	}
	if e.usage == nil {
		return 0, nil
	}
	uses, err := e.usage.CustomerUses(ctx, c.ID, customer.ID)
	if err != nil {
		return 0, internalError(err, c.Code, "usage ledger lookup failed")
	}
	return uses, nil
}

// resolveItems turns item references into priced line items in the
// evaluation currency.
func (e *Engine) resolveItems(ctx context.Context, req Request, currency string) ([]LineItem, error) {
	items := make([]LineItem, len(req.Items))
	for i, ref := range req.Items {
		resolved, err := e.prices.Resolve(ctx, catalog.ItemQuery{
			TenantID:      req.TenantID,
			ProductID:     ref.ProductID,
			VariationID:   ref.VariationID,
			PriceSystemID: req.PriceSystemID,
			Currency:      currency,
		})
		if err != nil {
			switch {
			case errors.Is(err, catalog.ErrProductNotFound):
				return nil, newError(KindProductNotFound, "", "product %d not found", ref.ProductID)
			case errors.Is(err, catalog.ErrPriceNotFound):
				return nil, newError(KindPriceNotFound, "", "product %d has no %s price", ref.ProductID, currency)
			}
			return nil, internalError(err, "", "price resolution failed for product %d", ref.ProductID)
		}
		items[i] = LineItem{
			ProductID:   ref.ProductID,
			VariationID: ref.VariationID,
			Quantity:    ref.Quantity,
			UnitPrice:   resolved.UnitPrice,
			Currency:    resolved.Currency,
			CategoryID:  resolved.CategoryID,
			OnSale:      resolved.OnSale,
		}
	}
	return items, nil
}

// checkPostConditions runs the aggregate checks that depend on every
// coupon's contribution: minimum/maximum admitted subtotal and the
// item-count ceiling.
func checkPostConditions(contributions []contribution, items []LineItem) error {
	totalQty := 0
	for _, item := range items {
		totalQty += item.Quantity
	}

	for _, contrib := range contributions {
		c := contrib.coupon
		if !c.MinimumAmount.IsZero() && contrib.admittedSubtotal.LessThan(c.MinimumAmount) {
			return newError(KindMinimumAmountNotMet, c.Code,
				"subtotal %s is below minimum %s", contrib.admittedSubtotal, c.MinimumAmount)
		}
		if !c.MaximumAmount.IsZero() && contrib.admittedSubtotal.GreaterThan(c.MaximumAmount) {
			return newError(KindMaximumAmountExceeded, c.Code,
				"subtotal %s exceeds maximum %s", contrib.admittedSubtotal, c.MaximumAmount)
		}
		if c.LimitItems > 0 && totalQty > c.LimitItems {
			return newError(KindItemLimitExceeded, c.Code,
				"cart quantity %d exceeds limit of %d items", totalQty, c.LimitItems)
		}
	}
	return nil
}

// Total returns the aggregate discount for a currency, zero when absent.
func (r *Result) Total(currency string) decimal.Decimal {
	return r.Discounts[currency]
}
