package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/catalog"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Service encapsulates order placement business logic.
type Service struct {
	prices catalog.PriceResolver
	engine *coupon.Engine
	orders Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(prices catalog.PriceResolver, engine *coupon.Engine, orders Repository) *Service {
	return &Service{
		prices: prices,
		engine: engine,
		orders: orders,
	}
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	TenantID      int64
	CustomerID    int64
	PriceSystemID int64
	Currency      string
	CouponCodes   []string
	Items         []coupon.ItemRef
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order      *Order
	Evaluation *coupon.Result
}

// PlaceOrder validates items, resolves prices, evaluates the coupon set,
// and persists the order together with the coupon usage consumption in one
// transaction. Any coupon failure aborts the whole order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	items, subtotal, err := s.priceItems(ctx, req)
	if err != nil {
		return nil, err
	}

	eval, err := s.engine.Evaluate(ctx, coupon.Request{
		TenantID:      req.TenantID,
		CustomerID:    req.CustomerID,
		PriceSystemID: req.PriceSystemID,
		Currency:      req.Currency,
		Codes:         req.CouponCodes,
		Items:         req.Items,
	})
	if err != nil {
		return nil, errors.Wrap(err, "evaluate coupons")
	}

	// Total = subtotal - discount in the order currency, floored at zero.
	discount := eval.Total(req.Currency)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:           uuid.New().String(),
		TenantID:     req.TenantID,
		CustomerID:   req.CustomerID,
		Currency:     req.Currency,
		Items:        items,
		Subtotal:     subtotal,
		Discount:     discount.Round(2),
		Total:        total.Round(2),
		FreeShipping: eval.FreeShipping,
		CouponCodes:  normalizedCodes(req.CouponCodes),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.orders.CreateWithCoupons(ctx, o, eval); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &PlaceOrderResult{Order: o, Evaluation: eval}, nil
}

// priceItems resolves every line item's unit price in the order currency and
// returns the priced items with the running subtotal.
func (s *Service) priceItems(ctx context.Context, req PlaceOrderRequest) ([]Item, decimal.Decimal, error) {
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, ref := range req.Items {
		resolved, err := s.prices.Resolve(ctx, catalog.ItemQuery{
			TenantID:      req.TenantID,
			ProductID:     ref.ProductID,
			VariationID:   ref.VariationID,
			PriceSystemID: req.PriceSystemID,
			Currency:      req.Currency,
		})
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, decimal.Zero, &ProductNotFoundError{ProductID: ref.ProductID}
			}
			return nil, decimal.Zero, errors.Wrapf(err, "resolve price for product %d", ref.ProductID)
		}

		items[i] = Item{
			ProductID:   ref.ProductID,
			VariationID: ref.VariationID,
			Quantity:    ref.Quantity,
			UnitPrice:   resolved.UnitPrice,
		}
		line := resolved.UnitPrice.Mul(decimal.NewFromInt(int64(ref.Quantity)))
		subtotal = subtotal.Add(line).Round(2)
	}
	return items, subtotal, nil
}

func normalizedCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = coupon.NormalizeCode(code)
	}
	return out
}
