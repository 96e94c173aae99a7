package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-engine/internal/domain/catalog"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// --- Mock implementations ---

type mockResolver struct {
	prices map[int64]decimal.Decimal
}

func (m *mockResolver) Resolve(_ context.Context, q catalog.ItemQuery) (catalog.Resolved, error) {
	price, ok := m.prices[q.ProductID]
	if !ok {
		return catalog.Resolved{}, catalog.ErrProductNotFound
	}
	return catalog.Resolved{UnitPrice: price, Currency: q.Currency}, nil
}

type mockCouponSource struct {
	coupons map[string]*coupon.Coupon
}

func (m *mockCouponSource) FindByCode(_ context.Context, _ int64, code string) (*coupon.Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

type mockOrderRepo struct {
	lastOrder *Order
	lastEval  *coupon.Result
	err       error
}

func (m *mockOrderRepo) CreateWithCoupons(_ context.Context, o *Order, eval *coupon.Result) error {
	m.lastOrder = o
	m.lastEval = eval
	return m.err
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(resolver *mockResolver, src *mockCouponSource, repo *mockOrderRepo) *Service {
	engine := coupon.NewEngine(src, resolver, nil)
	return NewService(resolver, engine, repo)
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := newTestService(&mockResolver{}, &mockCouponSource{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Currency: "USD"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	svc := newTestService(&mockResolver{}, &mockCouponSource{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Currency: "USD",
		Items:    []coupon.ItemRef{{ProductID: 1, Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, int64(1), iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := newTestService(&mockResolver{}, &mockCouponSource{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Currency: "USD",
		Items:    []coupon.ItemRef{{ProductID: 404, Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, int64(404), pnfErr.ProductID)
}

func TestPlaceOrder_NoCoupons(t *testing.T) {
	resolver := &mockResolver{prices: map[int64]decimal.Decimal{
		1: dec("10.00"),
		2: dec("20.00"),
	}}
	repo := &mockOrderRepo{}
	svc := newTestService(resolver, &mockCouponSource{}, repo)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Currency: "USD",
		Items: []coupon.ItemRef{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.True(t, dec("40.00").Equal(result.Order.Subtotal))
	assert.True(t, decimal.Zero.Equal(result.Order.Discount))
	assert.True(t, dec("40.00").Equal(result.Order.Total))
	assert.NotNil(t, repo.lastOrder)
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	resolver := &mockResolver{prices: map[int64]decimal.Decimal{1: dec("25.00")}}
	src := &mockCouponSource{coupons: map[string]*coupon.Coupon{
		"SUMMER10": {
			ID: 1, Code: "SUMMER10", DiscountType: coupon.DiscountPercent,
			Amount: dec("10"), Currency: "USD", FreeShipping: true,
		},
	}}
	repo := &mockOrderRepo{}
	svc := newTestService(resolver, src, repo)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		TenantID:    7,
		Currency:    "USD",
		CouponCodes: []string{"summer10"},
		Items:       []coupon.ItemRef{{ProductID: 1, Quantity: 2}},
	})

	require.NoError(t, err)
	assert.True(t, dec("5.00").Equal(result.Order.Discount), "got %s", result.Order.Discount)
	assert.True(t, dec("45.00").Equal(result.Order.Total))
	assert.True(t, result.Order.FreeShipping)
	assert.Equal(t, []string{"SUMMER10"}, result.Order.CouponCodes)
	assert.Equal(t, []int64{1}, repo.lastEval.AppliedCouponIDs)
}

func TestPlaceOrder_CouponFailureAbortsOrder(t *testing.T) {
	resolver := &mockResolver{prices: map[int64]decimal.Decimal{1: dec("15.00")}}
	src := &mockCouponSource{coupons: map[string]*coupon.Coupon{
		"FLAT5": {
			ID: 2, Code: "FLAT5", DiscountType: coupon.DiscountFixedCart,
			Amount: dec("5"), Currency: "USD", MinimumAmount: dec("20"),
		},
	}}
	repo := &mockOrderRepo{}
	svc := newTestService(resolver, src, repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Currency:    "USD",
		CouponCodes: []string{"FLAT5"},
		Items:       []coupon.ItemRef{{ProductID: 1, Quantity: 1}},
	})

	var cerr *coupon.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, coupon.KindMinimumAmountNotMet, cerr.Kind)
	assert.Nil(t, repo.lastOrder, "order must not be persisted on coupon failure")
}

func TestPlaceOrder_TotalFlooredAtZero(t *testing.T) {
	resolver := &mockResolver{prices: map[int64]decimal.Decimal{1: dec("10.00")}}
	src := &mockCouponSource{coupons: map[string]*coupon.Coupon{
		"HUGE": {
			ID: 3, Code: "HUGE", DiscountType: coupon.DiscountFixedCart,
			Amount: dec("999"), Currency: "USD",
		},
	}}
	svc := newTestService(resolver, src, &mockOrderRepo{})

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Currency:    "USD",
		CouponCodes: []string{"HUGE"},
		Items:       []coupon.ItemRef{{ProductID: 1, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(result.Order.Total))
	assert.True(t, dec("999.00").Equal(result.Order.Discount))
}

func TestPlaceOrder_RepoError(t *testing.T) {
	resolver := &mockResolver{prices: map[int64]decimal.Decimal{1: dec("10.00")}}
	svc := newTestService(resolver, &mockCouponSource{}, &mockOrderRepo{err: errors.New("db write failed")})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Currency: "USD",
		Items:    []coupon.ItemRef{{ProductID: 1, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}
