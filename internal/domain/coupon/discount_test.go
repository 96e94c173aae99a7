package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	items := []LineItem{
		{ProductID: 1, CategoryID: 10, Quantity: 2, UnitPrice: dec("10.00")},
		{ProductID: 2, CategoryID: 20, Quantity: 1, UnitPrice: dec("30.00")},
	}

	tests := []struct {
		name         string
		coupon       Coupon
		items        []LineItem
		wantAmount   decimal.Decimal
		wantSubtotal decimal.Decimal
		wantKind     Kind
	}{
		{
			name:         "percent over full cart",
			coupon:       Coupon{Code: "SUMMER10", DiscountType: DiscountPercent, Amount: dec("10"), Currency: "USD"},
			items:        items,
			wantAmount:   dec("5.00"),
			wantSubtotal: dec("50.00"),
		},
		{
			name: "percent over scoped subset",
			coupon: Coupon{
				Code: "CAT10", DiscountType: DiscountPercent, Amount: dec("10"),
				AllowedCategories: ids(10),
			},
			items:        items,
			wantAmount:   dec("2.00"),
			wantSubtotal: dec("20.00"),
		},
		{
			name:         "percent rounds to 2 places",
			coupon:       Coupon{Code: "THIRD", DiscountType: DiscountPercent, Amount: dec("33.33")},
			items:        []LineItem{{ProductID: 1, Quantity: 1, UnitPrice: dec("9.99")}},
			wantAmount:   dec("3.33"),
			wantSubtotal: dec("9.99"),
		},
		{
			name:         "percent above 100 capped at subtotal",
			coupon:       Coupon{Code: "OVER", DiscountType: DiscountPercent, Amount: dec("150")},
			items:        []LineItem{{ProductID: 1, Quantity: 1, UnitPrice: dec("10.00")}},
			wantAmount:   dec("10.00"),
			wantSubtotal: dec("10.00"),
		},
		{
			name:         "fixed cart applies once regardless of scope",
			coupon:       Coupon{Code: "FLAT5", DiscountType: DiscountFixedCart, Amount: dec("5")},
			items:        items,
			wantAmount:   dec("5.00"),
			wantSubtotal: dec("50.00"),
		},
		{
			name: "fixed product with admitted item",
			coupon: Coupon{
				Code: "PRODX", DiscountType: DiscountFixedProduct, Amount: dec("3"),
				AllowedProducts: ids(1),
			},
			items:        items,
			wantAmount:   dec("3.00"),
			wantSubtotal: dec("20.00"),
		},
		{
			name: "fixed product with empty scope admission fails",
			coupon: Coupon{
				Code: "PRODX", DiscountType: DiscountFixedProduct, Amount: dec("3"),
				AllowedProducts: ids(77),
			},
			items:    []LineItem{{ProductID: 99, Quantity: 1, UnitPrice: dec("10.00")}},
			wantKind: KindNotApplicable,
		},
		{
			name: "fixed product capped at admitted subtotal",
			coupon: Coupon{
				Code: "BIGFIX", DiscountType: DiscountFixedProduct, Amount: dec("100"),
				AllowedProducts: ids(1),
			},
			items:        []LineItem{{ProductID: 1, Quantity: 1, UnitPrice: dec("7.50")}},
			wantAmount:   dec("7.50"),
			wantSubtotal: dec("7.50"),
		},
		{
			name:     "unknown discount type",
			coupon:   Coupon{Code: "BAD", DiscountType: "bogus"},
			items:    items,
			wantKind: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := calculate(&tt.coupon, tt.items)

			if tt.wantKind != "" {
				require.NotNil(t, verr)
				assert.Equal(t, tt.wantKind, verr.Kind)
				return
			}

			require.Nil(t, verr)
			assert.True(t, tt.wantAmount.Equal(got.amount),
				"expected amount %s, got %s", tt.wantAmount, got.amount)
			assert.True(t, tt.wantSubtotal.Equal(got.admittedSubtotal),
				"expected subtotal %s, got %s", tt.wantSubtotal, got.admittedSubtotal)
		})
	}
}

func TestBucketsAddIsImmutable(t *testing.T) {
	base := Buckets{"USD": dec("1.00")}
	next := base.add("USD", dec("2.005"))

	assert.True(t, dec("1.00").Equal(base["USD"]), "base bucket mutated")
	assert.True(t, dec("3.01").Equal(next["USD"]), "rounded accumulation, got %s", next["USD"])
}

func TestBucketsSeparateCurrencies(t *testing.T) {
	b := Buckets{}.add("USD", dec("5.00")).add("EUR", dec("2.50")).add("USD", dec("1.00"))

	assert.True(t, dec("6.00").Equal(b["USD"]))
	assert.True(t, dec("2.50").Equal(b["EUR"]))
}

func TestBucketsNeverNegative(t *testing.T) {
	c := Coupon{Code: "NEG", DiscountType: DiscountPercent, Amount: dec("10")}
	got, verr := calculate(&c, nil)

	require.Nil(t, verr)
	assert.False(t, got.amount.IsNegative())
}
