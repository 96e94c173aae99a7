package coupon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(vals ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}

func TestAdmits(t *testing.T) {
	tests := []struct {
		name   string
		coupon Coupon
		item   LineItem
		want   bool
	}{
		{
			name:   "no scope admits everything",
			coupon: Coupon{},
			item:   LineItem{ProductID: 1, CategoryID: 10},
			want:   true,
		},
		{
			name:   "product allow-list match",
			coupon: Coupon{AllowedProducts: ids(1, 2)},
			item:   LineItem{ProductID: 2, CategoryID: 10},
			want:   true,
		},
		{
			name:   "product allow-list miss",
			coupon: Coupon{AllowedProducts: ids(1, 2)},
			item:   LineItem{ProductID: 3, CategoryID: 10},
			want:   false,
		},
		{
			name:   "category allow-list match",
			coupon: Coupon{AllowedCategories: ids(10)},
			item:   LineItem{ProductID: 3, CategoryID: 10},
			want:   true,
		},
		{
			name:   "allow-list miss in one dimension, match in the other",
			coupon: Coupon{AllowedProducts: ids(1), AllowedCategories: ids(10)},
			item:   LineItem{ProductID: 3, CategoryID: 10},
			want:   true,
		},
		{
			name:   "product deny wins over category allow",
			coupon: Coupon{AllowedCategories: ids(10), ExcludedProducts: ids(3)},
			item:   LineItem{ProductID: 3, CategoryID: 10},
			want:   false,
		},
		{
			name:   "category deny wins over product allow",
			coupon: Coupon{AllowedProducts: ids(3), ExcludedCategories: ids(10)},
			item:   LineItem{ProductID: 3, CategoryID: 10},
			want:   false,
		},
		{
			name:   "excluded product denied without allow-lists",
			coupon: Coupon{ExcludedProducts: ids(3)},
			item:   LineItem{ProductID: 3, CategoryID: 10},
			want:   false,
		},
		{
			name:   "on-sale item denied when coupon excludes sales",
			coupon: Coupon{ExcludeOnSale: true},
			item:   LineItem{ProductID: 3, CategoryID: 10, OnSale: true},
			want:   false,
		},
		{
			name:   "on-sale item admitted when coupon allows sales",
			coupon: Coupon{},
			item:   LineItem{ProductID: 3, CategoryID: 10, OnSale: true},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coupon.Admits(tt.item))
		})
	}
}

func TestAdmitsDeterministic(t *testing.T) {
	c := Coupon{
		AllowedProducts:    ids(1, 2, 3),
		ExcludedCategories: ids(20),
		ExcludeOnSale:      true,
	}
	item := LineItem{ProductID: 2, CategoryID: 10}

	first := c.Admits(item)
	for range 100 {
		assert.Equal(t, first, c.Admits(item))
	}
}
