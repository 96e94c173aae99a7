package coupon

// Admits reports whether the coupon's allow/deny scope rules admit the given
// line item. The decision is deterministic and side-effect free:
//
//  1. An item is allowed by default. When the coupon declares a product or
//     category allow-list, the item must appear in at least one of them.
//  2. An item is denied when its product or category appears in the
//     corresponding exclusion list, or when the coupon excludes on-sale
//     products and the item is on sale. A denial in any dimension wins over
//     an allowance in another.
func (c *Coupon) Admits(item LineItem) bool {
	allowed := true
	if len(c.AllowedProducts) > 0 || len(c.AllowedCategories) > 0 {
		_, byProduct := c.AllowedProducts[item.ProductID]
		_, byCategory := c.AllowedCategories[item.CategoryID]
		allowed = byProduct || byCategory
	}

	if _, denied := c.ExcludedProducts[item.ProductID]; denied {
		return false
	}
	if _, denied := c.ExcludedCategories[item.CategoryID]; denied {
		return false
	}
	if c.ExcludeOnSale && item.OnSale {
		return false
	}

	return allowed
}

// admittedItems returns the subset of items admitted by the coupon's scope.
func (c *Coupon) admittedItems(items []LineItem) []LineItem {
	admitted := make([]LineItem, 0, len(items))
	for _, item := range items {
		if c.Admits(item) {
			admitted = append(admitted, item)
		}
	}
	return admitted
}
