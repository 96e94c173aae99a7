package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Buckets accumulates discount amounts keyed by currency code.
type Buckets map[string]decimal.Decimal

// add returns a new Buckets with amount added to the currency bucket,
// rounded to 2 decimal places at the accumulation step. The receiver is not
// mutated, so intermediate fold states stay assertable.
func (b Buckets) add(currency string, amount decimal.Decimal) Buckets {
	next := make(Buckets, len(b)+1)
	for cur, sum := range b {
		next[cur] = sum
	}
	next[currency] = next[currency].Add(amount).Round(2)
	return next
}

// contribution is the discount a single coupon adds to the evaluation,
// together with the admitted subtotal it was computed from. Post-conditions
// (minimum/maximum amount) run against the admitted subtotal.
type contribution struct {
	coupon           *Coupon
	amount           decimal.Decimal
	admittedSubtotal decimal.Decimal
}

// calculate computes the coupon's discount contribution given the full item
// list; scoping is applied here so each (coupon, item) pair is resolved
// exactly once.
func calculate(c *Coupon, items []LineItem) (contribution, *Error) {
	admitted := c.admittedItems(items)

	subtotal := decimal.Zero
	for _, item := range admitted {
		subtotal = subtotal.Add(item.Subtotal()).Round(2)
	}

	out := contribution{
		coupon:           c,
		admittedSubtotal: subtotal,
	}

	switch c.DiscountType {
	case DiscountPercent:
		amount := subtotal.Mul(c.Amount).Div(hundred).Round(2)
		out.amount = clamp(amount, subtotal)
	case DiscountFixedCart:
		out.amount = floorAtZero(c.Amount).Round(2)
	case DiscountFixedProduct:
		if len(admitted) == 0 {
			return contribution{}, newError(KindNotApplicable, c.Code,
				"no line item is eligible for this coupon")
		}
		out.amount = clamp(c.Amount.Round(2), subtotal)
	default:
		return contribution{}, newError(KindInternal, c.Code,
			"unsupported discount type %q", c.DiscountType)
	}

	return out, nil
}

// clamp bounds d to [0, max].
func clamp(d, max decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(max) {
		return max
	}
	return floorAtZero(d)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
