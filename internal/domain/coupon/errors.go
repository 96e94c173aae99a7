package coupon

import "fmt"

// Kind classifies evaluation failures. Kinds are business-rule rejections,
// not transient faults: callers surface them to the end user and never retry.
type Kind string

const (
	// KindNotFound means no active, non-expired coupon matched a code.
	KindNotFound Kind = "coupon_not_found"
	// KindDuplicate means the same normalized code appeared twice.
	KindDuplicate Kind = "duplicate_coupon"
	// KindCurrencyConflict means two coupons in one evaluation carry
	// different currencies.
	KindCurrencyConflict Kind = "currency_conflict"
	// KindUsageLimitExceeded means the coupon's total usage quota is spent.
	KindUsageLimitExceeded Kind = "usage_limit_exceeded"
	// KindPerUserLimitExceeded means the customer's personal quota is spent.
	KindPerUserLimitExceeded Kind = "per_user_limit_exceeded"
	// KindCustomerRequired means a per-user limited coupon was submitted
	// without a resolvable customer identity.
	KindCustomerRequired Kind = "customer_required"
	// KindIndividualUseViolation means an individual-use coupon was
	// combined with other coupons.
	KindIndividualUseViolation Kind = "individual_use_violation"
	// KindNotApplicable means a fixed-product coupon's scope admitted no
	// line item.
	KindNotApplicable Kind = "coupon_not_applicable"
	// KindMinimumAmountNotMet means the admitted subtotal is below the
	// coupon's minimum.
	KindMinimumAmountNotMet Kind = "minimum_amount_not_met"
	// KindMaximumAmountExceeded means the admitted subtotal is above the
	// coupon's maximum.
	KindMaximumAmountExceeded Kind = "maximum_amount_exceeded"
	// KindItemLimitExceeded means the cart quantity exceeds the coupon's
	// item ceiling.
	KindItemLimitExceeded Kind = "item_limit_exceeded"
	// KindProductNotFound means a line item references an unknown product.
	KindProductNotFound Kind = "product_not_found"
	// KindPriceNotFound means a product lacks a usable price in the
	// evaluation currency.
	KindPriceNotFound Kind = "price_not_found"
	// KindInternal wraps unexpected collaborator failures.
	KindInternal Kind = "internal"
)

// Error is a typed evaluation failure. Code carries the offending coupon
// code when the failure is attributable to one. KindInternal errors keep
// their underlying cause reachable through Unwrap; Message stays free of it
// so it is safe to surface to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string

	cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s (coupon %s)", e.Kind, e.Message, e.Code)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// internalError classifies an unexpected collaborator failure under
// KindInternal, keeping err as the unwrappable cause.
func internalError(err error, code, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
