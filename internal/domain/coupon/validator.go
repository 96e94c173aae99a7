package coupon

import "time"

// normalizeCodes normalizes the submitted codes preserving input order and
// rejects the set when the same normalized code appears twice.
func normalizeCodes(codes []string) ([]string, *Error) {
	normalized := make([]string, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for i, raw := range codes {
		code := NormalizeCode(raw)
		if _, dup := seen[code]; dup {
			return nil, newError(KindDuplicate, code, "coupon submitted more than once")
		}
		seen[code] = struct{}{}
		normalized[i] = code
	}
	return normalized, nil
}

// expired reports whether the coupon's expiration has passed at the given
// instant. Coupons without an expiration never expire.
func (c *Coupon) expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// validateCoupon enforces the per-coupon constraints that do not depend on
// line items: currency consistency across the set, total and per-user usage
// quotas, and the individual-use restriction. setCurrency is the currency of
// the first accepted coupon, empty when this is the first. priorUses is the
// customer's redemption count for this coupon; it is only meaningful when
// the coupon declares a per-user limit and a customer is present.
//
// The check is pure: consuming quota is the caller's responsibility, applied
// transactionally with order persistence.
func validateCoupon(c *Coupon, numCodes int, setCurrency string, customer *Customer, priorUses int) *Error {
	if setCurrency != "" && c.Currency != setCurrency {
		return newError(KindCurrencyConflict, c.Code,
			"coupon currency %s conflicts with %s", c.Currency, setCurrency)
	}

	// A coupon may be redeemed up to its limit; once the counter reaches
	// the limit the next redemption is rejected.
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return newError(KindUsageLimitExceeded, c.Code, "usage limit reached")
	}

	if c.IndividualUse && numCodes > 1 {
		return newError(KindIndividualUseViolation, c.Code,
			"coupon cannot be combined with other coupons")
	}

	if c.UsageLimitPerUser > 0 {
		if customer == nil || customer.ID == 0 {
			return newError(KindCustomerRequired, c.Code,
				"coupon requires an identified customer")
		}
		if priorUses >= c.UsageLimitPerUser {
			return newError(KindPerUserLimitExceeded, c.Code,
				"per-customer usage limit reached")
		}
	}

	return nil
}
