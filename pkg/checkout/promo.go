package checkout

import "math"

// PromoDiscount is the effect a promo would have on a checkout.
type PromoDiscount struct {
	Amount       float64
	FreeShipping bool
}

// ComputePromoDiscount returns the discount a promo yields for the given subtotal and shipping.
// The amount is clamped to [0, subtotal].
func ComputePromoDiscount(promo Promo, subtotal float64, shipping float64) PromoDiscount {
	var result PromoDiscount
	switch promo.Type {
	case PromoTypePercent:
		result.Amount = subtotal * promo.Value / 100
	case PromoTypeFixed:
		result.Amount = promo.Value
	case PromoTypeFreeShipping:
		result.Amount = shipping
		result.FreeShipping = true
	}
	result.Amount = clamp(result.Amount, 0, math.Max(subtotal, 0))
	return result
}

// PickBestPromo selects the promo to preview for a checkout.
// Type priority dominates (percent > fixed > free_shipping); equal priorities
// are decided by the larger discount, then by list order.
func PickBestPromo(promos []Promo, subtotal float64, shipping float64) (Promo, bool) {
	if len(promos) == 0 || subtotal <= 0 {
		return Promo{}, false
	}
	var (
		best         Promo
		bestPriority int
		bestDiscount float64
		found        bool
	)
	for _, promo := range promos {
		priority := promo.Type.priority()
		if priority == 0 || !promo.eligible(subtotal) {
			continue
		}
		discount := ComputePromoDiscount(promo, subtotal, shipping).Amount
		if !found || priority > bestPriority || (priority == bestPriority && discount > bestDiscount) {
			best = promo
			bestPriority = priority
			bestDiscount = discount
			found = true
		}
	}
	return best, found
}

// FindPromo returns the promo with the given code, comparing case-insensitively.
func FindPromo(promos []Promo, code string) (Promo, bool) {
	normalized, err := NewPromoCode(code)
	if err != nil {
		return Promo{}, false
	}
	for _, promo := range promos {
		candidate, err := NewPromoCode(promo.Code)
		if err == nil && candidate == normalized {
			return promo, true
		}
	}
	return Promo{}, false
}

func clamp(value float64, low float64, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
