package checkout

import (
	"errors"
	"testing"
)

func floatPointer(value float64) *float64 {
	return &value
}

func TestComputePromoDiscount(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name         string
		promo        Promo
		subtotal     float64
		shipping     float64
		wantAmount   float64
		wantShipping bool
	}{
		{name: "percent", promo: Promo{Type: PromoTypePercent, Value: 10}, subtotal: 2000, shipping: 100, wantAmount: 200},
		{name: "percent over one hundred clamps", promo: Promo{Type: PromoTypePercent, Value: 150}, subtotal: 400, shipping: 0, wantAmount: 400},
		{name: "percent of zero subtotal", promo: Promo{Type: PromoTypePercent, Value: 25}, subtotal: 0, shipping: 40, wantAmount: 0},
		{name: "fixed below subtotal", promo: Promo{Type: PromoTypeFixed, Value: 100}, subtotal: 1000, shipping: 50, wantAmount: 100},
		{name: "fixed above subtotal clamps", promo: Promo{Type: PromoTypeFixed, Value: 750}, subtotal: 500, shipping: 50, wantAmount: 500},
		{name: "negative fixed clamps to zero", promo: Promo{Type: PromoTypeFixed, Value: -20}, subtotal: 500, shipping: 50, wantAmount: 0},
		{name: "free shipping", promo: Promo{Type: PromoTypeFreeShipping}, subtotal: 1000, shipping: 80, wantAmount: 80, wantShipping: true},
		{name: "free shipping clamps to subtotal", promo: Promo{Type: PromoTypeFreeShipping}, subtotal: 30, shipping: 80, wantAmount: 30, wantShipping: true},
		{name: "unknown type", promo: Promo{Type: PromoType("bogo"), Value: 10}, subtotal: 1000, shipping: 80, wantAmount: 0},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			result := ComputePromoDiscount(testCase.promo, testCase.subtotal, testCase.shipping)
			if result.Amount != testCase.wantAmount {
				test.Fatalf("expected discount %v, got %v", testCase.wantAmount, result.Amount)
			}
			if result.FreeShipping != testCase.wantShipping {
				test.Fatalf("expected free shipping %v, got %v", testCase.wantShipping, result.FreeShipping)
			}
		})
	}
}

func TestComputePromoDiscountPercentMatchesFormula(test *testing.T) {
	test.Parallel()
	for _, subtotal := range []float64{0, 1, 99.5, 1000, 123456} {
		for _, value := range []float64{0, 5, 10, 50, 100, 200} {
			want := subtotal * value / 100
			if want > subtotal {
				want = subtotal
			}
			got := ComputePromoDiscount(Promo{Type: PromoTypePercent, Value: value}, subtotal, 40).Amount
			if got != want {
				test.Fatalf("subtotal=%v value=%v: expected %v, got %v", subtotal, value, want, got)
			}
		}
	}
}

func TestPickBestPromoPriorityDominatesMagnitude(test *testing.T) {
	test.Parallel()
	fixed := Promo{Code: "FLAT100", Type: PromoTypeFixed, Value: 100, MinOrderValue: floatPointer(50)}
	testCases := []struct {
		name    string
		percent Promo
	}{
		{name: "equal discount", percent: Promo{Code: "TEN", Type: PromoTypePercent, Value: 10}},
		{name: "smaller discount", percent: Promo{Code: "FIVE", Type: PromoTypePercent, Value: 5}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			best, ok := PickBestPromo([]Promo{fixed, testCase.percent}, 1000, 50)
			if !ok {
				test.Fatalf("expected a promo")
			}
			if best.Code != testCase.percent.Code {
				test.Fatalf("expected %s, got %s", testCase.percent.Code, best.Code)
			}
		})
	}
}

func TestPickBestPromoEmptyAndZeroSubtotal(test *testing.T) {
	test.Parallel()
	if _, ok := PickBestPromo(nil, 500, 40); ok {
		test.Fatalf("expected no promo for empty list")
	}
	promos := []Promo{{Code: "TEN", Type: PromoTypePercent, Value: 10}, {Code: "SHIP", Type: PromoTypeFreeShipping}}
	if _, ok := PickBestPromo(promos, 0, 40); ok {
		test.Fatalf("expected no promo for zero subtotal")
	}
}

func TestPickBestPromoFiltersMinimumOrderValue(test *testing.T) {
	test.Parallel()
	promos := []Promo{
		{Code: "BIG", Type: PromoTypePercent, Value: 20, MinOrderValue: floatPointer(5000)},
		{Code: "SHIP", Type: PromoTypeFreeShipping, MinOrderValue: floatPointer(1000)},
	}
	best, ok := PickBestPromo(promos, 1000, 120)
	if !ok || best.Code != "SHIP" {
		test.Fatalf("expected SHIP, got %+v (ok=%v)", best, ok)
	}
	if _, ok := PickBestPromo(promos, 999, 120); ok {
		test.Fatalf("expected no eligible promo below every minimum")
	}
}

func TestPickBestPromoTieBreaksByDiscountThenOrder(test *testing.T) {
	test.Parallel()
	promos := []Promo{
		{Code: "FIVE", Type: PromoTypePercent, Value: 5},
		{Code: "TWELVE", Type: PromoTypePercent, Value: 12},
		{Code: "TWELVE-B", Type: PromoTypePercent, Value: 12},
		{Code: "FLAT", Type: PromoTypeFixed, Value: 900},
	}
	best, ok := PickBestPromo(promos, 1000, 0)
	if !ok || best.Code != "TWELVE" {
		test.Fatalf("expected TWELVE, got %+v (ok=%v)", best, ok)
	}
}

func TestPickBestPromoSkipsUnknownTypes(test *testing.T) {
	test.Parallel()
	promos := []Promo{{Code: "GIFT", Type: PromoType("gift"), Value: 999}, {Code: "SHIP", Type: PromoTypeFreeShipping}}
	best, ok := PickBestPromo(promos, 1000, 60)
	if !ok || best.Code != "SHIP" {
		test.Fatalf("expected SHIP, got %+v (ok=%v)", best, ok)
	}
}

func TestParsePromoType(test *testing.T) {
	test.Parallel()
	parsed, err := ParsePromoType(" Free_Shipping ")
	if err != nil {
		test.Fatalf("unexpected error: %v", err)
	}
	if parsed != PromoTypeFreeShipping {
		test.Fatalf("expected free_shipping, got %s", parsed)
	}
	if _, err := ParsePromoType("bogo"); !errors.Is(err, ErrInvalidPromoType) {
		test.Fatalf("expected ErrInvalidPromoType, got %v", err)
	}
}

func TestNewPromoCode(test *testing.T) {
	test.Parallel()
	code, err := NewPromoCode("  diwali10 ")
	if err != nil {
		test.Fatalf("unexpected error: %v", err)
	}
	if code.String() != "DIWALI10" {
		test.Fatalf("expected DIWALI10, got %q", code.String())
	}
	if _, err := NewPromoCode("   "); !errors.Is(err, ErrInvalidPromoCode) {
		test.Fatalf("expected ErrInvalidPromoCode, got %v", err)
	}
}

func TestFindPromo(test *testing.T) {
	test.Parallel()
	promos := []Promo{{Code: "Gold5", Type: PromoTypePercent, Value: 5}}
	found, ok := FindPromo(promos, "gold5")
	if !ok || found.Value != 5 {
		test.Fatalf("expected to find GOLD5, got %+v (ok=%v)", found, ok)
	}
	if _, ok := FindPromo(promos, "silver"); ok {
		test.Fatalf("expected no match")
	}
}
