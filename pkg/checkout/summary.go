package checkout

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
)

// Composer derives EffectiveAmounts in a fixed currency.
type Composer struct {
	currencyCode string
}

// NewComposer returns a Composer rounding to the minor unit of currencyCode (ISO 4217).
// Unknown or empty codes fall back to INR.
func NewComposer(currencyCode string) Composer {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" || money.GetCurrency(code) == nil {
		code = defaultCurrencyCode
	}
	return Composer{currencyCode: code}
}

// CurrencyCode returns the composer's currency.
func (composer Composer) CurrencyCode() string {
	if composer.currencyCode == "" {
		return defaultCurrencyCode
	}
	return composer.currencyCode
}

// Compose merges server amounts with an optionally selected promo.
// Without a promo the server amounts pass through unchanged.
func (composer Composer) Compose(amounts Amounts, promo *Promo) EffectiveAmounts {
	if promo == nil {
		return EffectiveAmounts{Amounts: amounts}
	}
	effect := ComputePromoDiscount(*promo, amounts.Subtotal, amounts.ShippingTotal)
	effective := EffectiveAmounts{
		Amounts:       amounts,
		PromoCode:     promo.Code,
		PromoDiscount: composer.Round(effect.Amount),
		FreeShipping:  effect.FreeShipping,
	}
	discount := amounts.DiscountTotal
	shipping := amounts.ShippingTotal
	if effect.FreeShipping {
		shipping = 0
	} else {
		discount += effect.Amount
	}
	discount = clamp(discount, 0, math.Max(amounts.Subtotal, 0))

	effective.Subtotal = composer.Round(amounts.Subtotal)
	effective.DiscountTotal = composer.Round(discount)
	effective.ShippingTotal = composer.Round(shipping)
	effective.TaxTotal = composer.Round(amounts.TaxTotal)
	effective.GrandTotal = composer.grandTotal(effective.Amounts)
	return effective
}

// Settle reports the server's order totals in place of the preview. The promo
// attribution is kept; its saving is measured against the base summary when known.
func (composer Composer) Settle(settled Amounts, base *Amounts, promo *Promo) EffectiveAmounts {
	effective := EffectiveAmounts{Amounts: Amounts{
		Subtotal:      composer.Round(settled.Subtotal),
		DiscountTotal: composer.Round(settled.DiscountTotal),
		ShippingTotal: composer.Round(settled.ShippingTotal),
		TaxTotal:      composer.Round(settled.TaxTotal),
		GrandTotal:    composer.Round(settled.GrandTotal),
	}}
	if promo == nil {
		return effective
	}
	effective.PromoCode = promo.Code
	effective.FreeShipping = promo.Type == PromoTypeFreeShipping
	if base != nil {
		saved := settled.DiscountTotal - base.DiscountTotal
		if effective.FreeShipping {
			saved = base.ShippingTotal - settled.ShippingTotal
		}
		effective.PromoDiscount = composer.Round(math.Max(saved, 0))
	}
	return effective
}

// Round rounds value half away from zero to the currency's minor unit.
func (composer Composer) Round(value float64) float64 {
	currency := money.GetCurrency(composer.CurrencyCode())
	return money.New(composer.minorUnits(value), currency.Code).AsMajorUnits()
}

// grandTotal sums already-rounded components in minor units so the total matches its parts.
func (composer Composer) grandTotal(amounts Amounts) float64 {
	currency := money.GetCurrency(composer.CurrencyCode())
	minor := composer.minorUnits(amounts.Subtotal) - composer.minorUnits(amounts.DiscountTotal) +
		composer.minorUnits(amounts.ShippingTotal) + composer.minorUnits(amounts.TaxTotal)
	return money.New(minor, currency.Code).AsMajorUnits()
}

func (composer Composer) minorUnits(value float64) int64 {
	currency := money.GetCurrency(composer.CurrencyCode())
	return int64(math.Round(value * math.Pow10(currency.Fraction)))
}

// Format renders value with the currency's symbol and grouping.
func (composer Composer) Format(value float64) string {
	currency := money.GetCurrency(composer.CurrencyCode())
	scale := math.Pow10(currency.Fraction)
	return money.New(int64(math.Round(value*scale)), currency.Code).Display()
}

// ComposeEffectiveAmounts composes with the default INR composer.
func ComposeEffectiveAmounts(amounts Amounts, promo *Promo) EffectiveAmounts {
	return NewComposer(defaultCurrencyCode).Compose(amounts, promo)
}
