package checkout

import (
	"context"
	"fmt"
	"strings"
)

// PromoType enumerates discount rule kinds.
type PromoType string

const (
	PromoTypePercent      PromoType = "percent"
	PromoTypeFixed        PromoType = "fixed"
	PromoTypeFreeShipping PromoType = "free_shipping"
)

// ParsePromoType validates a raw promo type.
func ParsePromoType(raw string) (PromoType, error) {
	switch PromoType(strings.TrimSpace(strings.ToLower(raw))) {
	case PromoTypePercent:
		return PromoTypePercent, nil
	case PromoTypeFixed:
		return PromoTypeFixed, nil
	case PromoTypeFreeShipping:
		return PromoTypeFreeShipping, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPromoType, raw)
	}
}

// String returns the wire value.
func (promoType PromoType) String() string {
	return string(promoType)
}

// priority ranks promo types for auto-selection; unknown types never win.
func (promoType PromoType) priority() int {
	switch promoType {
	case PromoTypePercent:
		return priorityPercent
	case PromoTypeFixed:
		return priorityFixed
	case PromoTypeFreeShipping:
		return priorityFreeShipping
	default:
		return 0
	}
}

// PromoCode is a normalized discount code.
type PromoCode struct {
	value string
}

// NewPromoCode trims and upper-cases a code.
func NewPromoCode(raw string) (PromoCode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return PromoCode{}, fmt.Errorf("%w: empty value", ErrInvalidPromoCode)
	}
	return PromoCode{value: trimmed}, nil
}

// String returns the normalized code.
func (code PromoCode) String() string {
	return code.value
}

// Promo is a server-defined discount rule.
type Promo struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Type          PromoType `json:"type"`
	Value         float64   `json:"value"`
	MinOrderValue *float64  `json:"min_order_value,omitempty"`
}

// eligible reports whether the promo's minimum order value is met.
func (promo Promo) eligible(subtotal float64) bool {
	if promo.MinOrderValue == nil {
		return true
	}
	return *promo.MinOrderValue <= subtotal
}

// Amounts are the server-computed base totals of a checkout.
type Amounts struct {
	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	ShippingTotal float64 `json:"shipping_total"`
	TaxTotal      float64 `json:"tax_total"`
	GrandTotal    float64 `json:"grand_total"`
}

// EffectiveAmounts are the totals after a locally selected promo is applied atop Amounts.
type EffectiveAmounts struct {
	Amounts
	PromoCode     string  `json:"promo_code,omitempty"`
	PromoDiscount float64 `json:"promo_discount"`
	FreeShipping  bool    `json:"free_shipping"`
}

// LineItem is one priced row of a cart or checkout summary.
type LineItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Slug      string  `json:"slug,omitempty"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"image_url,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// CartSnapshot is the server's view of a cart.
type CartSnapshot struct {
	ID    string     `json:"id"`
	Items []LineItem `json:"items"`
	Total float64    `json:"total"`
}

// CheckoutSummary is fetched per address selection and never mutated.
type CheckoutSummary struct {
	CartID          string     `json:"cart_id"`
	Items           []LineItem `json:"items"`
	Amounts         Amounts    `json:"amounts"`
	AvailablePromos []Promo    `json:"available_promos"`
}

// Address is a customer shipping or billing address.
type Address struct {
	ID                string `json:"id"`
	Name              string `json:"name,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Line1             string `json:"line1"`
	Line2             string `json:"line2,omitempty"`
	City              string `json:"city"`
	State             string `json:"state,omitempty"`
	PostalCode        string `json:"postal_code"`
	Country           string `json:"country"`
	IsDefaultShipping bool   `json:"is_default_shipping"`
	IsDefaultBilling  bool   `json:"is_default_billing"`
}

// OrderReceipt is returned by the server once an order is placed.
type OrderReceipt struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number,omitempty"`
	Status      string  `json:"status,omitempty"`
	Amounts     Amounts `json:"amounts"`
}

// PaymentReceipt is returned by the server when payment is confirmed.
type PaymentReceipt struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Mode    string `json:"mode,omitempty"`
}

// SummaryRequest asks the server for base checkout totals.
type SummaryRequest struct {
	CartID    string `json:"cart_id"`
	AddressID string `json:"address_id"`
}

// PromoRequest asks the server to validate a promo against a cart.
type PromoRequest struct {
	CartID    string `json:"cart_id"`
	AddressID string `json:"address_id,omitempty"`
	Code      string `json:"code"`
}

// PlaceOrderRequest creates an order from a cart.
type PlaceOrderRequest struct {
	CartID    string `json:"cart_id"`
	AddressID string `json:"address_id"`
	PromoCode string `json:"promo_code,omitempty"`
}

// PaymentRequest confirms payment for a placed order.
type PaymentRequest struct {
	OrderID string `json:"order_id"`
	Mode    string `json:"mode,omitempty"`
}

// Backend is the remote contract the checkout session drives.
// The REST client in internal/storeapi implements it.
type Backend interface {
	CheckoutSummary(ctx context.Context, request SummaryRequest) (CheckoutSummary, error)
	ApplyPromo(ctx context.Context, request PromoRequest) (Promo, error)
	PlaceOrder(ctx context.Context, request PlaceOrderRequest) (OrderReceipt, error)
	Pay(ctx context.Context, request PaymentRequest) (PaymentReceipt, error)
}
