package storeapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
)

var _ checkout.Backend = (*Client)(nil)

// CheckoutSummary fetches base totals for a cart shipped to an address.
func (client *Client) CheckoutSummary(ctx context.Context, request checkout.SummaryRequest) (checkout.CheckoutSummary, error) {
	var summary checkout.CheckoutSummary
	err := client.post(ctx, "/checkout/summary", request, &summary)
	return summary, err
}

// ApplyPromo asks the server to validate a promo code for a cart.
func (client *Client) ApplyPromo(ctx context.Context, request checkout.PromoRequest) (checkout.Promo, error) {
	var raw json.RawMessage
	if err := client.post(ctx, "/checkout/apply-promo", request, &raw); err != nil {
		return checkout.Promo{}, err
	}
	return decodePromo(raw)
}

// decodePromo accepts both {"promo": {...}} and a bare promo object.
func decodePromo(raw json.RawMessage) (checkout.Promo, error) {
	var wrapped struct {
		Promo *checkout.Promo `json:"promo"`
	}
	if len(raw) == 0 {
		return checkout.Promo{}, nil
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return checkout.Promo{}, fmt.Errorf("storeapi: decode promo: %w", err)
	}
	if wrapped.Promo != nil {
		return *wrapped.Promo, nil
	}
	var promo checkout.Promo
	if err := json.Unmarshal(raw, &promo); err != nil {
		return checkout.Promo{}, fmt.Errorf("storeapi: decode promo: %w", err)
	}
	return promo, nil
}

// PlaceOrder creates an order from the cart.
func (client *Client) PlaceOrder(ctx context.Context, request checkout.PlaceOrderRequest) (checkout.OrderReceipt, error) {
	var receipt checkout.OrderReceipt
	err := client.post(ctx, "/checkout/place-order", request, &receipt)
	return receipt, err
}

// Pay confirms payment for a placed order.
func (client *Client) Pay(ctx context.Context, request checkout.PaymentRequest) (checkout.PaymentReceipt, error) {
	var receipt checkout.PaymentReceipt
	err := client.post(ctx, "/checkout/pay", request, &receipt)
	return receipt, err
}
