package storeapi

import (
	"context"
	"net/http"

	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
)

// CreateCart opens an anonymous cart.
func (client *Client) CreateCart(ctx context.Context) (checkout.CartSnapshot, error) {
	var cart checkout.CartSnapshot
	err := client.post(ctx, "/cart", struct{}{}, &cart)
	return cart, err
}

// Cart fetches a cart by id.
func (client *Client) Cart(ctx context.Context, cartID string) (checkout.CartSnapshot, error) {
	var cart checkout.CartSnapshot
	err := client.get(ctx, "/cart/"+segment(cartID), nil, &cart)
	return cart, err
}

// AddCartItem adds a product to a cart.
func (client *Client) AddCartItem(ctx context.Context, cartID string, item CartItemRequest) error {
	return client.post(ctx, "/cart/"+segment(cartID)+"/items", item, nil)
}

// UpdateCartItem changes a line's quantity.
func (client *Client) UpdateCartItem(ctx context.Context, cartID string, itemID string, quantity int) error {
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}
	return client.do(ctx, http.MethodPatch, "/cart/"+segment(cartID)+"/items/"+segment(itemID), nil, body, nil)
}

// RemoveCartItem deletes a line.
func (client *Client) RemoveCartItem(ctx context.Context, cartID string, itemID string) error {
	return client.do(ctx, http.MethodDelete, "/cart/"+segment(cartID)+"/items/"+segment(itemID), nil, nil, nil)
}

// Wishlist lists the customer's saved products.
func (client *Client) Wishlist(ctx context.Context) ([]WishlistItem, error) {
	var items []WishlistItem
	err := client.get(ctx, "/wishlist", nil, &items)
	return items, err
}

// AddToWishlist saves a product.
func (client *Client) AddToWishlist(ctx context.Context, productID string) error {
	body := struct {
		ProductID string `json:"product_id"`
	}{ProductID: productID}
	return client.post(ctx, "/wishlist", body, nil)
}

// RemoveFromWishlist drops a saved product.
func (client *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return client.do(ctx, http.MethodDelete, "/wishlist/"+segment(productID), nil, nil, nil)
}

// Addresses lists the customer's addresses.
func (client *Client) Addresses(ctx context.Context) ([]checkout.Address, error) {
	var addresses []checkout.Address
	err := client.get(ctx, "/customer-addresses", nil, &addresses)
	return addresses, err
}

// CreateAddress stores a new address.
func (client *Client) CreateAddress(ctx context.Context, address checkout.Address) (checkout.Address, error) {
	var created checkout.Address
	err := client.post(ctx, "/customer-addresses", address, &created)
	return created, err
}
