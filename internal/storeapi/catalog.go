package storeapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Products lists catalogue products.
func (client *Client) Products(ctx context.Context, query ProductQuery) (ProductPage, error) {
	values := url.Values{}
	if category := strings.TrimSpace(query.Category); category != "" {
		values.Set("category", category)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		values.Set("q", search)
	}
	if sort := strings.TrimSpace(query.Sort); sort != "" {
		values.Set("sort", sort)
	}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	var page ProductPage
	err := client.get(ctx, "/masters/products", values, &page)
	return page, err
}

// Product fetches one product by slug.
func (client *Client) Product(ctx context.Context, slug string) (Product, error) {
	var product Product
	err := client.get(ctx, "/masters/products/"+segment(slug), nil, &product)
	return product, err
}

// Categories lists product categories.
func (client *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := client.get(ctx, "/masters/categories", nil, &categories)
	return categories, err
}
