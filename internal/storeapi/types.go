package storeapi

import (
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
)

// Product is a catalogue entry.
type Product struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Category       string   `json:"category,omitempty"`
	Metal          string   `json:"metal,omitempty"`
	Purity         string   `json:"purity,omitempty"`
	WeightGrams    float64  `json:"weight_grams,omitempty"`
	Price          float64  `json:"price"`
	CompareAtPrice float64  `json:"compare_at_price,omitempty"`
	Images         []string `json:"images,omitempty"`
	InStock        bool     `json:"in_stock"`
}

// ProductQuery filters the product listing.
type ProductQuery struct {
	Category string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Category groups products.
type Category struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// CartItemRequest adds a product to a cart.
type CartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

// WishlistItem is a saved product.
type WishlistItem struct {
	ProductID string    `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// Order is a placed order as listed in the shopper's history.
type Order struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number,omitempty"`
	Status          string              `json:"status"`
	Items           []checkout.LineItem `json:"items"`
	Amounts         checkout.Amounts    `json:"amounts"`
	PromoCode       string              `json:"promo_code,omitempty"`
	ShippingAddress *checkout.Address   `json:"shipping_address,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// TimelineEvent is one status change of an order.
type TimelineEvent struct {
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

// LeadRequest is a contact or enquiry form submission.
type LeadRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	VisitorID string `json:"visitor_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Lead is a stored enquiry.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadNote is a follow-up note on a lead.
type LeadNote struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials log a customer in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates a customer account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// User is the authenticated customer.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ProfileUpdate edits the customer's profile.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AuthSession is returned by login, register, and refresh.
type AuthSession struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
