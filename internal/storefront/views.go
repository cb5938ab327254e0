package storefront

import (
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
)

type displayAmounts struct {
	Subtotal      string `json:"subtotal"`
	DiscountTotal string `json:"discount_total"`
	ShippingTotal string `json:"shipping_total"`
	TaxTotal      string `json:"tax_total"`
	GrandTotal    string `json:"grand_total"`
	PromoDiscount string `json:"promo_discount,omitempty"`
}

type checkoutView struct {
	Step              string                     `json:"step"`
	StepNumber        int                        `json:"step_number"`
	CartID            string                     `json:"cart_id"`
	AddressID         string                     `json:"address_id,omitempty"`
	Items             []checkout.LineItem        `json:"items"`
	AvailablePromos   []checkout.Promo           `json:"available_promos"`
	SelectedPromo     *checkout.Promo            `json:"selected_promo,omitempty"`
	PromoAuto         bool                       `json:"promo_auto"`
	PromoLockedByUser bool                       `json:"promo_locked_by_user"`
	Amounts           *checkout.EffectiveAmounts `json:"amounts,omitempty"`
	Display           *displayAmounts            `json:"display,omitempty"`
	Currency          string                     `json:"currency"`
	Order             *checkout.OrderReceipt     `json:"order,omitempty"`
	Payment           *checkout.PaymentReceipt   `json:"payment,omitempty"`
	Pending           bool                       `json:"pending"`
	Notice            *checkout.Notice           `json:"notice,omitempty"`
}

func newCheckoutView(snapshot checkout.Snapshot, composer checkout.Composer) checkoutView {
	view := checkoutView{
		Step:              snapshot.Step.String(),
		StepNumber:        int(snapshot.Step),
		CartID:            snapshot.CartID,
		AddressID:         snapshot.AddressID,
		Items:             []checkout.LineItem{},
		AvailablePromos:   []checkout.Promo{},
		SelectedPromo:     snapshot.SelectedPromo,
		PromoAuto:         snapshot.PromoAuto,
		PromoLockedByUser: snapshot.PromoLockedByUser,
		Amounts:           snapshot.Effective,
		Currency:          composer.CurrencyCode(),
		Order:             snapshot.Order,
		Payment:           snapshot.Payment,
		Pending:           snapshot.Pending,
		Notice:            snapshot.Notice,
	}
	if snapshot.Summary != nil {
		if snapshot.Summary.Items != nil {
			view.Items = snapshot.Summary.Items
		}
		if snapshot.Summary.AvailablePromos != nil {
			view.AvailablePromos = snapshot.Summary.AvailablePromos
		}
	}
	if snapshot.Effective != nil {
		display := displayAmounts{
			Subtotal:      composer.Format(snapshot.Effective.Subtotal),
			DiscountTotal: composer.Format(snapshot.Effective.DiscountTotal),
			ShippingTotal: composer.Format(snapshot.Effective.ShippingTotal),
			TaxTotal:      composer.Format(snapshot.Effective.TaxTotal),
			GrandTotal:    composer.Format(snapshot.Effective.GrandTotal),
		}
		if snapshot.Effective.PromoDiscount > 0 {
			display.PromoDiscount = composer.Format(snapshot.Effective.PromoDiscount)
		}
		view.Display = &display
	}
	return view
}

type cartView struct {
	Cart         checkout.CartSnapshot `json:"cart"`
	ItemCount    int                   `json:"item_count"`
	DisplayTotal string                `json:"display_total"`
}

func newCartView(state shopper.CartState, composer checkout.Composer) cartView {
	cart := state.Cart
	if cart.Items == nil {
		cart.Items = []checkout.LineItem{}
	}
	return cartView{Cart: cart, ItemCount: state.ItemCount(), DisplayTotal: composer.Format(cart.Total)}
}

type authView struct {
	LoggedIn  bool           `json:"logged_in"`
	User      *storeapi.User `json:"user,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func newAuthView(state shopper.AuthState) authView {
	view := authView{LoggedIn: state.LoggedIn(), User: state.User}
	if !state.ExpiresAt.IsZero() {
		expiresAt := state.ExpiresAt.UTC()
		view.ExpiresAt = &expiresAt
	}
	return view
}
