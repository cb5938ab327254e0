package shopper

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"go.uber.org/zap"
)

// CartAPI is the slice of the remote API the cart store drives.
type CartAPI interface {
	CreateCart(ctx context.Context) (checkout.CartSnapshot, error)
	Cart(ctx context.Context, cartID string) (checkout.CartSnapshot, error)
	AddCartItem(ctx context.Context, cartID string, item storeapi.CartItemRequest) error
	UpdateCartItem(ctx context.Context, cartID string, itemID string, quantity int) error
	RemoveCartItem(ctx context.Context, cartID string, itemID string) error
}

// CartState is the last cart snapshot fetched from the server.
type CartState struct {
	Cart checkout.CartSnapshot `json:"cart"`
}

// ItemCount sums line quantities.
func (state CartState) ItemCount() int {
	count := 0
	for _, item := range state.Cart.Items {
		count += item.Quantity
	}
	return count
}

// CartStore tracks the anonymous cart and refetches it after every mutation.
type CartStore struct {
	api    CartAPI
	state  clientstate.Scoped
	logger *zap.Logger

	writeMutex sync.Mutex

	mutex            sync.RWMutex
	cartID           string
	current          CartState
	subscribers      map[int]func(CartState)
	nextSubscriberID int
}

// NewCartStore restores the persisted anonymous cart id without fetching it.
func NewCartStore(ctx context.Context, api CartAPI, state clientstate.Scoped, options ...Option) (*CartStore, error) {
	if api == nil {
		return nil, errors.New("shopper: cart api is nil")
	}
	settings := newSettings(options)
	store := &CartStore{
		api:         api,
		state:       state,
		logger:      settings.logger,
		subscribers: map[int]func(CartState){},
	}
	cartID, found, err := state.Lookup(ctx, clientstate.KeyAnonCartID)
	if err != nil {
		return nil, wrapShopperError(errorSubjectCart, errorCodeRestore, err)
	}
	if found {
		store.cartID = strings.TrimSpace(cartID)
		store.current.Cart.ID = store.cartID
	}
	return store, nil
}

// CartID returns the held cart id, empty before the first add.
func (store *CartStore) CartID() string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.cartID
}

// Current returns the last good snapshot.
func (store *CartStore) Current() CartState {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.current
}

// Subscribe registers fn to receive the state after every change.
func (store *CartStore) Subscribe(fn func(CartState)) func() {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if fn == nil {
		return func() {}
	}
	subscriberID := store.nextSubscriberID
	store.nextSubscriberID++
	store.subscribers[subscriberID] = fn
	return func() {
		store.mutex.Lock()
		defer store.mutex.Unlock()
		delete(store.subscribers, subscriberID)
	}
}

// Load fetches the held cart; a cart the server no longer knows is forgotten.
func (store *CartStore) Load(ctx context.Context) (CartState, error) {
	store.writeMutex.Lock()
	defer store.writeMutex.Unlock()
	cartID := store.CartID()
	if cartID == "" {
		return store.Current(), nil
	}
	return store.refetch(ctx, cartID, errorCodeLoad)
}

// Add puts quantity units of productID in the cart, creating the cart on first use.
func (store *CartStore) Add(ctx context.Context, productID string, quantity int) (CartState, error) {
	item := storeapi.CartItemRequest{ProductID: strings.TrimSpace(productID), Quantity: quantity}
	if item.ProductID == "" {
		return store.Current(), wrapShopperError(errorSubjectCart, errorCodeAdd, ErrMissingProduct)
	}
	if quantity <= 0 {
		return store.Current(), wrapShopperError(errorSubjectCart, errorCodeAdd, ErrInvalidQuantity)
	}
	store.writeMutex.Lock()
	defer store.writeMutex.Unlock()

	cartID, err := store.ensureCart(ctx)
	if err != nil {
		return store.Current(), err
	}
	// One replacement cart is allowed when the server lost the held one, before or after the add.
	for replaced := false; ; replaced = true {
		err = store.api.AddCartItem(ctx, cartID, item)
		if storeapi.IsStatus(err, http.StatusNotFound) && !replaced {
			if cartID, err = store.replaceCart(ctx, cartID); err != nil {
				return store.Current(), err
			}
			continue
		}
		if err != nil {
			return store.Current(), wrapShopperError(errorSubjectCart, errorCodeAdd, err)
		}
		next, found, err := store.fetch(ctx, cartID, errorCodeAdd)
		if err != nil {
			return store.Current(), err
		}
		if found {
			return next, nil
		}
		if replaced {
			if forgetErr := store.forgetLocked(ctx); forgetErr != nil {
				store.logger.Warn("forget lost cart failed", zap.String("cart_id", cartID), zap.Error(forgetErr))
			}
			return store.Current(), wrapShopperError(errorSubjectCart, errorCodeAdd, ErrCartUnavailable)
		}
		if cartID, err = store.replaceCart(ctx, cartID); err != nil {
			return store.Current(), err
		}
	}
}

func (store *CartStore) replaceCart(ctx context.Context, staleCartID string) (string, error) {
	store.logger.Info("stale cart replaced", zap.String("cart_id", staleCartID))
	return store.createCart(ctx)
}

// Update sets a line's quantity; zero or less removes the line.
func (store *CartStore) Update(ctx context.Context, itemID string, quantity int) (CartState, error) {
	if quantity <= 0 {
		return store.Remove(ctx, itemID)
	}
	store.writeMutex.Lock()
	defer store.writeMutex.Unlock()
	cartID := store.CartID()
	if cartID == "" {
		return store.Current(), wrapShopperError(errorSubjectCart, errorCodeUpdate, ErrEmptyCart)
	}
	if err := store.api.UpdateCartItem(ctx, cartID, itemID, quantity); err != nil {
		return store.Current(), wrapShopperError(errorSubjectCart, errorCodeUpdate, err)
	}
	return store.refetch(ctx, cartID, errorCodeUpdate)
}

// Remove deletes a line.
func (store *CartStore) Remove(ctx context.Context, itemID string) (CartState, error) {
	store.writeMutex.Lock()
	defer store.writeMutex.Unlock()
	cartID := store.CartID()
	if cartID == "" {
		return store.Current(), wrapShopperError(errorSubjectCart, errorCodeRemove, ErrEmptyCart)
	}
	if err := store.api.RemoveCartItem(ctx, cartID, itemID); err != nil {
		return store.Current(), wrapShopperError(errorSubjectCart, errorCodeRemove, err)
	}
	return store.refetch(ctx, cartID, errorCodeRemove)
}

// Forget drops the held cart, used once its order is paid.
func (store *CartStore) Forget(ctx context.Context) error {
	store.writeMutex.Lock()
	defer store.writeMutex.Unlock()
	return store.forgetLocked(ctx)
}

func (store *CartStore) forgetLocked(ctx context.Context) error {
	store.set("", CartState{})
	if err := store.state.Delete(ctx, clientstate.KeyAnonCartID); err != nil {
		return wrapShopperError(errorSubjectCart, errorCodePersist, err)
	}
	return nil
}

func (store *CartStore) ensureCart(ctx context.Context) (string, error) {
	if cartID := store.CartID(); cartID != "" {
		return cartID, nil
	}
	return store.createCart(ctx)
}

func (store *CartStore) createCart(ctx context.Context) (string, error) {
	cart, err := store.api.CreateCart(ctx)
	if err != nil {
		return "", wrapShopperError(errorSubjectCart, errorCodeCreate, err)
	}
	cartID := strings.TrimSpace(cart.ID)
	if cartID == "" {
		return "", wrapShopperError(errorSubjectCart, errorCodeCreate, ErrEmptyCart)
	}
	if err := store.state.Put(ctx, clientstate.KeyAnonCartID, cartID); err != nil {
		return "", wrapShopperError(errorSubjectCart, errorCodePersist, err)
	}
	store.set(cartID, CartState{Cart: cart})
	return cartID, nil
}

func (store *CartStore) refetch(ctx context.Context, cartID string, code string) (CartState, error) {
	next, found, err := store.fetch(ctx, cartID, code)
	if err != nil {
		return store.Current(), err
	}
	if !found {
		if forgetErr := store.forgetLocked(ctx); forgetErr != nil {
			return store.Current(), forgetErr
		}
		return store.Current(), nil
	}
	return next, nil
}

// fetch loads cartID and adopts it; found is false when the server no longer knows the cart.
func (store *CartStore) fetch(ctx context.Context, cartID string, code string) (CartState, bool, error) {
	cart, err := store.api.Cart(ctx, cartID)
	if storeapi.IsStatus(err, http.StatusNotFound) {
		return CartState{}, false, nil
	}
	if err != nil {
		return CartState{}, false, wrapShopperError(errorSubjectCart, code, err)
	}
	if cart.ID == "" {
		cart.ID = cartID
	}
	next := CartState{Cart: cart}
	store.set(cartID, next)
	return next, true, nil
}

func (store *CartStore) set(cartID string, next CartState) {
	store.mutex.Lock()
	store.cartID = cartID
	store.current = next
	subscribers := make([]func(CartState), 0, len(store.subscribers))
	for _, subscriber := range store.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	store.mutex.Unlock()
	for _, subscriber := range subscribers {
		subscriber(next)
	}
}
