// Package shopper holds one visitor's login, cart, and checkout state.
package shopper

import (
	"context"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Shopper composes a visitor's identity, auth, cart, and checkout session.
type Shopper struct {
	visitorID clientstate.VisitorID
	sessionID string
	api       *storeapi.Client
	state     clientstate.Scoped
	auth      *AuthStore
	cart      *CartStore
	settings  settings

	mutex           sync.Mutex
	closed          bool
	session         *checkout.Session
	sessionCartID   string
	userID          string
	unsubscribeAuth func()
}

// New restores the visitor's persisted state and scopes client to it.
func New(ctx context.Context, client *storeapi.Client, store clientstate.Store, visitorID clientstate.VisitorID, options ...Option) (*Shopper, error) {
	if visitorID.IsZero() {
		return nil, wrapShopperError(errorSubjectIdentity, errorCodeRestore, clientstate.ErrInvalidVisitorID)
	}
	settings := newSettings(options)
	state := clientstate.Scope(store, visitorID)

	sessionID, err := bootstrapIdentity(ctx, store, visitorID, settings.logger)
	if err != nil {
		return nil, err
	}

	identity := storeapi.Identity{VisitorID: visitorID.String(), SessionID: sessionID}
	auth, err := NewAuthStore(ctx, client.As(nil, identity), state, options...)
	if err != nil {
		return nil, err
	}
	api := client.As(auth, identity)
	cart, err := NewCartStore(ctx, api, state, options...)
	if err != nil {
		return nil, err
	}
	shopper := &Shopper{
		visitorID: visitorID,
		sessionID: sessionID,
		api:       api,
		state:     state,
		auth:      auth,
		cart:      cart,
		settings:  settings,
	}
	shopper.userID = userID(auth.Current())
	shopper.unsubscribeAuth = auth.Subscribe(shopper.onAuthChange)
	return shopper, nil
}

func userID(state AuthState) string {
	if state.User == nil {
		return ""
	}
	return state.User.ID
}

// bootstrapIdentity registers the visitor and restores or mints its session id in one transaction.
func bootstrapIdentity(ctx context.Context, store clientstate.Store, visitorID clientstate.VisitorID, logger *zap.Logger) (string, error) {
	var (
		sessionID string
		created   bool
	)
	err := clientstate.RunInTx(ctx, store, func(ctx context.Context, txStore clientstate.Store) error {
		var err error
		created, err = txStore.RegisterVisitor(ctx, visitorID)
		if err != nil {
			return wrapShopperError(errorSubjectIdentity, errorCodeRestore, err)
		}
		state := clientstate.Scope(txStore, visitorID)
		if err := state.Put(ctx, clientstate.KeyVisitorID, visitorID.String()); err != nil {
			return wrapShopperError(errorSubjectIdentity, errorCodePersist, err)
		}
		sessionID, err = restoreSessionID(ctx, state)
		return err
	})
	if err != nil {
		return "", err
	}
	if created {
		logger.Info("visitor registered", zap.String("visitor_id", visitorID.String()))
	}
	return sessionID, nil
}

func restoreSessionID(ctx context.Context, state clientstate.Scoped) (string, error) {
	sessionID, found, err := state.Lookup(ctx, clientstate.KeySessionID)
	if err != nil {
		return "", wrapShopperError(errorSubjectIdentity, errorCodeRestore, err)
	}
	if found && strings.TrimSpace(sessionID) != "" {
		return sessionID, nil
	}
	sessionID = uuid.NewString()
	if err := state.Put(ctx, clientstate.KeySessionID, sessionID); err != nil {
		return "", wrapShopperError(errorSubjectIdentity, errorCodePersist, err)
	}
	return sessionID, nil
}

// VisitorID returns the browser's visitor id.
func (shopper *Shopper) VisitorID() clientstate.VisitorID {
	return shopper.visitorID
}

// SessionID returns the browsing session id.
func (shopper *Shopper) SessionID() string {
	return shopper.sessionID
}

// API returns the remote client authenticated as this shopper.
func (shopper *Shopper) API() *storeapi.Client {
	return shopper.api
}

// Auth returns the login state.
func (shopper *Shopper) Auth() *AuthStore {
	return shopper.auth
}

// Cart returns the cart state.
func (shopper *Shopper) Cart() *CartStore {
	return shopper.cart
}

// Checkout returns the checkout session for the held cart, starting one when the cart changed.
// A finished session stays readable after its cart is forgotten.
func (shopper *Shopper) Checkout() (*checkout.Session, error) {
	shopper.mutex.Lock()
	defer shopper.mutex.Unlock()
	if shopper.closed {
		return nil, wrapShopperError(errorSubjectCheckout, errorCodeLoad, ErrShopperClosed)
	}
	cartID := shopper.cart.CartID()
	if shopper.session != nil && (cartID == "" || cartID == shopper.sessionCartID) {
		return shopper.session, nil
	}
	if cartID == "" {
		return nil, wrapShopperError(errorSubjectCheckout, errorCodeLoad, ErrEmptyCart)
	}
	session, err := checkout.NewSession(shopper.api, cartID, shopper.settings.sessionOptions...)
	if err != nil {
		return nil, wrapShopperError(errorSubjectCheckout, errorCodeCreate, err)
	}
	if shopper.session != nil {
		shopper.session.Close()
	}
	shopper.session = session
	shopper.sessionCartID = cartID
	return session, nil
}

// AdvanceCheckout moves the checkout one step forward and forgets the cart once payment is confirmed.
func (shopper *Shopper) AdvanceCheckout(ctx context.Context) (checkout.Snapshot, error) {
	session, err := shopper.Checkout()
	if err != nil {
		return checkout.Snapshot{}, err
	}
	if err := session.Next(ctx); err != nil {
		return session.Snapshot(), err
	}
	snapshot := session.Snapshot()
	if snapshot.Step == checkout.StepDone && snapshot.Payment != nil && shopper.cart.CartID() == snapshot.CartID {
		if err := shopper.cart.Forget(ctx); err != nil {
			shopper.settings.logger.Warn("forget paid cart failed", zap.String("cart_id", snapshot.CartID), zap.Error(err))
		}
	}
	return snapshot, nil
}

// onAuthChange drops the checkout when a different customer logs in or out; token refreshes keep it.
func (shopper *Shopper) onAuthChange(state AuthState) {
	shopper.mutex.Lock()
	defer shopper.mutex.Unlock()
	current := userID(state)
	if current == shopper.userID {
		return
	}
	shopper.userID = current
	shopper.resetCheckoutLocked()
}

// ResetCheckout discards the checkout session so the next visit starts from the address step.
func (shopper *Shopper) ResetCheckout() {
	shopper.mutex.Lock()
	defer shopper.mutex.Unlock()
	shopper.resetCheckoutLocked()
}

func (shopper *Shopper) resetCheckoutLocked() {
	if shopper.session != nil {
		shopper.session.Close()
		shopper.session = nil
		shopper.sessionCartID = ""
	}
}

// Close aborts in-flight checkout work and detaches subscriptions.
func (shopper *Shopper) Close() {
	shopper.mutex.Lock()
	if shopper.closed {
		shopper.mutex.Unlock()
		return
	}
	shopper.closed = true
	unsubscribe := shopper.unsubscribeAuth
	shopper.unsubscribeAuth = nil
	if shopper.session != nil {
		shopper.session.Close()
		shopper.session = nil
	}
	shopper.mutex.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Forget revokes any login, closes the shopper, and erases the visitor's persisted state.
// A later request for the same visitor starts from a blank identity.
func (shopper *Shopper) Forget(ctx context.Context) error {
	if err := shopper.auth.Logout(ctx); err != nil {
		shopper.settings.logger.Warn("logout during reset failed", zap.Error(err))
	}
	shopper.Close()
	if err := shopper.state.Clear(ctx); err != nil {
		return wrapShopperError(errorSubjectIdentity, errorCodePersist, err)
	}
	return nil
}
