package shopper

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// AuthAPI is the slice of the remote API the auth store drives.
type AuthAPI interface {
	Login(ctx context.Context, credentials storeapi.Credentials) (storeapi.AuthSession, error)
	Register(ctx context.Context, registration storeapi.Registration) (storeapi.AuthSession, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (storeapi.AuthSession, error)
}

// AuthState is the shopper's login state.
type AuthState struct {
	Token     string         `json:"-"`
	User      *storeapi.User `json:"user,omitempty"`
	ExpiresAt time.Time      `json:"expires_at,omitempty"`
}

// LoggedIn reports whether a token is held.
func (state AuthState) LoggedIn() bool {
	return state.Token != ""
}

// AuthStore owns the bearer token and the cached user profile.
type AuthStore struct {
	api    AuthAPI
	state  clientstate.Scoped
	skew   time.Duration
	now    func() time.Time
	logger *zap.Logger

	refreshGroup singleflight.Group

	mutex            sync.RWMutex
	current          AuthState
	subscribers      map[int]func(AuthState)
	nextSubscriberID int
}

// NewAuthStore restores any persisted login for the scoped visitor.
func NewAuthStore(ctx context.Context, api AuthAPI, state clientstate.Scoped, options ...Option) (*AuthStore, error) {
	if api == nil {
		return nil, errors.New("shopper: auth api is nil")
	}
	settings := newSettings(options)
	store := &AuthStore{
		api:         api,
		state:       state,
		skew:        settings.refreshSkew,
		now:         settings.now,
		logger:      settings.logger,
		subscribers: map[int]func(AuthState){},
	}
	token, found, err := state.Lookup(ctx, clientstate.KeyAuthToken)
	if err != nil {
		return nil, wrapShopperError(errorSubjectAuth, errorCodeRestore, err)
	}
	if !found || strings.TrimSpace(token) == "" {
		return store, nil
	}
	restored := AuthState{Token: token, ExpiresAt: tokenExpiry(token)}
	if rawUser, found, err := state.Lookup(ctx, clientstate.KeyAuthUser); err == nil && found {
		var user storeapi.User
		if json.Unmarshal([]byte(rawUser), &user) == nil {
			restored.User = &user
		}
	}
	store.current = restored
	return store, nil
}

// Current returns the login state.
func (store *AuthStore) Current() AuthState {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.current
}

// BearerToken returns the token sent on authenticated calls.
func (store *AuthStore) BearerToken() string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.current.Token
}

// Subscribe registers fn to receive the state after every change.
func (store *AuthStore) Subscribe(fn func(AuthState)) func() {
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

// Login exchanges credentials for a token and persists it.
func (store *AuthStore) Login(ctx context.Context, credentials storeapi.Credentials) (AuthState, error) {
	credentials.Email = strings.TrimSpace(credentials.Email)
	if credentials.Email == "" || credentials.Password == "" {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeLogin, ErrMissingCredentials)
	}
	session, err := store.api.Login(ctx, credentials)
	if err != nil {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeLogin, err)
	}
	return store.adopt(ctx, session, errorCodeLogin)
}

// Register creates an account and logs it in.
func (store *AuthStore) Register(ctx context.Context, registration storeapi.Registration) (AuthState, error) {
	registration.Email = strings.TrimSpace(registration.Email)
	if registration.Email == "" || registration.Password == "" {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeRegister, ErrMissingCredentials)
	}
	session, err := store.api.Register(ctx, registration)
	if err != nil {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeRegister, err)
	}
	return store.adopt(ctx, session, errorCodeRegister)
}

// Logout revokes the token remotely and always forgets it locally.
func (store *AuthStore) Logout(ctx context.Context) error {
	token := store.BearerToken()
	if token != "" {
		if err := store.api.Logout(ctx, token); err != nil {
			store.logger.Warn("remote logout failed", zap.Error(err))
		}
	}
	return store.forget(ctx)
}

// Refresh trades the held token for a fresh one; an unauthorized reply logs the shopper out.
// Concurrent refreshes of the same token share one remote call.
func (store *AuthStore) Refresh(ctx context.Context) (AuthState, error) {
	token := store.BearerToken()
	if token == "" {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeRefresh, ErrNotAuthenticated)
	}
	return store.refreshToken(ctx, token)
}

// EnsureFresh refreshes the token when its exp claim falls within the refresh skew.
func (store *AuthStore) EnsureFresh(ctx context.Context) error {
	current := store.Current()
	if !store.needsRefresh(current) {
		return nil
	}
	_, err := store.refreshToken(ctx, current.Token)
	return err
}

func (store *AuthStore) needsRefresh(state AuthState) bool {
	if !state.LoggedIn() || state.ExpiresAt.IsZero() {
		return false
	}
	return !store.now().Add(store.skew).Before(state.ExpiresAt)
}

func (store *AuthStore) refreshToken(ctx context.Context, token string) (AuthState, error) {
	result, err, _ := store.refreshGroup.Do(token, func() (any, error) {
		// A flight that finished between the caller's read and this one already rotated the token.
		if current := store.Current(); current.Token != token {
			if !current.LoggedIn() {
				return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeRefresh, ErrNotAuthenticated)
			}
			return current, nil
		}
		return store.rotate(context.WithoutCancel(ctx), token)
	})
	if err != nil {
		return AuthState{}, err
	}
	return result.(AuthState), nil
}

func (store *AuthStore) rotate(ctx context.Context, token string) (AuthState, error) {
	session, err := store.api.Refresh(ctx, token)
	if storeapi.IsUnauthorized(err) {
		if forgetErr := store.forgetToken(ctx, token); forgetErr != nil {
			store.logger.Warn("forget expired token failed", zap.Error(forgetErr))
		}
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeRefresh, errors.Join(ErrNotAuthenticated, err))
	}
	if err != nil {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodeRefresh, err)
	}
	if session.User.ID == "" {
		if current := store.Current(); current.User != nil {
			session.User = *current.User
		}
	}
	return store.adopt(ctx, session, errorCodeRefresh)
}

func (store *AuthStore) adopt(ctx context.Context, session storeapi.AuthSession, code string) (AuthState, error) {
	token := strings.TrimSpace(session.Token)
	if token == "" {
		return AuthState{}, wrapShopperError(errorSubjectAuth, code, ErrMissingToken)
	}
	user := session.User
	next := AuthState{Token: token, User: &user, ExpiresAt: tokenExpiry(token)}
	if err := store.state.Put(ctx, clientstate.KeyAuthToken, token); err != nil {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodePersist, err)
	}
	encodedUser, err := json.Marshal(user)
	if err != nil {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodePersist, err)
	}
	if err := store.state.Put(ctx, clientstate.KeyAuthUser, string(encodedUser)); err != nil {
		return AuthState{}, wrapShopperError(errorSubjectAuth, errorCodePersist, err)
	}
	store.set(next)
	return next, nil
}

func (store *AuthStore) forget(ctx context.Context) error {
	store.set(AuthState{})
	return store.deletePersisted(ctx)
}

// forgetToken logs out only while token is still the held one.
func (store *AuthStore) forgetToken(ctx context.Context, token string) error {
	if !store.setIf(token, AuthState{}) {
		return nil
	}
	return store.deletePersisted(ctx)
}

func (store *AuthStore) deletePersisted(ctx context.Context) error {
	deleteTokenErr := store.state.Delete(ctx, clientstate.KeyAuthToken)
	deleteUserErr := store.state.Delete(ctx, clientstate.KeyAuthUser)
	if err := errors.Join(deleteTokenErr, deleteUserErr); err != nil {
		return wrapShopperError(errorSubjectAuth, errorCodePersist, err)
	}
	return nil
}

func (store *AuthStore) set(next AuthState) {
	store.mutex.Lock()
	store.current = next
	subscribers := store.subscriberListLocked()
	store.mutex.Unlock()
	for _, subscriber := range subscribers {
		subscriber(next)
	}
}

func (store *AuthStore) setIf(expectedToken string, next AuthState) bool {
	store.mutex.Lock()
	if store.current.Token != expectedToken {
		store.mutex.Unlock()
		return false
	}
	store.current = next
	subscribers := store.subscriberListLocked()
	store.mutex.Unlock()
	for _, subscriber := range subscribers {
		subscriber(next)
	}
	return true
}

func (store *AuthStore) subscriberListLocked() []func(AuthState) {
	subscribers := make([]func(AuthState), 0, len(store.subscribers))
	for _, subscriber := range store.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	return subscribers
}

// tokenExpiry reads the exp claim without verifying the signature; the API verifies tokens.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}
	}
	return expiresAt.Time
}
