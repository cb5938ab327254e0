package shopper

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/golang-jwt/jwt/v5"
)

type stubAuthAPI struct {
	mutex         sync.Mutex
	loginSession  storeapi.AuthSession
	loginErr      error
	refreshResult storeapi.AuthSession
	refreshErr    error
	logoutErr     error
	refreshTokens []string
	logoutTokens  []string
}

func (stub *stubAuthAPI) Login(context.Context, storeapi.Credentials) (storeapi.AuthSession, error) {
	return stub.loginSession, stub.loginErr
}

func (stub *stubAuthAPI) Register(_ context.Context, registration storeapi.Registration) (storeapi.AuthSession, error) {
	session := stub.loginSession
	session.User.Email = registration.Email
	return session, stub.loginErr
}

func (stub *stubAuthAPI) Logout(_ context.Context, token string) error {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.logoutTokens = append(stub.logoutTokens, token)
	return stub.logoutErr
}

func (stub *stubAuthAPI) Refresh(_ context.Context, token string) (storeapi.AuthSession, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.refreshTokens = append(stub.refreshTokens, token)
	return stub.refreshResult, stub.refreshErr
}

func signedToken(test *testing.T, expiresAt time.Time) string {
	test.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": expiresAt.Unix(),
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		test.Fatalf("sign token: %v", err)
	}
	return token
}

func newScopedState(test *testing.T) (*clientstate.MemoryStore, clientstate.Scoped) {
	test.Helper()
	store := clientstate.NewMemoryStore()
	visitorID := clientstate.GenerateVisitorID()
	if _, err := store.RegisterVisitor(context.Background(), visitorID); err != nil {
		test.Fatalf("register: %v", err)
	}
	return store, clientstate.Scope(store, visitorID)
}

func TestLoginPersistsTokenAndUser(test *testing.T) {
	test.Parallel()
	ctx := context.Background()
	_, state := newScopedState(test)
	expiresAt := time.Unix(1_900_000_000, 0)
	token := signedToken(test, expiresAt)
	api := &stubAuthAPI{loginSession: storeapi.AuthSession{Token: token, User: storeapi.User{ID: "u1", Name: "Asha"}}}
	store, err := NewAuthStore(ctx, api, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	var notified []AuthState
	store.Subscribe(func(next AuthState) { notified = append(notified, next) })

	current, err := store.Login(ctx, storeapi.Credentials{Email: " asha@example.com ", Password: "secret"})
	if err != nil {
		test.Fatalf("login: %v", err)
	}
	if !current.LoggedIn() || current.User.Name != "Asha" || !current.ExpiresAt.Equal(expiresAt) {
		test.Fatalf("unexpected state %+v", current)
	}
	if len(notified) != 1 {
		test.Fatalf("expected one notification, got %d", len(notified))
	}

	restored, err := NewAuthStore(ctx, api, state)
	if err != nil {
		test.Fatalf("restore: %v", err)
	}
	if restored.BearerToken() != token || restored.Current().User == nil || restored.Current().User.ID != "u1" {
		test.Fatalf("expected persisted login, got %+v", restored.Current())
	}
}

func TestLoginRequiresCredentials(test *testing.T) {
	test.Parallel()
	_, state := newScopedState(test)
	store, err := NewAuthStore(context.Background(), &stubAuthAPI{}, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	_, err = store.Login(context.Background(), storeapi.Credentials{Email: "  ", Password: "x"})
	if !errors.Is(err, ErrMissingCredentials) {
		test.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestLoginRejectsMissingToken(test *testing.T) {
	test.Parallel()
	_, state := newScopedState(test)
	store, err := NewAuthStore(context.Background(), &stubAuthAPI{}, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	_, err = store.Login(context.Background(), storeapi.Credentials{Email: "a@example.com", Password: "x"})
	if !errors.Is(err, ErrMissingToken) {
		test.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if store.Current().LoggedIn() {
		test.Fatalf("expected to stay logged out")
	}
}

func TestLogoutClearsLocallyEvenWhenRemoteFails(test *testing.T) {
	test.Parallel()
	ctx := context.Background()
	_, state := newScopedState(test)
	api := &stubAuthAPI{
		loginSession: storeapi.AuthSession{Token: "opaque-token", User: storeapi.User{ID: "u1"}},
		logoutErr:    errors.New("network down"),
	}
	store, err := NewAuthStore(ctx, api, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	if _, err := store.Login(ctx, storeapi.Credentials{Email: "a@example.com", Password: "x"}); err != nil {
		test.Fatalf("login: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		test.Fatalf("logout: %v", err)
	}
	if store.Current().LoggedIn() {
		test.Fatalf("expected logged out")
	}
	if len(api.logoutTokens) != 1 || api.logoutTokens[0] != "opaque-token" {
		test.Fatalf("expected remote logout with token, got %v", api.logoutTokens)
	}
	if _, found, _ := state.Lookup(ctx, clientstate.KeyAuthToken); found {
		test.Fatalf("expected persisted token removed")
	}
}

func TestEnsureFresh(test *testing.T) {
	test.Parallel()
	now := time.Unix(1_800_000_000, 0)
	testCases := []struct {
		name        string
		expiresIn   time.Duration
		wantRefresh bool
	}{
		{name: "far from expiry", expiresIn: time.Hour, wantRefresh: false},
		{name: "inside skew", expiresIn: 30 * time.Second, wantRefresh: true},
		{name: "already expired", expiresIn: -time.Minute, wantRefresh: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			ctx := context.Background()
			_, state := newScopedState(test)
			oldToken := signedToken(test, now.Add(testCase.expiresIn))
			newToken := signedToken(test, now.Add(2*time.Hour))
			api := &stubAuthAPI{
				loginSession:  storeapi.AuthSession{Token: oldToken, User: storeapi.User{ID: "u1", Name: "Asha"}},
				refreshResult: storeapi.AuthSession{Token: newToken},
			}
			store, err := NewAuthStore(ctx, api, state, WithClock(func() time.Time { return now }), WithRefreshSkew(time.Minute))
			if err != nil {
				test.Fatalf("new auth store: %v", err)
			}
			if _, err := store.Login(ctx, storeapi.Credentials{Email: "a@example.com", Password: "x"}); err != nil {
				test.Fatalf("login: %v", err)
			}
			if err := store.EnsureFresh(ctx); err != nil {
				test.Fatalf("ensure fresh: %v", err)
			}
			refreshed := len(api.refreshTokens) == 1
			if refreshed != testCase.wantRefresh {
				test.Fatalf("expected refresh=%v, got calls %v", testCase.wantRefresh, api.refreshTokens)
			}
			if testCase.wantRefresh {
				if store.BearerToken() != newToken {
					test.Fatalf("expected new token")
				}
				if store.Current().User == nil || store.Current().User.Name != "Asha" {
					test.Fatalf("expected user kept across refresh, got %+v", store.Current().User)
				}
			}
		})
	}
}

// rotatingAuthAPI honours each token once; reusing a rotated token is unauthorized.
type rotatingAuthAPI struct {
	stubAuthAPI
	valid   string
	next    string
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (api *rotatingAuthAPI) Refresh(_ context.Context, token string) (storeapi.AuthSession, error) {
	api.mutex.Lock()
	api.calls++
	first := api.calls == 1
	api.mutex.Unlock()
	if first {
		close(api.entered)
		<-api.release
	}
	api.mutex.Lock()
	defer api.mutex.Unlock()
	if token != api.valid {
		return storeapi.AuthSession{}, &storeapi.APIError{Status: http.StatusUnauthorized, Code: "token_revoked", Message: "revoked"}
	}
	api.valid = api.next
	return storeapi.AuthSession{Token: api.next}, nil
}

func TestEnsureFreshConcurrentCallersShareOneRefresh(test *testing.T) {
	test.Parallel()
	ctx := context.Background()
	now := time.Unix(1_800_000_000, 0)
	_, state := newScopedState(test)
	oldToken := signedToken(test, now.Add(10*time.Second))
	newToken := signedToken(test, now.Add(2*time.Hour))
	api := &rotatingAuthAPI{
		stubAuthAPI: stubAuthAPI{loginSession: storeapi.AuthSession{Token: oldToken, User: storeapi.User{ID: "u1"}}},
		valid:       oldToken,
		next:        newToken,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	store, err := NewAuthStore(ctx, api, state, WithClock(func() time.Time { return now }), WithRefreshSkew(time.Minute))
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	if _, err := store.Login(ctx, storeapi.Credentials{Email: "a@example.com", Password: "x"}); err != nil {
		test.Fatalf("login: %v", err)
	}

	const callers = 8
	errs := make(chan error, callers)
	var waitGroup sync.WaitGroup
	for i := 0; i < callers; i++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			errs <- store.EnsureFresh(ctx)
		}()
	}
	<-api.entered
	time.Sleep(20 * time.Millisecond)
	close(api.release)
	waitGroup.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			test.Fatalf("ensure fresh: %v", err)
		}
	}
	if api.calls != 1 {
		test.Fatalf("expected one refresh call, got %d", api.calls)
	}
	if !store.Current().LoggedIn() || store.BearerToken() != newToken {
		test.Fatalf("expected to stay logged in with the rotated token, got %+v", store.Current())
	}
}

func TestEnsureFreshSkipsOpaqueTokens(test *testing.T) {
	test.Parallel()
	ctx := context.Background()
	_, state := newScopedState(test)
	api := &stubAuthAPI{loginSession: storeapi.AuthSession{Token: "not-a-jwt", User: storeapi.User{ID: "u1"}}}
	store, err := NewAuthStore(ctx, api, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	if _, err := store.Login(ctx, storeapi.Credentials{Email: "a@example.com", Password: "x"}); err != nil {
		test.Fatalf("login: %v", err)
	}
	if err := store.EnsureFresh(ctx); err != nil {
		test.Fatalf("ensure fresh: %v", err)
	}
	if len(api.refreshTokens) != 0 {
		test.Fatalf("expected no refresh for token without exp")
	}
}

func TestRefreshUnauthorizedLogsOut(test *testing.T) {
	test.Parallel()
	ctx := context.Background()
	_, state := newScopedState(test)
	api := &stubAuthAPI{
		loginSession: storeapi.AuthSession{Token: "opaque", User: storeapi.User{ID: "u1"}},
		refreshErr:   &storeapi.APIError{Status: http.StatusUnauthorized, Code: "token_expired", Message: "expired"},
	}
	store, err := NewAuthStore(ctx, api, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	if _, err := store.Login(ctx, storeapi.Credentials{Email: "a@example.com", Password: "x"}); err != nil {
		test.Fatalf("login: %v", err)
	}
	_, err = store.Refresh(ctx)
	if !errors.Is(err, ErrNotAuthenticated) {
		test.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if store.Current().LoggedIn() {
		test.Fatalf("expected logged out after unauthorized refresh")
	}
}

func TestRefreshWithoutToken(test *testing.T) {
	test.Parallel()
	_, state := newScopedState(test)
	store, err := NewAuthStore(context.Background(), &stubAuthAPI{}, state)
	if err != nil {
		test.Fatalf("new auth store: %v", err)
	}
	if _, err := store.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		test.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
