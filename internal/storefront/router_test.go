package storefront

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fakeCommerceAPI plays the remote commerce API for one cart.
type fakeCommerceAPI struct {
	mutex    sync.Mutex
	quantity int
	paid     bool
}

func (api *fakeCommerceAPI) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	writer.Header().Set("Content-Type", "application/json")
	route := request.Method + " " + request.URL.Path
	switch route {
	case "POST /api/auth/login":
		_, _ = io.WriteString(writer, `{"token":"opaque-token","user":{"id":"u1","name":"Asha","email":"asha@example.com"}}`)
	case "POST /api/auth/logout":
		writer.WriteHeader(http.StatusNoContent)
	case "GET /api/masters/products":
		_, _ = io.WriteString(writer, `{"data":{"items":[{"id":"p1","slug":"gold-ring","name":"Gold Ring","price":2000}],"total":1,"page":1,"limit":24}}`)
	case "POST /api/cart":
		_, _ = io.WriteString(writer, `{"id":"cart-1","items":[]}`)
	case "POST /api/cart/cart-1/items":
		var item storeapi.CartItemRequest
		_ = json.NewDecoder(request.Body).Decode(&item)
		api.quantity += item.Quantity
		writer.WriteHeader(http.StatusNoContent)
	case "GET /api/cart/cart-1":
		_ = json.NewEncoder(writer).Encode(checkout.CartSnapshot{
			ID:    "cart-1",
			Items: []checkout.LineItem{{ID: "line-1", ProductID: "p1", Quantity: api.quantity, UnitPrice: 1000, LineTotal: 1000 * float64(api.quantity)}},
			Total: 1000 * float64(api.quantity),
		})
	case "POST /api/checkout/summary":
		_, _ = io.WriteString(writer, `{"cart_id":"cart-1","items":[{"id":"line-1","product_id":"p1","name":"Gold Ring","quantity":2,"unit_price":1000,"line_total":2000}],
			"amounts":{"subtotal":2000,"discount_total":0,"shipping_total":100,"tax_total":0,"grand_total":2100},
			"available_promos":[{"id":"promo-1","code":"TEN","type":"percent","value":10}]}`)
	case "POST /api/checkout/apply-promo":
		var promoRequest checkout.PromoRequest
		_ = json.NewDecoder(request.Body).Decode(&promoRequest)
		if promoRequest.Code == "TEN" {
			_, _ = io.WriteString(writer, `{"promo":{"id":"promo-1","code":"TEN","type":"percent","value":10}}`)
			return
		}
		writer.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(writer, `{"error":{"code":"invalid_or_expired","message":"expired"}}`)
	case "POST /api/checkout/place-order":
		_, _ = io.WriteString(writer, `{"order_id":"order-1","status":"pending"}`)
	case "POST /api/checkout/pay":
		api.paid = true
		_, _ = io.WriteString(writer, `{"order_id":"order-1","status":"confirmed","mode":"manual_confirmation"}`)
	default:
		writer.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(writer, `{"error":{"code":"not_found","message":"no route"}}`)
	}
}

type gatewayHarness struct {
	test   *testing.T
	router *gin.Engine
	api    *fakeCommerceAPI
	cookie *http.Cookie
}

func newGatewayHarness(test *testing.T) *gatewayHarness {
	test.Helper()
	api := &fakeCommerceAPI{}
	upstream := httptest.NewServer(api)
	test.Cleanup(upstream.Close)

	cfg := Config{APIBaseURL: upstream.URL + "/api"}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config: %v", err)
	}
	client, err := storeapi.New(storeapi.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout})
	if err != nil {
		test.Fatalf("client: %v", err)
	}
	logger := zap.NewNop()
	registry, err := NewRegistry(cfg.ShopperCacheSize, NewShopperFactory(cfg, client, clientstate.NewMemoryStore(), logger), logger)
	if err != nil {
		test.Fatalf("registry: %v", err)
	}
	test.Cleanup(registry.Close)
	return &gatewayHarness{test: test, router: NewRouter(cfg, registry, logger), api: api}
}

func (harness *gatewayHarness) do(method string, path string, body string) (int, map[string]any) {
	harness.test.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if harness.cookie != nil {
		request.AddCookie(harness.cookie)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == defaultVisitorCookieName {
			harness.cookie = cookie
		}
	}
	payload := map[string]any{}
	if recorder.Body.Len() > 0 {
		if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
			harness.test.Fatalf("%s %s: decode %q: %v", method, path, recorder.Body.String(), err)
		}
	}
	return recorder.Code, payload
}

func field(test *testing.T, payload map[string]any, path string) any {
	test.Helper()
	var current any = payload
	for _, segment := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			test.Fatalf("path %s: %v is not an object", path, current)
		}
		current = object[segment]
	}
	return current
}

func TestVisitorCookieIsIssuedAndReused(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	status, first := harness.do(http.MethodGet, "/api/session", "")
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	if harness.cookie == nil || !harness.cookie.HttpOnly {
		test.Fatalf("expected http-only visitor cookie, got %+v", harness.cookie)
	}
	if field(test, first, "visitor_id") != harness.cookie.Value {
		test.Fatalf("expected visitor id to match cookie")
	}
	_, second := harness.do(http.MethodGet, "/api/session", "")
	if field(test, second, "session_id") != field(test, first, "session_id") {
		test.Fatalf("expected the same shopper on the second request")
	}
}

func TestUnknownRouteReturnsEnvelope(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	status, payload := harness.do(http.MethodGet, "/gold/unknown", "")
	if status != http.StatusNotFound || field(test, payload, "error.code") != errorCodeNotFound {
		test.Fatalf("expected not_found envelope, got %d %v", status, payload)
	}
}

func TestMemberRoutesRequireLogin(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	for _, path := range []string{"/api/checkout", "/api/orders", "/api/profile", "/api/wishlist", "/api/addresses"} {
		status, payload := harness.do(http.MethodGet, path, "")
		if status != http.StatusUnauthorized || field(test, payload, "error.code") != errorCodeUnauthorized {
			test.Fatalf("%s: expected 401, got %d %v", path, status, payload)
		}
	}
}

func TestProductsForwardsCatalog(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	status, payload := harness.do(http.MethodGet, "/api/products?category=rings&limit=500", "")
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d %v", status, payload)
	}
	items := field(test, payload, "items").([]any)
	if len(items) != 1 || items[0].(map[string]any)["slug"] != "gold-ring" {
		test.Fatalf("unexpected items %v", items)
	}
}

func TestCheckoutJourney(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)

	status, payload := harness.do(http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"secret"}`)
	if status != http.StatusOK || field(test, payload, "auth.logged_in") != true {
		test.Fatalf("login: %d %v", status, payload)
	}

	status, payload = harness.do(http.MethodPost, "/api/checkout/address", `{"address_id":"addr-1"}`)
	if status != http.StatusConflict || field(test, payload, "error.code") != errorCodeCartEmpty {
		test.Fatalf("expected empty cart conflict, got %d %v", status, payload)
	}

	status, payload = harness.do(http.MethodPost, "/api/cart/items", `{"product_id":"p1","quantity":2}`)
	if status != http.StatusOK || field(test, payload, "item_count") != float64(2) {
		test.Fatalf("add to cart: %d %v", status, payload)
	}

	status, payload = harness.do(http.MethodPost, "/api/checkout/address", `{"address_id":"addr-1"}`)
	if status != http.StatusOK {
		test.Fatalf("select address: %d %v", status, payload)
	}
	if field(test, payload, "checkout.selected_promo.code") != "TEN" || field(test, payload, "checkout.promo_auto") != true {
		test.Fatalf("expected TEN auto-applied, got %v", payload)
	}
	if field(test, payload, "checkout.amounts.grand_total") != float64(1900) {
		test.Fatalf("expected grand total 1900, got %v", field(test, payload, "checkout.amounts.grand_total"))
	}
	if display, _ := field(test, payload, "checkout.display.grand_total").(string); !strings.Contains(display, "1,900.00") {
		test.Fatalf("expected formatted grand total, got %q", display)
	}

	status, payload = harness.do(http.MethodPost, "/api/checkout/promo", `{"code":"old"}`)
	if status != http.StatusUnprocessableEntity || field(test, payload, "error.code") != checkout.CodeInvalidOrExpired {
		test.Fatalf("expected promo rejection, got %d %v", status, payload)
	}
	if field(test, payload, "checkout.selected_promo") != nil || field(test, payload, "checkout.promo_locked_by_user") != true {
		test.Fatalf("expected promo cleared and locked, got %v", payload)
	}
	if field(test, payload, "checkout.notice.message") != checkout.MessageFor(checkout.CodeInvalidOrExpired) {
		test.Fatalf("expected notice, got %v", field(test, payload, "checkout.notice"))
	}
	if field(test, payload, "checkout.amounts.grand_total") != float64(2100) {
		test.Fatalf("expected server totals without promo, got %v", field(test, payload, "checkout.amounts.grand_total"))
	}

	status, payload = harness.do(http.MethodPost, "/api/checkout/back", "")
	if status != http.StatusConflict || field(test, payload, "error.code") != errorCodeInvalidTransition {
		test.Fatalf("expected back from address rejected, got %d %v", status, payload)
	}

	for _, wantStep := range []string{"review", "payment", "done"} {
		status, payload = harness.do(http.MethodPost, "/api/checkout/next", "")
		if status != http.StatusOK || field(test, payload, "checkout.step") != wantStep {
			test.Fatalf("expected %s, got %d %v", wantStep, status, payload)
		}
	}
	if field(test, payload, "checkout.payment.status") != "confirmed" {
		test.Fatalf("expected confirmed payment, got %v", payload)
	}

	status, payload = harness.do(http.MethodGet, "/api/cart", "")
	if status != http.StatusOK || field(test, payload, "item_count") != float64(0) {
		test.Fatalf("expected cart forgotten after payment, got %d %v", status, payload)
	}
	status, payload = harness.do(http.MethodGet, "/api/checkout", "")
	if status != http.StatusOK || field(test, payload, "checkout.step") != "done" {
		test.Fatalf("expected finished checkout still readable, got %d %v", status, payload)
	}
	harness.api.mutex.Lock()
	defer harness.api.mutex.Unlock()
	if !harness.api.paid {
		test.Fatalf("expected payment forwarded upstream")
	}
}

func TestLogoutClearsLogin(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	harness.do(http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"secret"}`)
	status, payload := harness.do(http.MethodPost, "/api/auth/logout", "")
	if status != http.StatusOK || field(test, payload, "auth.logged_in") != false {
		test.Fatalf("logout: %d %v", status, payload)
	}
	status, _ = harness.do(http.MethodGet, "/api/checkout", "")
	if status != http.StatusUnauthorized {
		test.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestResetSessionStartsBlankVisitor(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	harness.do(http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"secret"}`)
	_, before := harness.do(http.MethodGet, "/api/session", "")
	if field(test, before, "auth.logged_in") != true {
		test.Fatalf("expected login before reset, got %v", before)
	}

	status, _ := harness.do(http.MethodDelete, "/api/session", "")
	if status != http.StatusNoContent {
		test.Fatalf("expected 204, got %d", status)
	}
	if harness.cookie == nil || harness.cookie.MaxAge >= 0 {
		test.Fatalf("expected the visitor cookie expired, got %+v", harness.cookie)
	}

	_, after := harness.do(http.MethodGet, "/api/session", "")
	if field(test, after, "visitor_id") == field(test, before, "visitor_id") {
		test.Fatalf("expected a new visitor after reset")
	}
	if field(test, after, "session_id") == field(test, before, "session_id") {
		test.Fatalf("expected a new session after reset")
	}
	if field(test, after, "auth.logged_in") != false {
		test.Fatalf("expected logged out after reset, got %v", after)
	}
}

func TestLoginRejectsMalformedBody(test *testing.T) {
	test.Parallel()
	harness := newGatewayHarness(test)
	status, payload := harness.do(http.MethodPost, "/api/auth/login", `{"email":`)
	if status != http.StatusBadRequest || field(test, payload, "error.code") != errorCodeInvalidPayload {
		test.Fatalf("expected invalid payload, got %d %v", status, payload)
	}
}
