package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
)

func TestClassifyError(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name        string
		err         error
		fallback    string
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "known promo code",
			err:         fmt.Errorf("apply: %w", &storeapi.APIError{Status: http.StatusUnprocessableEntity, Code: checkout.CodeOrderValueTooLow, Message: "min 500"}),
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    checkout.CodeOrderValueTooLow,
			wantMessage: checkout.MessageFor(checkout.CodeOrderValueTooLow),
		},
		{
			name:        "unknown client code keeps server message",
			err:         &storeapi.APIError{Status: http.StatusBadRequest, Code: "email_taken", Message: "Email already registered"},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "email_taken",
			wantMessage: "Email already registered",
		},
		{
			name:        "server failure becomes bad gateway",
			err:         &storeapi.APIError{Status: http.StatusInternalServerError, Message: "boom"},
			fallback:    checkout.CodeOrderFailed,
			wantStatus:  http.StatusBadGateway,
			wantCode:    checkout.CodeOrderFailed,
			wantMessage: checkout.MessageFor(checkout.CodeOrderFailed),
		},
		{
			name:       "pending transition",
			err:        checkout.WrapError("session", "step", "pending", checkout.ErrTransitionPending),
			wantStatus: http.StatusConflict,
			wantCode:   errorCodeTransitionPending,
		},
		{
			name:        "address required",
			err:         checkout.ErrAddressRequired,
			wantStatus:  http.StatusBadRequest,
			wantCode:    checkout.CodeAddressRequired,
			wantMessage: checkout.MessageFor(checkout.CodeAddressRequired),
		},
		{name: "empty cart", err: shopper.ErrEmptyCart, wantStatus: http.StatusConflict, wantCode: errorCodeCartEmpty},
		{name: "lost cart", err: fmt.Errorf("add: %w", shopper.ErrCartUnavailable), wantStatus: http.StatusBadGateway, wantCode: errorCodeCartUnavailable},
		{name: "not authenticated", err: shopper.ErrNotAuthenticated, wantStatus: http.StatusUnauthorized, wantCode: errorCodeUnauthorized},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantCode: errorCodeUpstreamTimeout},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: errorCodeInternal},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			status, code, message := classifyError(testCase.err, testCase.fallback)
			if status != testCase.wantStatus || code != testCase.wantCode {
				test.Fatalf("expected %d %s, got %d %s", testCase.wantStatus, testCase.wantCode, status, code)
			}
			if testCase.wantMessage != "" && message != testCase.wantMessage {
				test.Fatalf("expected message %q, got %q", testCase.wantMessage, message)
			}
			if message == "" {
				test.Fatalf("expected a message")
			}
		})
	}
}
