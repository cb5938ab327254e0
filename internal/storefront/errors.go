package storefront

import (
	"context"
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"github.com/gin-gonic/gin"
)

const (
	errorCodeInvalidPayload     = "invalid_payload"
	errorCodeUnauthorized       = "unauthorized"
	errorCodeNotFound           = "not_found"
	errorCodeCartEmpty          = "cart_empty"
	errorCodeCartUnavailable    = "cart_unavailable"
	errorCodeTransitionPending  = "transition_pending"
	errorCodeInvalidTransition  = "invalid_transition"
	errorCodeSessionClosed      = "session_closed"
	errorCodeInvalidPromoCode   = "invalid_promo_code"
	errorCodeUpstream           = "upstream_error"
	errorCodeUpstreamTimeout    = "upstream_timeout"
	errorCodeInternal           = "internal_error"
	errorCodeVisitorUnavailable = "visitor_unavailable"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// classifyError maps a failure to an HTTP status and an error body.
func classifyError(err error, fallbackCode string) (int, string, string) {
	var apiError *storeapi.APIError
	switch {
	case errors.As(err, &apiError):
		code := apiError.Code
		if code == "" {
			code = fallbackCode
		}
		message := checkout.MessageFor(code)
		if _, known := knownCheckoutCode(code); !known && apiError.Message != "" && apiError.Status < http.StatusInternalServerError {
			message = apiError.Message
		}
		status := apiError.Status
		if status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		return status, code, message
	case errors.Is(err, checkout.ErrTransitionPending):
		return http.StatusConflict, errorCodeTransitionPending, "Please wait for the current step to finish."
	case errors.Is(err, checkout.ErrInvalidTransition):
		return http.StatusConflict, errorCodeInvalidTransition, "That checkout step is not available right now."
	case errors.Is(err, checkout.ErrSessionClosed), errors.Is(err, shopper.ErrShopperClosed):
		return http.StatusConflict, errorCodeSessionClosed, "Your checkout was restarted. Please try again."
	case errors.Is(err, checkout.ErrAddressRequired):
		return http.StatusBadRequest, checkout.CodeAddressRequired, checkout.MessageFor(checkout.CodeAddressRequired)
	case errors.Is(err, checkout.ErrInvalidPromoCode):
		return http.StatusBadRequest, errorCodeInvalidPromoCode, checkout.MessageFor(checkout.CodeInvalidOrExpired)
	case errors.Is(err, shopper.ErrCartUnavailable):
		return http.StatusBadGateway, errorCodeCartUnavailable, "Your cart could not be saved. Please try again."
	case errors.Is(err, shopper.ErrEmptyCart):
		return http.StatusConflict, errorCodeCartEmpty, "Your cart is empty."
	case errors.Is(err, shopper.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorCodeUnauthorized, "Please log in to continue."
	case errors.Is(err, shopper.ErrMissingCredentials), errors.Is(err, shopper.ErrInvalidQuantity), errors.Is(err, shopper.ErrMissingProduct):
		return http.StatusBadRequest, errorCodeInvalidPayload, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorCodeUpstreamTimeout, "The store is taking too long to respond."
	default:
		if fallbackCode == "" {
			fallbackCode = errorCodeInternal
		}
		return http.StatusInternalServerError, fallbackCode, checkout.MessageFor(fallbackCode)
	}
}

func knownCheckoutCode(code string) (string, bool) {
	message := checkout.MessageFor(code)
	return message, message != checkout.MessageFor(checkout.CodeGeneric)
}
