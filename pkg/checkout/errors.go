package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-level error values returned by the checkout session.
var (
	ErrAddressRequired      = errors.New("address required")
	ErrSummaryNotLoaded     = errors.New("summary not loaded")
	ErrTransitionPending    = errors.New("transition pending")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrSessionClosed        = errors.New("session closed")
	ErrInvalidPromoType     = errors.New("invalid promo type")
	ErrInvalidPromoCode     = errors.New("invalid promo code")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSessionConfig = errors.New("invalid session config")
)

// Error codes reported by the commerce API.
const (
	CodeInvalidOrExpired     = "invalid_or_expired"
	CodeOrderValueTooLow     = "order_value_too_low"
	CodeMaxGlobalUsesReached = "max_global_uses_reached"
	CodeMaxUserUsesReached   = "max_user_uses_reached"
	CodeOrderFailed          = "order_failed"
	CodePaymentFailed        = "payment_failed"
	CodeSummaryError         = "summary_error"
	CodeAddressRequired      = "address_required"
	CodeGeneric              = "generic"
)

const genericMessage = "Something went wrong. Please try again."

var userMessages = map[string]string{
	CodeInvalidOrExpired:     "This promo code is invalid or has expired.",
	CodeOrderValueTooLow:     "Your order value is too low for this promo code.",
	CodeMaxGlobalUsesReached: "This promo code has reached its usage limit.",
	CodeMaxUserUsesReached:   "You have already used this promo code the maximum number of times.",
	CodeOrderFailed:          "We could not place your order. Please try again.",
	CodePaymentFailed:        "We could not confirm your payment. Please try again.",
	CodeSummaryError:         "We could not load your order summary. Please try again.",
	CodeAddressRequired:      "Please select a delivery address to continue.",
}

// MessageFor maps a server error code to a sentence for the shopper.
// Unknown or empty codes fall back to a generic message.
func MessageFor(code string) string {
	if message, ok := userMessages[strings.TrimSpace(code)]; ok {
		return message
	}
	return genericMessage
}

// ErrorCoder is implemented by errors that carry a server error code.
type ErrorCoder interface {
	ErrorCode() string
}

// CodeOf extracts the server error code from err, or returns fallback.
func CodeOf(err error, fallback string) string {
	var coder ErrorCoder
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.ErrorCode()); code != "" {
			return code
		}
	}
	return fallback
}

// Notice is a shopper-facing message attached to the last failed action.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func noticeFor(err error, fallback string) *Notice {
	code := CodeOf(err, fallback)
	return &Notice{Code: code, Message: MessageFor(code)}
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
