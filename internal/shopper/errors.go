package shopper

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingToken       = errors.New("auth response carried no token")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrMissingProduct     = errors.New("product id is required")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCartUnavailable    = errors.New("cart could not be kept on the server")
	ErrShopperClosed      = errors.New("shopper closed")
)

const (
	errorOperationShopper = "shopper"
	errorSubjectAuth      = "auth"
	errorSubjectCart      = "cart"
	errorSubjectCheckout  = "checkout"
	errorSubjectIdentity  = "identity"
	errorCodeAdd          = "add"
	errorCodeCreate       = "create"
	errorCodeLoad         = "load"
	errorCodeLogin        = "login"
	errorCodePersist      = "persist"
	errorCodeRefresh      = "refresh"
	errorCodeRegister     = "register"
	errorCodeRemove       = "remove"
	errorCodeRestore      = "restore"
	errorCodeUpdate       = "update"
)

// OperationError wraps a shopper failure with a stable code.
type OperationError struct {
	subject string
	code    string
	err     error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", errorOperationShopper, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

func wrapShopperError(subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{subject: subject, code: code, err: err}
}
