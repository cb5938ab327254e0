// Package clientstate persists the per-visitor values a browser would keep in localStorage.
package clientstate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("client state not found")
	ErrInvalidKey       = errors.New("invalid client state key")
	ErrInvalidVisitorID = errors.New("invalid visitor id")
)

// Key names one persisted value.
type Key string

const (
	KeyAuthToken  Key = "auth_token"
	KeyAuthUser   Key = "auth_user"
	KeyAnonCartID Key = "anon_cart_id"
	KeyVisitorID  Key = "visitor_id"
	KeySessionID  Key = "session_id"
)

// Keys lists every persisted key.
func Keys() []Key {
	return []Key{KeyAuthToken, KeyAuthUser, KeyAnonCartID, KeyVisitorID, KeySessionID}
}

// ParseKey validates a raw key name.
func ParseKey(raw string) (Key, error) {
	candidate := Key(strings.TrimSpace(raw))
	for _, key := range Keys() {
		if key == candidate {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
}

// String returns the key name.
func (key Key) String() string {
	return string(key)
}

// Validate reports whether the key is one of Keys.
func (key Key) Validate() error {
	_, err := ParseKey(string(key))
	return err
}

// VisitorID identifies one browser.
type VisitorID struct {
	value string
}

// NewVisitorID validates a uuid visitor id.
func NewVisitorID(raw string) (VisitorID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return VisitorID{}, fmt.Errorf("%w: %v", ErrInvalidVisitorID, err)
	}
	return VisitorID{value: parsed.String()}, nil
}

// GenerateVisitorID returns a fresh random visitor id.
func GenerateVisitorID() VisitorID {
	return VisitorID{value: uuid.NewString()}
}

// String returns the canonical uuid text.
func (visitorID VisitorID) String() string {
	return visitorID.value
}

// IsZero reports whether the id is unset.
func (visitorID VisitorID) IsZero() bool {
	return visitorID.value == ""
}

// Store persists client state per visitor.
type Store interface {
	// RegisterVisitor records the visitor and reports whether it was new.
	RegisterVisitor(ctx context.Context, visitorID VisitorID) (bool, error)
	Get(ctx context.Context, visitorID VisitorID, key Key) (string, error)
	Put(ctx context.Context, visitorID VisitorID, key Key, value string) error
	Delete(ctx context.Context, visitorID VisitorID, key Key) error
	Clear(ctx context.Context, visitorID VisitorID) error
}

// Transactor is implemented by stores that can apply a group of writes atomically.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
}

// RunInTx runs fn against a transactional view of store when it offers one, and against store otherwise.
func RunInTx(ctx context.Context, store Store, fn func(ctx context.Context, txStore Store) error) error {
	if transactor, ok := store.(Transactor); ok {
		return transactor.WithTx(ctx, fn)
	}
	return fn(ctx, store)
}

// OperationError wraps a store failure with a stable code.
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

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{operation: operation, subject: subject, code: code, err: err}
}

// Scoped binds a Store to one visitor.
type Scoped struct {
	store     Store
	visitorID VisitorID
}

// Scope returns a view of store limited to visitorID.
func Scope(store Store, visitorID VisitorID) Scoped {
	return Scoped{store: store, visitorID: visitorID}
}

// VisitorID returns the bound visitor.
func (scoped Scoped) VisitorID() VisitorID {
	return scoped.visitorID
}

// Lookup returns the value for key, reporting false when it is absent.
func (scoped Scoped) Lookup(ctx context.Context, key Key) (string, bool, error) {
	value, err := scoped.store.Get(ctx, scoped.visitorID, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put stores value under key.
func (scoped Scoped) Put(ctx context.Context, key Key, value string) error {
	return scoped.store.Put(ctx, scoped.visitorID, key, value)
}

// Delete removes key.
func (scoped Scoped) Delete(ctx context.Context, key Key) error {
	return scoped.store.Delete(ctx, scoped.visitorID, key)
}

// Clear removes every value held for the visitor.
func (scoped Scoped) Clear(ctx context.Context) error {
	return scoped.store.Clear(ctx, scoped.visitorID)
}
