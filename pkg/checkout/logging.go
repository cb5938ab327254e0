package checkout

import "context"

// SessionOption configures a Session instance.
type SessionOption func(*Session)

// OperationLogger records domain-level events emitted by Session operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a checkout operation.
type OperationLog struct {
	Operation string
	CartID    string
	AddressID string
	PromoCode string
	OrderID   string
	Step      Step
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) SessionOption {
	return func(session *Session) {
		session.logger = logger
	}
}

// WithComposer overrides the currency used for effective amounts.
func WithComposer(composer Composer) SessionOption {
	return func(session *Session) {
		session.composer = composer
	}
}

// WithPaymentMode sets the mode forwarded with payment confirmation.
func WithPaymentMode(mode string) SessionOption {
	return func(session *Session) {
		session.paymentMode = mode
	}
}
