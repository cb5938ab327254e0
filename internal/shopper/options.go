package shopper

import (
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"go.uber.org/zap"
)

const defaultRefreshSkew = 2 * time.Minute

// Option configures shopper state.
type Option func(*settings)

type settings struct {
	logger         *zap.Logger
	refreshSkew    time.Duration
	now            func() time.Time
	sessionOptions []checkout.SessionOption
}

func newSettings(options []Option) settings {
	resolved := settings{
		logger:      zap.NewNop(),
		refreshSkew: defaultRefreshSkew,
		now:         time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(&resolved)
		}
	}
	return resolved
}

// WithLogger sets the logger for background failures.
func WithLogger(logger *zap.Logger) Option {
	return func(resolved *settings) {
		if logger != nil {
			resolved.logger = logger
		}
	}
}

// WithRefreshSkew sets how long before exp a token is refreshed.
func WithRefreshSkew(skew time.Duration) Option {
	return func(resolved *settings) {
		if skew >= 0 {
			resolved.refreshSkew = skew
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(resolved *settings) {
		if now != nil {
			resolved.now = now
		}
	}
}

// WithSessionOptions forwards options to every checkout session.
func WithSessionOptions(options ...checkout.SessionOption) Option {
	return func(resolved *settings) {
		resolved.sessionOptions = append(resolved.sessionOptions, options...)
	}
}
