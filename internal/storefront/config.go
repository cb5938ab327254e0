package storefront

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultListenAddr        = ":8080"
	defaultHealthListenAddr  = ":8081"
	defaultAPIBaseURL        = "http://localhost:4000/api"
	defaultAllowedOrigin     = "http://localhost:3000"
	defaultStateDatabaseURL  = "sqlite:///tmp/storefront.db"
	defaultCurrencyCode      = "INR"
	defaultShopperCacheSize  = 1024
	defaultVisitorCookieName = "storefront_visitor"
	defaultPaymentMode       = "manual_confirmation"
	defaultAPITimeout        = 10 * time.Second
	defaultRefreshSkew       = 2 * time.Minute
	visitorCookieMaxAge      = 365 * 24 * time.Hour

	StateBackendGorm = "gorm"
	StateBackendPgx  = "pgx"
)

// Config aggregates runtime settings for the storefront gateway.
type Config struct {
	ListenAddr          string
	HealthListenAddr    string
	APIBaseURL          string
	APITimeout          time.Duration
	AllowedOrigins      []string
	StateDatabaseURL    string
	StateBackend        string
	CurrencyCode        string
	ShopperCacheSize    int
	VisitorCookieName   string
	VisitorCookieSecure bool
	PaymentMode         string
	RefreshSkew         time.Duration
}

// Validate fills defaults and rejects unusable values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.HealthListenAddr = defaultIfEmpty(cfg.HealthListenAddr, defaultHealthListenAddr)
	cfg.APIBaseURL = defaultIfEmpty(cfg.APIBaseURL, defaultAPIBaseURL)
	cfg.StateDatabaseURL = defaultIfEmpty(cfg.StateDatabaseURL, defaultStateDatabaseURL)
	cfg.StateBackend = strings.ToLower(defaultIfEmpty(cfg.StateBackend, StateBackendGorm))
	cfg.CurrencyCode = strings.ToUpper(defaultIfEmpty(cfg.CurrencyCode, defaultCurrencyCode))
	cfg.VisitorCookieName = defaultIfEmpty(cfg.VisitorCookieName, defaultVisitorCookieName)
	cfg.PaymentMode = defaultIfEmpty(cfg.PaymentMode, defaultPaymentMode)
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = defaultAPITimeout
	}
	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = defaultRefreshSkew
	}
	if cfg.ShopperCacheSize <= 0 {
		cfg.ShopperCacheSize = defaultShopperCacheSize
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	parsed, err := url.Parse(cfg.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api base url %q must be absolute", cfg.APIBaseURL)
	}
	switch cfg.StateBackend {
	case StateBackendGorm, StateBackendPgx:
	default:
		return fmt.Errorf("state backend %q must be %s or %s", cfg.StateBackend, StateBackendGorm, StateBackendPgx)
	}
	if cfg.StateBackend == StateBackendPgx && !isPostgresURL(cfg.StateDatabaseURL) {
		return fmt.Errorf("state backend %s requires a postgres database url", StateBackendPgx)
	}
	if cfg.ListenAddr == cfg.HealthListenAddr {
		return fmt.Errorf("listen addr and health listen addr must differ")
	}
	return nil
}

func isPostgresURL(raw string) bool {
	return strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://")
}

func defaultIfEmpty(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
