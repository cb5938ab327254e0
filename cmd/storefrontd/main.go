package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/storefront/internal/storefront"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagListenAddr          = "listen-addr"
	flagHealthListenAddr    = "health-listen-addr"
	flagAPIBaseURL          = "api-base-url"
	flagAPITimeout          = "api-timeout"
	flagAllowedOrigins      = "allowed-origins"
	flagStateDatabaseURL    = "state-database-url"
	flagStateBackend        = "state-backend"
	flagCurrency            = "currency"
	flagShopperCacheSize    = "shopper-cache-size"
	flagVisitorCookieName   = "visitor-cookie-name"
	flagVisitorCookieSecure = "visitor-cookie-secure"
	flagPaymentMode         = "payment-mode"
	flagRefreshSkew         = "refresh-skew"
	envPrefix               = "STOREFRONT"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "storefrontd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := storefront.Config{}
	cmd := &cobra.Command{
		Use:           "storefrontd",
		Short:         "JSON gateway for the jewellery storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runGateway(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, "", "HTTP listen address (default :8080)")
	cmd.Flags().String(flagHealthListenAddr, "", "gRPC health listen address (default :8081)")
	cmd.Flags().String(flagAPIBaseURL, "", "base URL of the commerce API, including /api")
	cmd.Flags().Duration(flagAPITimeout, 0, "timeout for one commerce API call (e.g. 10s)")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagStateDatabaseURL, "", "client state database (sqlite path or postgres URL)")
	cmd.Flags().String(flagStateBackend, "", "client state backend: gorm or pgx")
	cmd.Flags().String(flagCurrency, "", "ISO currency code for displayed amounts")
	cmd.Flags().Int(flagShopperCacheSize, 0, "number of visitors kept in memory")
	cmd.Flags().String(flagVisitorCookieName, "", "name of the visitor cookie")
	cmd.Flags().Bool(flagVisitorCookieSecure, false, "mark the visitor cookie Secure")
	cmd.Flags().String(flagPaymentMode, "", "payment mode sent when confirming payment")
	cmd.Flags().Duration(flagRefreshSkew, 0, "refresh tokens this long before they expire")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *storefront.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{
		flagListenAddr, flagHealthListenAddr, flagAPIBaseURL, flagAPITimeout, flagAllowedOrigins,
		flagStateDatabaseURL, flagStateBackend, flagCurrency, flagShopperCacheSize,
		flagVisitorCookieName, flagVisitorCookieSecure, flagPaymentMode, flagRefreshSkew,
	} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.HealthListenAddr = strings.TrimSpace(v.GetString(flagHealthListenAddr))
	cfg.APIBaseURL = strings.TrimSpace(v.GetString(flagAPIBaseURL))
	cfg.APITimeout = v.GetDuration(flagAPITimeout)
	cfg.AllowedOrigins = storefront.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.StateDatabaseURL = strings.TrimSpace(v.GetString(flagStateDatabaseURL))
	cfg.StateBackend = strings.TrimSpace(v.GetString(flagStateBackend))
	cfg.CurrencyCode = strings.TrimSpace(v.GetString(flagCurrency))
	cfg.ShopperCacheSize = v.GetInt(flagShopperCacheSize)
	cfg.VisitorCookieName = strings.TrimSpace(v.GetString(flagVisitorCookieName))
	cfg.VisitorCookieSecure = v.GetBool(flagVisitorCookieSecure)
	cfg.PaymentMode = strings.TrimSpace(v.GetString(flagPaymentMode))
	cfg.RefreshSkew = v.GetDuration(flagRefreshSkew)

	return cfg.Validate()
}

func runGateway(ctx context.Context, cfg storefront.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := openStateStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	defer cleanup()

	logger.Info("client state ready", zap.String("backend", cfg.StateBackend))
	return storefront.Run(ctx, cfg, store, logger)
}
