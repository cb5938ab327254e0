// Package storefront serves the JSON gateway behind the storefront pages.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// NewShopperFactory builds shoppers that talk to client and persist to store.
func NewShopperFactory(cfg Config, client *storeapi.Client, store clientstate.Store, logger *zap.Logger) ShopperFactory {
	sessionOptions := []checkout.SessionOption{
		checkout.WithComposer(checkout.NewComposer(cfg.CurrencyCode)),
		checkout.WithPaymentMode(cfg.PaymentMode),
		checkout.WithOperationLogger(NewOperationLogger(logger)),
	}
	return func(ctx context.Context, visitorID clientstate.VisitorID) (*shopper.Shopper, error) {
		return shopper.New(ctx, client, store, visitorID,
			shopper.WithLogger(logger.With(zap.String("visitor_id", visitorID.String()))),
			shopper.WithRefreshSkew(cfg.RefreshSkew),
			shopper.WithSessionOptions(sessionOptions...),
		)
	}
}

// Run serves the HTTP gateway and the gRPC health endpoint until ctx is cancelled.
func Run(ctx context.Context, cfg Config, store clientstate.Store, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	client, err := storeapi.New(storeapi.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout})
	if err != nil {
		return fmt.Errorf("store api: %w", err)
	}
	registry, err := NewRegistry(cfg.ShopperCacheSize, NewShopperFactory(cfg, client, store, logger), logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	httpListener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	healthListener, err := net.Listen("tcp", cfg.HealthListenAddr)
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("health listen: %w", err)
	}
	return Serve(ctx, httpListener, healthListener, NewRouter(cfg, registry, logger), logger)
}

// Serve runs handler on httpListener and the health service on healthListener.
func Serve(ctx context.Context, httpListener net.Listener, healthListener net.Listener, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	grpcServer, healthServer := NewHealthServer()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("storefront listening", zap.String("addr", httpListener.Addr().String()))
		if err := server.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("health service listening", zap.String("addr", healthListener.Addr().String()))
		if err := grpcServer.Serve(healthListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("health serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})
	return group.Wait()
}
