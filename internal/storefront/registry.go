package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrRegistryClosed is returned by Acquire once the registry has been closed.
var ErrRegistryClosed = errors.New("shopper registry closed")

// ShopperFactory builds the state for one visitor.
type ShopperFactory func(ctx context.Context, visitorID clientstate.VisitorID) (*shopper.Shopper, error)

// Registry keeps recently active shoppers in memory; evicted shoppers are closed and
// rebuilt from persisted client state on their next request.
type Registry struct {
	factory ShopperFactory
	logger  *zap.Logger
	cache   *lru.Cache
	builds  singleflight.Group

	mutex  sync.Mutex
	closed bool
}

// NewRegistry returns a Registry holding at most size shoppers.
func NewRegistry(size int, factory ShopperFactory, logger *zap.Logger) (*Registry, error) {
	if factory == nil {
		return nil, fmt.Errorf("shopper factory is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := &Registry{factory: factory, logger: logger}
	cache, err := lru.NewWithEvict(size, registry.onEvict)
	if err != nil {
		return nil, fmt.Errorf("shopper cache: %w", err)
	}
	registry.cache = cache
	return registry, nil
}

// Acquire returns the cached shopper for visitorID, building it on a miss.
// Concurrent misses for one visitor share a single build; other visitors are not held up by it.
func (registry *Registry) Acquire(ctx context.Context, visitorID clientstate.VisitorID) (*shopper.Shopper, error) {
	key := visitorID.String()
	if cached, ok := registry.cache.Get(key); ok {
		return cached.(*shopper.Shopper), nil
	}
	result, err, _ := registry.builds.Do(key, func() (any, error) {
		if cached, ok := registry.cache.Get(key); ok {
			return cached, nil
		}
		if registry.isClosed() {
			return nil, ErrRegistryClosed
		}
		built, err := registry.factory(context.WithoutCancel(ctx), visitorID)
		if err != nil {
			return nil, err
		}
		registry.mutex.Lock()
		defer registry.mutex.Unlock()
		if registry.closed {
			built.Close()
			return nil, ErrRegistryClosed
		}
		registry.cache.Add(key, built)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*shopper.Shopper), nil
}

// Evict drops and closes the cached shopper for visitorID, if any.
func (registry *Registry) Evict(visitorID clientstate.VisitorID) {
	registry.cache.Remove(visitorID.String())
}

// Len reports how many shoppers are cached.
func (registry *Registry) Len() int {
	return registry.cache.Len()
}

// Close closes every cached shopper and refuses further builds.
func (registry *Registry) Close() {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.closed = true
	registry.cache.Purge()
}

func (registry *Registry) isClosed() bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	return registry.closed
}

func (registry *Registry) onEvict(key interface{}, value interface{}) {
	if evicted, ok := value.(*shopper.Shopper); ok {
		evicted.Close()
		registry.logger.Debug("shopper evicted", zap.Any("visitor_id", key))
	}
}
