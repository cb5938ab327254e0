// Package statetest checks clientstate.Store implementations.
package statetest

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
)

// Run exercises the clientstate.Store contract against newStore.
// newStore must return an empty store for each call.
func Run(test *testing.T, newStore func(test *testing.T) clientstate.Store) {
	test.Run("register is idempotent", func(test *testing.T) {
		store := newStore(test)
		ctx := context.Background()
		visitorID := clientstate.GenerateVisitorID()
		created, err := store.RegisterVisitor(ctx, visitorID)
		if err != nil {
			test.Fatalf("register: %v", err)
		}
		if !created {
			test.Fatalf("expected first registration to create the visitor")
		}
		created, err = store.RegisterVisitor(ctx, visitorID)
		if err != nil {
			test.Fatalf("re-register: %v", err)
		}
		if created {
			test.Fatalf("expected second registration to find the visitor")
		}
	})

	test.Run("put overwrites and get reads back", func(test *testing.T) {
		store := newStore(test)
		ctx := context.Background()
		visitorID := register(test, store)
		if err := store.Put(ctx, visitorID, clientstate.KeyAuthToken, "first"); err != nil {
			test.Fatalf("put: %v", err)
		}
		if err := store.Put(ctx, visitorID, clientstate.KeyAuthToken, "second"); err != nil {
			test.Fatalf("overwrite: %v", err)
		}
		value, err := store.Get(ctx, visitorID, clientstate.KeyAuthToken)
		if err != nil {
			test.Fatalf("get: %v", err)
		}
		if value != "second" {
			test.Fatalf("expected second, got %q", value)
		}
	})

	test.Run("values are opaque text", func(test *testing.T) {
		store := newStore(test)
		ctx := context.Background()
		visitorID := register(test, store)
		raw := `{"id":"u1","name":"Asha \"A\" Rao"}`
		if err := store.Put(ctx, visitorID, clientstate.KeyAuthUser, raw); err != nil {
			test.Fatalf("put: %v", err)
		}
		value, err := store.Get(ctx, visitorID, clientstate.KeyAuthUser)
		if err != nil {
			test.Fatalf("get: %v", err)
		}
		if value != raw {
			test.Fatalf("expected %q, got %q", raw, value)
		}
	})

	test.Run("missing key reports not found", func(test *testing.T) {
		store := newStore(test)
		visitorID := register(test, store)
		_, err := store.Get(context.Background(), visitorID, clientstate.KeyAnonCartID)
		if !errors.Is(err, clientstate.ErrNotFound) {
			test.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	test.Run("visitors are isolated", func(test *testing.T) {
		store := newStore(test)
		ctx := context.Background()
		first := register(test, store)
		second := register(test, store)
		if err := store.Put(ctx, first, clientstate.KeyAnonCartID, "cart-1"); err != nil {
			test.Fatalf("put: %v", err)
		}
		if _, err := store.Get(ctx, second, clientstate.KeyAnonCartID); !errors.Is(err, clientstate.ErrNotFound) {
			test.Fatalf("expected other visitor to see nothing, got %v", err)
		}
	})

	test.Run("delete and clear", func(test *testing.T) {
		store := newStore(test)
		ctx := context.Background()
		visitorID := register(test, store)
		for _, key := range []clientstate.Key{clientstate.KeyAuthToken, clientstate.KeyAuthUser, clientstate.KeyAnonCartID} {
			if err := store.Put(ctx, visitorID, key, "value-"+key.String()); err != nil {
				test.Fatalf("put %s: %v", key, err)
			}
		}
		if err := store.Delete(ctx, visitorID, clientstate.KeyAuthToken); err != nil {
			test.Fatalf("delete: %v", err)
		}
		if _, err := store.Get(ctx, visitorID, clientstate.KeyAuthToken); !errors.Is(err, clientstate.ErrNotFound) {
			test.Fatalf("expected deleted key to be gone, got %v", err)
		}
		if err := store.Delete(ctx, visitorID, clientstate.KeyAuthToken); err != nil {
			test.Fatalf("deleting a missing key should succeed: %v", err)
		}
		if err := store.Clear(ctx, visitorID); err != nil {
			test.Fatalf("clear: %v", err)
		}
		for _, key := range []clientstate.Key{clientstate.KeyAuthUser, clientstate.KeyAnonCartID} {
			if _, err := store.Get(ctx, visitorID, key); !errors.Is(err, clientstate.ErrNotFound) {
				test.Fatalf("expected %s cleared, got %v", key, err)
			}
		}
	})

	test.Run("unknown key is rejected", func(test *testing.T) {
		store := newStore(test)
		visitorID := register(test, store)
		err := store.Put(context.Background(), visitorID, clientstate.Key("theme"), "dark")
		if !errors.Is(err, clientstate.ErrInvalidKey) {
			test.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})
}

func register(test *testing.T, store clientstate.Store) clientstate.VisitorID {
	test.Helper()
	visitorID := clientstate.GenerateVisitorID()
	if _, err := store.RegisterVisitor(context.Background(), visitorID); err != nil {
		test.Fatalf("register: %v", err)
	}
	return visitorID
}
