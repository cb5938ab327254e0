package clientstate

import (
	"context"
	"sync"
)

// MemoryStore keeps client state in process memory.
type MemoryStore struct {
	mutex    sync.RWMutex
	visitors map[string]map[Key]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{visitors: map[string]map[Key]string{}}
}

func (store *MemoryStore) RegisterVisitor(_ context.Context, visitorID VisitorID) (bool, error) {
	if visitorID.IsZero() {
		return false, ErrInvalidVisitorID
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, ok := store.visitors[visitorID.String()]; ok {
		return false, nil
	}
	store.visitors[visitorID.String()] = map[Key]string{}
	return true, nil
}

func (store *MemoryStore) Get(_ context.Context, visitorID VisitorID, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	value, ok := store.visitors[visitorID.String()][key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (store *MemoryStore) Put(_ context.Context, visitorID VisitorID, key Key, value string) error {
	if visitorID.IsZero() {
		return ErrInvalidVisitorID
	}
	if err := key.Validate(); err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	values, ok := store.visitors[visitorID.String()]
	if !ok {
		values = map[Key]string{}
		store.visitors[visitorID.String()] = values
	}
	values[key] = value
	return nil
}

func (store *MemoryStore) Delete(_ context.Context, visitorID VisitorID, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.visitors[visitorID.String()], key)
	return nil
}

func (store *MemoryStore) Clear(_ context.Context, visitorID VisitorID) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if values, ok := store.visitors[visitorID.String()]; ok {
		for key := range values {
			delete(values, key)
		}
	}
	return nil
}
