// Package session provides the session-scoped storage that authentication
// strategies cache tokens in.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("session store closed")

// Store defines session-scoped key/value storage. A store belongs to exactly
// one session; callers own its lifetime and must Close it.
type Store interface {
	// Get returns the value stored under key. The boolean is false when the
	// key has never been set or was deleted.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// MemoryStore keeps values in process memory for the lifetime of the value.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

// Close drops all values. Further calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = nil
	m.closed = true
	return nil
}

type contextKey struct{}

var storeKey = contextKey{}

// FromContext retrieves the session store from the context.
// Returns nil if not found.
func FromContext(ctx context.Context) Store {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(storeKey).(Store); ok {
		return s
	}
	return nil
}

// NewContext returns a new context with the session store attached.
func NewContext(ctx context.Context, store Store) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, storeKey, store)
}
