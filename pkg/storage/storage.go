// Package storage defines the durable key/value store that persisted bindings
// read from and write to, plus an in-memory implementation and helpers.
//
// Values are always the full serialized text of a binding's value. A missing
// key is reported by the ok result of GetItem, never as an error.
//
// Backends live in subpackages:
//
//	sqlitestore  SQLite table (modernc.org/sqlite)
//	s3store      one object per key in an S3 bucket
//	natskv       NATS JetStream key/value bucket
package storage

import (
	"errors"
	"sort"
	"sync"

	"github.com/vango-dev/paramstate/pkg/reactive"
)

// ErrEmptyKey is returned when an operation is attempted with an empty key.
var ErrEmptyKey = errors.New("storage: empty key")

// Storage is a durable string key/value store.
type Storage interface {
	// GetItem returns the value stored under key and whether it exists.
	GetItem(key string) (string, bool, error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
}

// Context carries the Storage for a component tree. Bindings fall back to it
// when no storage is passed explicitly.
var Context = reactive.CreateContext[Storage](nil)

// Memory is an in-process Storage, safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ Storage = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

// GetItem implements Storage.
func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem implements Storage.
func (m *Memory) SetItem(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

// RemoveItem implements Storage.
func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored items.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Prefixed scopes every key of an underlying Storage under a fixed prefix,
// so several sessions can share one backend.
type Prefixed struct {
	inner  Storage
	prefix string
}

var _ Storage = Prefixed{}

// WithPrefix returns s with every key prefixed by prefix.
func WithPrefix(s Storage, prefix string) Prefixed {
	return Prefixed{inner: s, prefix: prefix}
}

// GetItem implements Storage.
func (p Prefixed) GetItem(key string) (string, bool, error) {
	return p.inner.GetItem(p.prefix + key)
}

// SetItem implements Storage.
func (p Prefixed) SetItem(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return p.inner.SetItem(p.prefix+key, value)
}

// RemoveItem implements Storage.
func (p Prefixed) RemoveItem(key string) error {
	return p.inner.RemoveItem(p.prefix + key)
}
