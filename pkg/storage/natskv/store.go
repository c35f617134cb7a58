// Package natskv provides a storage.Storage backed by a NATS JetStream
// key/value bucket.
//
// JetStream restricts key characters, so item keys are stored base64url
// encoded.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/vango-dev/paramstate/pkg/storage"
)

// DefaultTimeout bounds each KV operation.
const DefaultTimeout = 2 * time.Second

// KeyValue is the subset of jetstream.KeyValue the store uses.
type KeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// Store keeps items in a JetStream KV bucket.
type Store struct {
	kv      KeyValue
	conn    *nats.Conn
	timeout time.Duration
}

var _ storage.Storage = (*Store)(nil)

// New wraps an existing bucket handle.
func New(kv KeyValue) *Store {
	return &Store{kv: kv, timeout: DefaultTimeout}
}

// Connect dials url, then opens bucket, creating it if it does not exist.
func Connect(ctx context.Context, url, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("kv bucket is required")
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Persisted parameter state",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create KV bucket: %w", err)
		}
		slog.Info("created KV bucket for parameter state", "bucket", bucket)
	}

	s := New(kv)
	s.conn = conn
	return s, nil
}

// WithTimeout sets the per-operation timeout.
func (s *Store) WithTimeout(d time.Duration) *Store {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Close drains the connection opened by Connect, if any.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

// encodeKey maps an arbitrary item key onto the JetStream key alphabet.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// GetItem implements storage.Storage.
func (s *Store) GetItem(key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry, err := s.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get item %q: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

// SetItem implements storage.Storage.
func (s *Store) SetItem(key, value string) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.kv.Put(ctx, encodeKey(key), []byte(value)); err != nil {
		return fmt.Errorf("failed to put item %q: %w", key, err)
	}
	return nil
}

// RemoveItem implements storage.Storage.
func (s *Store) RemoveItem(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.kv.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete item %q: %w", key, err)
	}
	return nil
}
