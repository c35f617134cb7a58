// Package backend opens the storage backend selected in paramstate.json.
package backend

import (
	"context"
	"io"
	"log/slog"

	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/internal/errors"
	"github.com/vango-dev/paramstate/pkg/storage"
	"github.com/vango-dev/paramstate/pkg/storage/natskv"
	"github.com/vango-dev/paramstate/pkg/storage/s3store"
	"github.com/vango-dev/paramstate/pkg/storage/sqlitestore"
)

// Store is an open backend. Close releases its connection, if it holds one.
type Store interface {
	storage.Storage
	io.Closer
}

type nopCloser struct {
	storage.Storage
}

func (nopCloser) Close() error { return nil }

// Open connects to the backend cfg selects. A non-empty storage.prefix
// scopes every key.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.StorageTimeout()

	var (
		s      storage.Storage
		closer io.Closer
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		s = storage.NewMemory()

	case config.BackendSQLite:
		db, err := sqlitestore.Open(cfg.SQLitePath())
		if err != nil {
			return nil, errors.New("E300").
				WithDetail("Could not open " + cfg.SQLitePath()).
				Wrap(err)
		}
		s, closer = db.WithTimeout(timeout), db

	case config.BackendS3:
		o := cfg.Storage.S3
		client := s3store.NewClient(s3store.ClientOptions{
			Region:          o.Region,
			Endpoint:        o.Endpoint,
			AccessKeyID:     o.AccessKeyID,
			SecretAccessKey: o.SecretAccessKey,
			UsePathStyle:    o.UsePathStyle,
		})
		s = s3store.New(client, o.Bucket, o.Prefix).WithTimeout(timeout)

	case config.BackendNATS:
		o := cfg.Storage.NATS
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		kv, err := natskv.Connect(ctx, o.URL, o.Bucket)
		if err != nil {
			return nil, errors.New("E300").
				WithDetail("Could not open bucket " + o.Bucket + " on " + o.URL).
				WithSuggestion("Check that the NATS server is running with JetStream enabled").
				Wrap(err)
		}
		s, closer = kv.WithTimeout(timeout), kv

	default:
		return nil, errors.New("E202").WithDetail("storage.backend is " + cfg.Storage.Backend)
	}

	logger.Info("storage opened", "backend", cfg.Storage.Backend, "prefix", cfg.Storage.Prefix)

	if cfg.Storage.Prefix != "" {
		s = storage.WithPrefix(s, cfg.Storage.Prefix)
	}
	if closer == nil {
		return nopCloser{s}, nil
	}
	return closing{Storage: s, Closer: closer}, nil
}

type closing struct {
	storage.Storage
	io.Closer
}

// Get reads key, mapping failures to coded errors. A missing key is E303.
func Get(s storage.Storage, key string) (string, error) {
	v, ok, err := s.GetItem(key)
	if err != nil {
		return "", errors.New("E301").WithDetail("key " + key).Wrap(err)
	}
	if !ok {
		return "", errors.New("E303").WithDetail("key " + key)
	}
	return v, nil
}

// Set writes key, mapping failures to coded errors.
func Set(s storage.Storage, key, value string) error {
	if err := s.SetItem(key, value); err != nil {
		return errors.New("E302").WithDetail("key " + key).Wrap(err)
	}
	return nil
}

// Remove deletes key, mapping failures to coded errors.
func Remove(s storage.Storage, key string) error {
	if err := s.RemoveItem(key); err != nil {
		return errors.New("E302").WithDetail("key " + key).Wrap(err)
	}
	return nil
}
