// Package linkstore persists which document each issue syncs to and when it
// was last synced, on top of a small key-value store.
package linkstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielolaszy/jiradocs/internal/config"
)

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.LinkStoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.LinkStoreRedis:
		s, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.LinkStoreFile, "":
		path := cfg.Path
		if path == "" {
			var err error
			if path, err = DefaultFilePath(); err != nil {
				return nil, err
			}
		}
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown link store backend %q", cfg.Backend)
	}
}
