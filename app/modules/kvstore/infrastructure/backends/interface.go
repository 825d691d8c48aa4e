package kvbackends

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned when a write would push the store past its byte quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnavailable is returned when the backend cannot be opened or used.
	ErrUnavailable = errors.New("storage backend unavailable")
)

// Kind names a backend variant.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

// Backend is a raw byte key-value store. The set of implementations is closed:
// SQLiteBackend and MemoryBackend.
type Backend interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the backend's resources.
	Close() error

	// Kind reports which variant this is.
	Kind() Kind

	sealed()
}

// Opener opens a backend on first use.
type Opener func(ctx context.Context) (Backend, error)

// Options selects and configures a backend variant.
type Options struct {
	Driver     Kind
	Path       string
	QuotaBytes int64
}

// NewOpener returns the opener for the configured variant.
func NewOpener(opts Options) (Opener, error) {
	switch opts.Driver {
	case KindSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		return func(ctx context.Context) (Backend, error) {
			return OpenSQLite(ctx, opts.Path, opts.QuotaBytes)
		}, nil
	case KindMemory, "":
		return func(context.Context) (Backend, error) {
			return NewMemory(opts.QuotaBytes), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
