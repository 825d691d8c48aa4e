// Package kvservice is the JSON document layer over the local key-value backends.
package kvservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	kvbackends "github.com/matchops/matchops/app/modules/kvstore/infrastructure/backends"
)

// ErrSerialization is returned when a value cannot be encoded to, or decoded from, JSON.
var ErrSerialization = errors.New("value is not valid JSON")

// Re-exported so callers need not import the backends package for errors.Is checks.
var (
	ErrQuotaExceeded = kvbackends.ErrQuotaExceeded
	ErrUnavailable   = kvbackends.ErrUnavailable
)

// Store is the contract the rest of the app uses for local documents.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// Adapter is a JSON document store over a raw backend. The backend is opened
// on first use; if opening fails, every call returns ErrUnavailable. An open
// cut short by a context deadline or cancellation is retried on the next call.
type Adapter struct {
	open    kvbackends.Opener
	mu      sync.Mutex
	bound   bool
	backend kvbackends.Backend
	openErr error
	logger  *slog.Logger
}

// NewAdapter creates an adapter that opens its backend lazily.
func NewAdapter(open kvbackends.Opener, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{open: open, logger: logger}
}

// NewAdapterWithBackend creates an adapter bound to an already open backend.
func NewAdapterWithBackend(backend kvbackends.Backend, logger *slog.Logger) *Adapter {
	return NewAdapter(func(context.Context) (kvbackends.Backend, error) { return backend, nil }, logger)
}

func (a *Adapter) bind(ctx context.Context) (kvbackends.Backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bound {
		return a.backend, a.openErr
	}

	if a.open == nil {
		a.bound = true
		a.openErr = fmt.Errorf("%w: no backend configured", ErrUnavailable)
		return nil, a.openErr
	}

	// The backend outlives the request that happens to open it.
	b, err := a.open(context.WithoutCancel(ctx))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.logger.WarnContext(ctx, "Opening local storage backend was interrupted", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		a.bound = true
		a.openErr = err
		a.logger.ErrorContext(ctx, "Failed to open local storage backend", slog.String("error", err.Error()))
		return nil, err
	}

	a.bound = true
	a.backend = b
	a.logger.InfoContext(ctx, "Local storage backend bound", slog.String("kind", string(b.Kind())))
	return b, nil
}

// Get returns the stored JSON document under key.
func (a *Adapter) Get(ctx context.Context, key string) (raw json.RawMessage, found bool, err error) {
	defer a.recoverInto("Get", key, &err)

	b, err := a.bind(ctx)
	if err != nil {
		return nil, false, err
	}
	data, found, err := b.Get(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "Local storage read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if !json.Valid(data) {
		return nil, false, fmt.Errorf("%w: key %q holds malformed data", ErrSerialization, key)
	}
	return json.RawMessage(data), true, nil
}

// Set encodes value as JSON and stores it under key.
func (a *Adapter) Set(ctx context.Context, key string, value any) (err error) {
	defer a.recoverInto("Set", key, &err)

	data, err := encode(value)
	if err != nil {
		return err
	}
	b, err := a.bind(ctx)
	if err != nil {
		return err
	}
	if err := b.Set(ctx, key, data); err != nil {
		a.logger.WarnContext(ctx, "Local storage write failed",
			slog.String("key", key),
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()),
		)
		return err
	}
	a.logger.DebugContext(ctx, "Local storage write", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) (err error) {
	defer a.recoverInto("Remove", key, &err)

	b, err := a.bind(ctx)
	if err != nil {
		return err
	}
	return b.Remove(ctx, key)
}

// Has reports whether key holds a value.
func (a *Adapter) Has(ctx context.Context, key string) (found bool, err error) {
	defer a.recoverInto("Has", key, &err)

	b, err := a.bind(ctx)
	if err != nil {
		return false, err
	}
	_, found, err = b.Get(ctx, key)
	return found, err
}

// Keys lists every stored key.
func (a *Adapter) Keys(ctx context.Context) (keys []string, err error) {
	defer a.recoverInto("Keys", "", &err)

	b, err := a.bind(ctx)
	if err != nil {
		return nil, err
	}
	return b.Keys(ctx)
}

// Close closes the backend if it was opened.
func (a *Adapter) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func (a *Adapter) recoverInto(op, key string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: panic in %s: %v", ErrUnavailable, op, r)
		a.logger.Error("Critical panic recovered", slog.String("operation", op), slog.String("key", key), slog.Any("panic", r))
	}
}

func encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, ErrSerialization
		}
		return v, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		return data, nil
	}
}

// GetAs decodes the document under key into T, returning def when the key is
// missing, unreadable or malformed.
func GetAs[T any](ctx context.Context, s Store, key string, def T) T {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return def
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return def
	}
	return out
}

var _ Store = (*Adapter)(nil)
