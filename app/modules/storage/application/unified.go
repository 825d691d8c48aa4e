package storageservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	kvservice "github.com/matchops/matchops/app/modules/kvstore/application"
	remoteservice "github.com/matchops/matchops/app/modules/remote/application"
	storagedomain "github.com/matchops/matchops/app/modules/storage/domain"
)

// UnifiedStorage reads and writes keyed documents across the local store
// and, when configured, the remote store. Writes are redundant and succeed
// when any leg succeeds; reads pick the newer copy.
type UnifiedStorage struct {
	local    kvservice.Store
	remote   remoteservice.GenericStore
	tx       *TransactionManager
	resolver *ConflictResolver
	logger   *slog.Logger
	now      func() time.Time
	scope    remoteservice.UserResolver
}

// userScopePrefix namespaces local keys per user: user/<id>/<key>.
const userScopePrefix = "user/"

// NewUnifiedStorage creates a UnifiedStorage. A nil remote selects local-only mode.
func NewUnifiedStorage(
	local kvservice.Store,
	remote remoteservice.GenericStore,
	tx *TransactionManager,
	resolver *ConflictResolver,
	logger *slog.Logger,
) *UnifiedStorage {
	if logger == nil {
		logger = slog.Default()
	}
	if tx == nil {
		tx = NewTransactionManager(logger, nil, nil, 0)
	}
	if resolver == nil {
		resolver = NewConflictResolver(logger)
	}
	return &UnifiedStorage{
		local:    local,
		remote:   remote,
		tx:       tx,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// WithUserScope returns a copy that keeps each user's local documents apart.
// Local keys are stored under the user resolved from the request context;
// contexts without a user read and write the unscoped keys.
func (u *UnifiedStorage) WithUserScope(resolve remoteservice.UserResolver) *UnifiedStorage {
	scoped := *u
	scoped.scope = resolve
	return &scoped
}

// localPrefix returns the local key prefix for the caller, empty when unscoped.
func (u *UnifiedStorage) localPrefix(ctx context.Context) string {
	if u.scope == nil {
		return ""
	}
	if id, ok := u.scope(ctx); ok && id != "" {
		return userScopePrefix + id + "/"
	}
	return ""
}

// RemoteEnabled reports whether a remote store is configured.
func (u *UnifiedStorage) RemoteEnabled() bool {
	return u.remote != nil
}

// GetItem returns the resolved document under key. Malformed documents count as absent.
// An error is returned only when no copy was found and a backend failed for a
// reason other than malformed data.
func (u *UnifiedStorage) GetItem(ctx context.Context, key string) (json.RawMessage, bool, error) {
	local := u.readLocal(ctx, key)
	remote := Source{}
	if u.remote != nil {
		remote = u.readRemote(ctx, key)
	}

	res := u.resolver.Resolve(remote, local, key)
	if res.Found {
		return res.Value, true, nil
	}

	var errs []error
	for _, err := range []error{remote.Err, local.Err} {
		if err != nil && !errors.Is(err, kvservice.ErrSerialization) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, false, errors.Join(errs...)
	}
	return nil, false, nil
}

func (u *UnifiedStorage) readLocal(ctx context.Context, key string) Source {
	raw, found, err := u.local.Get(ctx, u.localPrefix(ctx)+key)
	if err != nil {
		u.logger.WarnContext(ctx, "Local read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return Source{Err: err}
	}
	if !found {
		return Source{}
	}
	data, ts := storagedomain.Unwrap(raw)
	return Source{Value: data, Timestamp: ts, Found: true}
}

func (u *UnifiedStorage) readRemote(ctx context.Context, key string) Source {
	rec, err := u.remote.GetGenericData(ctx, key)
	if err != nil {
		if errors.Is(err, remoteservice.ErrNotFound) {
			return Source{}
		}
		u.logger.WarnContext(ctx, "Remote read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return Source{Err: err}
	}
	if !json.Valid(rec.Value) {
		return Source{}
	}
	var ts *time.Time
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		ts = &t
	}
	return Source{Value: rec.Value, Timestamp: ts, Found: true}
}

// GetItemAs decodes the resolved document into T.
func GetItemAs[T any](ctx context.Context, u *UnifiedStorage, key string) (T, bool, error) {
	var out T
	raw, found, err := u.GetItem(ctx, key)
	if err != nil || !found {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		u.logger.WarnContext(ctx, "Stored document does not match expected shape",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return zero, false, nil
	}
	return out, true, nil
}

// SetItem writes value to every configured backend.
func (u *UnifiedStorage) SetItem(ctx context.Context, key string, value any) error {
	data, err := marshalDocument(value)
	if err != nil {
		return err
	}

	var ops []Operation
	if u.remote != nil {
		ops = append(ops, Operation{
			Name: "remote.SetGenericData",
			Run: func(ctx context.Context) error {
				_, err := u.remote.SetGenericData(ctx, key, data)
				return err
			},
		})
	}
	ops = append(ops, Operation{
		Name: "local.Set",
		Run: func(ctx context.Context) error {
			wrapped, err := storagedomain.Wrap(data, u.now())
			if err != nil {
				return fmt.Errorf("%w: %w", kvservice.ErrSerialization, err)
			}
			return u.local.Set(ctx, u.localPrefix(ctx)+key, wrapped)
		},
	})

	return u.settle(ctx, "SetItem", key, u.tx.Execute(ctx, ops, Options{}))
}

// RemoveItem deletes key from every configured backend.
func (u *UnifiedStorage) RemoveItem(ctx context.Context, key string) error {
	var ops []Operation
	if u.remote != nil {
		ops = append(ops, Operation{
			Name: "remote.DeleteGenericData",
			Run:  func(ctx context.Context) error { return u.remote.DeleteGenericData(ctx, key) },
		})
	}
	ops = append(ops, Operation{
		Name: "local.Remove",
		Run:  func(ctx context.Context) error { return u.local.Remove(ctx, u.localPrefix(ctx)+key) },
	})

	return u.settle(ctx, "RemoveItem", key, u.tx.Execute(ctx, ops, Options{}))
}

func (u *UnifiedStorage) settle(ctx context.Context, op, key string, result TransactionResult) error {
	if result.AnySucceeded() {
		if !result.AllSucceeded() {
			u.logger.WarnContext(ctx, "Redundant write partially failed",
				slog.String("operation", op),
				slog.String("key", key),
				slog.Any("results", result.Results),
				slog.Any("error", result.FirstError()),
			)
		}
		return nil
	}
	if err := result.FirstError(); err != nil {
		return fmt.Errorf("%s %q: %w", op, key, err)
	}
	return fmt.Errorf("%s %q: %w", op, key, ErrAllOperationsFailed)
}

// HasItem reports whether any backend holds a readable document under key.
func (u *UnifiedStorage) HasItem(ctx context.Context, key string) (bool, error) {
	_, found, err := u.GetItem(ctx, key)
	return found, err
}

// Keys returns the sorted union of keys across backends.
func (u *UnifiedStorage) Keys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	localKeys, localErr := u.local.Keys(ctx)
	prefix := u.localPrefix(ctx)
	for _, k := range localKeys {
		if u.scope != nil {
			rest, ok := strings.CutPrefix(k, prefix)
			if !ok || (prefix == "" && strings.HasPrefix(k, userScopePrefix)) {
				continue
			}
			k = rest
		}
		seen[k] = struct{}{}
	}

	var remoteErr error
	if u.remote != nil {
		var remoteKeys []string
		remoteKeys, remoteErr = u.remote.ListGenericKeys(ctx)
		for _, k := range remoteKeys {
			seen[k] = struct{}{}
		}
	}

	if localErr != nil && (u.remote == nil || remoteErr != nil) {
		return nil, errors.Join(localErr, remoteErr)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func marshalDocument(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, kvservice.ErrSerialization
		}
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kvservice.ErrSerialization, err)
	}
	return data, nil
}
