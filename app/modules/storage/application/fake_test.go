package storageservice

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	remoteservice "github.com/matchops/matchops/app/modules/remote/application"
)

// ------------------------
// Fake Generic Store
// ------------------------

type FakeGenericStore struct {
	mu    sync.Mutex
	trace []string
	data  map[string]remoteservice.GenericRecord
	now   func() time.Time

	GetGenericDataFunc    func(ctx context.Context, key string) (remoteservice.GenericRecord, error)
	SetGenericDataFunc    func(ctx context.Context, key string, value json.RawMessage) (time.Time, error)
	DeleteGenericDataFunc func(ctx context.Context, key string) error
	ListGenericKeysFunc   func(ctx context.Context) ([]string, error)
}

func NewFakeGenericStore() *FakeGenericStore {
	return &FakeGenericStore{
		trace: []string{},
		data:  map[string]remoteservice.GenericRecord{},
		now:   time.Now,
	}
}

func (f *FakeGenericStore) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeGenericStore) GetGenericData(ctx context.Context, key string) (remoteservice.GenericRecord, error) {
	f.record("GetGenericData")
	if f.GetGenericDataFunc != nil {
		return f.GetGenericDataFunc(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data[key]
	if !ok {
		return remoteservice.GenericRecord{}, remoteservice.ErrNotFound
	}
	return rec, nil
}

func (f *FakeGenericStore) SetGenericData(ctx context.Context, key string, value json.RawMessage) (time.Time, error) {
	f.record("SetGenericData")
	if f.SetGenericDataFunc != nil {
		return f.SetGenericDataFunc(ctx, key, value)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	at := f.now()
	f.data[key] = remoteservice.GenericRecord{Key: key, Value: value, UpdatedAt: at}
	return at, nil
}

func (f *FakeGenericStore) DeleteGenericData(ctx context.Context, key string) error {
	f.record("DeleteGenericData")
	if f.DeleteGenericDataFunc != nil {
		return f.DeleteGenericDataFunc(ctx, key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *FakeGenericStore) ListGenericKeys(ctx context.Context) ([]string, error) {
	f.record("ListGenericKeys")
	if f.ListGenericKeysFunc != nil {
		return f.ListGenericKeysFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// --- Accessors for assertions ---

func (f *FakeGenericStore) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ remoteservice.GenericStore = (*FakeGenericStore)(nil)
