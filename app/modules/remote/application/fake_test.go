package remoteservice

import (
	"context"

	remotedb "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Remote Repo
// ------------------------

type FakeRemoteRepo struct {
	trace []string

	ListGamesFunc        func(ctx context.Context, db bun.IDB, userID string) ([]remotedb.Game, error)
	UpsertGameFunc       func(ctx context.Context, db bun.IDB, game *remotedb.Game) error
	DeleteGameFunc       func(ctx context.Context, db bun.IDB, userID, gameID string) error
	ListRecordsFunc      func(ctx context.Context, db bun.IDB, table, userID string) ([]remotedb.Record, error)
	SaveRecordFunc       func(ctx context.Context, db bun.IDB, table string, rec *remotedb.Record, expectedVersion int) error
	UpsertRecordsFunc    func(ctx context.Context, db bun.IDB, table string, recs []remotedb.Record) error
	DeleteRecordFunc     func(ctx context.Context, db bun.IDB, table, userID, id string) error
	DeleteAllRecordsFunc func(ctx context.Context, db bun.IDB, table, userID string) error
	GetAppDataFunc       func(ctx context.Context, db bun.IDB, userID, key string) (*remotedb.AppData, error)
	UpsertAppDataFunc    func(ctx context.Context, db bun.IDB, data *remotedb.AppData) error
	DeleteAppDataFunc    func(ctx context.Context, db bun.IDB, userID, key string) error
	ListAppDataKeysFunc  func(ctx context.Context, db bun.IDB, userID string) ([]string, error)
}

func NewFakeRemoteRepo() *FakeRemoteRepo {
	return &FakeRemoteRepo{
		trace: []string{},
	}
}

func (f *FakeRemoteRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeRemoteRepo) ListGames(ctx context.Context, db bun.IDB, userID string) ([]remotedb.Game, error) {
	f.record("ListGames")
	if f.ListGamesFunc != nil {
		return f.ListGamesFunc(ctx, db, userID)
	}
	return nil, nil
}

func (f *FakeRemoteRepo) UpsertGame(ctx context.Context, db bun.IDB, game *remotedb.Game) error {
	f.record("UpsertGame")
	if f.UpsertGameFunc != nil {
		return f.UpsertGameFunc(ctx, db, game)
	}
	return nil
}

func (f *FakeRemoteRepo) DeleteGame(ctx context.Context, db bun.IDB, userID, gameID string) error {
	f.record("DeleteGame")
	if f.DeleteGameFunc != nil {
		return f.DeleteGameFunc(ctx, db, userID, gameID)
	}
	return nil
}

func (f *FakeRemoteRepo) ListRecords(ctx context.Context, db bun.IDB, table, userID string) ([]remotedb.Record, error) {
	f.record("ListRecords")
	if f.ListRecordsFunc != nil {
		return f.ListRecordsFunc(ctx, db, table, userID)
	}
	return nil, nil
}

func (f *FakeRemoteRepo) SaveRecord(ctx context.Context, db bun.IDB, table string, rec *remotedb.Record, expectedVersion int) error {
	f.record("SaveRecord")
	if f.SaveRecordFunc != nil {
		return f.SaveRecordFunc(ctx, db, table, rec, expectedVersion)
	}
	rec.Version = expectedVersion + 1
	return nil
}

func (f *FakeRemoteRepo) UpsertRecords(ctx context.Context, db bun.IDB, table string, recs []remotedb.Record) error {
	f.record("UpsertRecords")
	if f.UpsertRecordsFunc != nil {
		return f.UpsertRecordsFunc(ctx, db, table, recs)
	}
	return nil
}

func (f *FakeRemoteRepo) DeleteRecord(ctx context.Context, db bun.IDB, table, userID, id string) error {
	f.record("DeleteRecord")
	if f.DeleteRecordFunc != nil {
		return f.DeleteRecordFunc(ctx, db, table, userID, id)
	}
	return nil
}

func (f *FakeRemoteRepo) DeleteAllRecords(ctx context.Context, db bun.IDB, table, userID string) error {
	f.record("DeleteAllRecords")
	if f.DeleteAllRecordsFunc != nil {
		return f.DeleteAllRecordsFunc(ctx, db, table, userID)
	}
	return nil
}

func (f *FakeRemoteRepo) GetAppData(ctx context.Context, db bun.IDB, userID, key string) (*remotedb.AppData, error) {
	f.record("GetAppData")
	if f.GetAppDataFunc != nil {
		return f.GetAppDataFunc(ctx, db, userID, key)
	}
	return nil, remotedb.ErrNotFound
}

func (f *FakeRemoteRepo) UpsertAppData(ctx context.Context, db bun.IDB, data *remotedb.AppData) error {
	f.record("UpsertAppData")
	if f.UpsertAppDataFunc != nil {
		return f.UpsertAppDataFunc(ctx, db, data)
	}
	return nil
}

func (f *FakeRemoteRepo) DeleteAppData(ctx context.Context, db bun.IDB, userID, key string) error {
	f.record("DeleteAppData")
	if f.DeleteAppDataFunc != nil {
		return f.DeleteAppDataFunc(ctx, db, userID, key)
	}
	return nil
}

func (f *FakeRemoteRepo) ListAppDataKeys(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
	f.record("ListAppDataKeys")
	if f.ListAppDataKeysFunc != nil {
		return f.ListAppDataKeysFunc(ctx, db, userID)
	}
	return nil, nil
}

// --- Accessors for assertions ---

func (f *FakeRemoteRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ remotedb.Repository = (*FakeRemoteRepo)(nil)
