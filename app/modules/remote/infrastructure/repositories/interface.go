package remotedb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for remote persistence. Every method takes
// the bun.IDB to run on so callers can compose them inside a transaction.
type Repository interface {
	// ListGames returns every game of the user.
	ListGames(ctx context.Context, db bun.IDB, userID string) ([]Game, error)

	// UpsertGame creates or replaces a game.
	UpsertGame(ctx context.Context, db bun.IDB, game *Game) error

	// DeleteGame removes a game. Returns ErrNotFound when nothing was deleted.
	DeleteGame(ctx context.Context, db bun.IDB, userID, gameID string) error

	// ListRecords returns every row of table for the user ordered by name.
	ListRecords(ctx context.Context, db bun.IDB, table, userID string) ([]Record, error)

	// SaveRecord inserts (expectedVersion == 0) or updates a row guarded by its version.
	// Returns ErrVersionConflict when the guard fails. On success rec.Version holds the new version.
	SaveRecord(ctx context.Context, db bun.IDB, table string, rec *Record, expectedVersion int) error

	// UpsertRecords writes rows unconditionally, bumping versions of existing ones.
	UpsertRecords(ctx context.Context, db bun.IDB, table string, recs []Record) error

	// DeleteRecord removes one row. Returns ErrNotFound when nothing was deleted.
	DeleteRecord(ctx context.Context, db bun.IDB, table, userID, id string) error

	// DeleteAllRecords removes every row of table for the user.
	DeleteAllRecords(ctx context.Context, db bun.IDB, table, userID string) error

	// GetAppData returns one generic document.
	GetAppData(ctx context.Context, db bun.IDB, userID, key string) (*AppData, error)

	// UpsertAppData creates or replaces a generic document.
	UpsertAppData(ctx context.Context, db bun.IDB, data *AppData) error

	// DeleteAppData removes a generic document. Missing keys are not an error.
	DeleteAppData(ctx context.Context, db bun.IDB, userID, key string) error

	// ListAppDataKeys returns the user's generic document keys in order.
	ListAppDataKeys(ctx context.Context, db bun.IDB, userID string) ([]string, error)
}
