package remotedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when a versioned write lost a race.
	ErrVersionConflict = errors.New("record version conflict")

	// ErrUnknownTable is returned for a table outside the versioned set.
	ErrUnknownTable = errors.New("unknown record table")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new remote repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func tableExpr(table string) (string, bun.Ident, error) {
	switch table {
	case TablePlayers, TableSeasons, TableTournaments:
		return "? AS r", bun.Ident(table), nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
}

func (r *Impl) ListGames(ctx context.Context, db bun.IDB, userID string) ([]Game, error) {
	db = r.resolveDB(db)
	var games []Game
	err := db.NewSelect().
		Model(&games).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (r *Impl) UpsertGame(ctx context.Context, db bun.IDB, game *Game) error {
	db = r.resolveDB(db)
	game.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(game).
		On("CONFLICT (user_id, game_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("season_id = EXCLUDED.season_id").
		Set("tournament_id = EXCLUDED.tournament_id").
		Set("is_played = EXCLUDED.is_played").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

func (r *Impl) DeleteGame(ctx context.Context, db bun.IDB, userID, gameID string) error {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Game)(nil)).
		Where("user_id = ?", userID).
		Where("game_id = ?", gameID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return requireRows(result)
}

func (r *Impl) ListRecords(ctx context.Context, db bun.IDB, table, userID string) ([]Record, error) {
	expr, ident, err := tableExpr(table)
	if err != nil {
		return nil, err
	}
	db = r.resolveDB(db)
	var recs []Record
	err = db.NewSelect().
		Model(&recs).
		ModelTableExpr(expr, ident).
		Where("r.user_id = ?", userID).
		Order("r.name ASC", "r.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return recs, nil
}

func (r *Impl) SaveRecord(ctx context.Context, db bun.IDB, table string, rec *Record, expectedVersion int) error {
	expr, ident, err := tableExpr(table)
	if err != nil {
		return err
	}
	db = r.resolveDB(db)
	rec.UpdatedAt = time.Now().UTC()

	if expectedVersion == 0 {
		rec.Version = 1
		result, err := db.NewInsert().
			Model(rec).
			ModelTableExpr(expr, ident).
			On("CONFLICT (user_id, id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		if err := requireRows(result); err != nil {
			return ErrVersionConflict
		}
		return nil
	}

	result, err := db.NewUpdate().
		Model(rec).
		ModelTableExpr(expr, ident).
		Set("name = ?", rec.Name).
		Set("data = ?", rec.Data).
		Set("version = r.version + 1").
		Set("updated_at = ?", rec.UpdatedAt).
		Where("r.user_id = ?", rec.UserID).
		Where("r.id = ?", rec.ID).
		Where("r.version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if err := requireRows(result); err != nil {
		return ErrVersionConflict
	}
	rec.Version = expectedVersion + 1
	return nil
}

func (r *Impl) UpsertRecords(ctx context.Context, db bun.IDB, table string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	expr, ident, err := tableExpr(table)
	if err != nil {
		return err
	}
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for i := range recs {
		recs[i].UpdatedAt = now
		if recs[i].Version == 0 {
			recs[i].Version = 1
		}
	}
	_, err = db.NewInsert().
		Model(&recs).
		ModelTableExpr(expr, ident).
		On("CONFLICT (user_id, id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("data = EXCLUDED.data").
		Set("version = r.version + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", table, err)
	}
	return nil
}

func (r *Impl) DeleteRecord(ctx context.Context, db bun.IDB, table, userID, id string) error {
	expr, ident, err := tableExpr(table)
	if err != nil {
		return err
	}
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Record)(nil)).
		ModelTableExpr(expr, ident).
		Where("r.user_id = ?", userID).
		Where("r.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return requireRows(result)
}

func (r *Impl) DeleteAllRecords(ctx context.Context, db bun.IDB, table, userID string) error {
	expr, ident, err := tableExpr(table)
	if err != nil {
		return err
	}
	db = r.resolveDB(db)
	_, err = db.NewDelete().
		Model((*Record)(nil)).
		ModelTableExpr(expr, ident).
		Where("r.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

func (r *Impl) GetAppData(ctx context.Context, db bun.IDB, userID, key string) (*AppData, error) {
	db = r.resolveDB(db)
	data := new(AppData)
	err := db.NewSelect().
		Model(data).
		Where("user_id = ?", userID).
		Where("data_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get app data %q: %w", key, err)
	}
	return data, nil
}

func (r *Impl) UpsertAppData(ctx context.Context, db bun.IDB, data *AppData) error {
	db = r.resolveDB(db)
	data.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(data).
		On("CONFLICT (user_id, data_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert app data %q: %w", data.Key, err)
	}
	return nil
}

func (r *Impl) DeleteAppData(ctx context.Context, db bun.IDB, userID, key string) error {
	db = r.resolveDB(db)
	_, err := db.NewDelete().
		Model((*AppData)(nil)).
		Where("user_id = ?", userID).
		Where("data_key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete app data %q: %w", key, err)
	}
	return nil
}

func (r *Impl) ListAppDataKeys(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
	db = r.resolveDB(db)
	var keys []string
	err := db.NewSelect().
		Model((*AppData)(nil)).
		Column("data_key").
		Where("user_id = ?", userID).
		Order("data_key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list app data keys: %w", err)
	}
	return keys, nil
}

func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
