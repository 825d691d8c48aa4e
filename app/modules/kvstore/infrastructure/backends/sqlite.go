package kvbackends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Item is one stored key.
type Item struct {
	bun.BaseModel `bun:"table:kv_items,alias:kv"`
	Key           string    `bun:"item_key,pk"`
	Value         []byte    `bun:"value,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// SQLiteBackend persists keys in a single SQLite table through bun.
type SQLiteBackend struct {
	db    *bun.DB
	quota int64
}

// OpenSQLite opens (creating if needed) the database at path. quota <= 0 disables the limit.
func OpenSQLite(ctx context.Context, path string, quota int64) (*SQLiteBackend, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrUnavailable, err)
	}

	// SQLite allows a single writer.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	if _, err := sqldb.ExecContext(ctx, "PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("%w: setting pragmas: %w", ErrUnavailable, err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.NewCreateTable().Model((*Item)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating kv_items: %w", ErrUnavailable, err)
	}

	return &SQLiteBackend{db: db, quota: quota}, nil
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item := new(Item)
	err := s.db.NewSelect().
		Model(item).
		Where("item_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %q: %w", key, classifySQLite(err))
	}
	return item.Value, true, nil
}

func (s *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if s.quota > 0 {
			var used int64
			err := tx.NewSelect().
				Model((*Item)(nil)).
				ColumnExpr("COALESCE(SUM(LENGTH(CAST(item_key AS BLOB)) + LENGTH(value)), 0)").
				Where("item_key != ?", key).
				Scan(ctx, &used)
			if err != nil {
				return fmt.Errorf("failed to measure usage: %w", classifySQLite(err))
			}
			if used+entrySize(key, value) > s.quota {
				return ErrQuotaExceeded
			}
		}

		item := &Item{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
		_, err := tx.NewInsert().
			Model(item).
			On("CONFLICT (item_key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set %q: %w", key, classifySQLite(err))
		}
		return nil
	})
}

func (s *SQLiteBackend) Remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*Item)(nil)).
		Where("item_key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, classifySQLite(err))
	}
	return nil
}

func (s *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*Item)(nil)).
		Column("item_key").
		Order("item_key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", classifySQLite(err))
	}
	return keys, nil
}

func (s *SQLiteBackend) Close() error { return s.db.Close() }

func (s *SQLiteBackend) Kind() Kind { return KindSQLite }

func (s *SQLiteBackend) sealed() {}

// classifySQLite maps engine errors onto the package sentinels.
func classifySQLite(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_FULL:
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CORRUPT:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

var _ Backend = (*SQLiteBackend)(nil)
