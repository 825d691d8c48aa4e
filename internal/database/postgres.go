// Package database opens the Postgres connection shared by the remote
// storage backend, the migrator and the backup queue.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenPostgres returns a bun.DB for dsn without contacting the server.
func OpenPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// ConnectPostgres opens dsn and pings it.
func ConnectPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*bun.DB, error) {
	db := OpenPostgres(dsn)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Postgres")
	return db, nil
}
