package remotemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating games, roster and app_data tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS games (
					user_id VARCHAR(64) NOT NULL,
					game_id VARCHAR(128) NOT NULL,
					data JSONB NOT NULL,
					season_id VARCHAR(128),
					tournament_id VARCHAR(128),
					is_played BOOLEAN,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, game_id),
					CONSTRAINT games_single_competition CHECK (season_id IS NULL OR tournament_id IS NULL)
				);
				CREATE INDEX IF NOT EXISTS idx_games_user_season ON games(user_id, season_id);
				CREATE INDEX IF NOT EXISTS idx_games_user_tournament ON games(user_id, tournament_id);
			`); err != nil {
				return fmt.Errorf("failed to create games table: %w", err)
			}

			for _, table := range []string{"players", "seasons", "tournaments"} {
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
					CREATE TABLE IF NOT EXISTS %[1]s (
						user_id VARCHAR(64) NOT NULL,
						id VARCHAR(128) NOT NULL,
						name TEXT NOT NULL DEFAULT '',
						data JSONB NOT NULL,
						version INTEGER NOT NULL DEFAULT 1,
						updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
						PRIMARY KEY (user_id, id)
					);
				`, table)); err != nil {
					return fmt.Errorf("failed to create %s table: %w", table, err)
				}
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS app_data (
					user_id VARCHAR(64) NOT NULL,
					data_key VARCHAR(128) NOT NULL,
					value JSONB NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, data_key)
				);
			`); err != nil {
				return fmt.Errorf("failed to create app_data table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping games, roster and app_data tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS app_data;
			DROP TABLE IF EXISTS tournaments;
			DROP TABLE IF EXISTS seasons;
			DROP TABLE IF EXISTS players;
			DROP TABLE IF EXISTS games;
		`)
		if err != nil {
			return fmt.Errorf("failed to drop sync tables: %w", err)
		}
		return nil
	})
}
