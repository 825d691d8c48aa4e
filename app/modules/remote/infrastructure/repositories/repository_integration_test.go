package remotedb_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	remotedb "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories"
	remotemigrations "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("matchops"),
		postgres.WithUsername("matchops"),
		postgres.WithPassword("matchops"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping; postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	t.Cleanup(func() { db.Close() })

	migrator := migrate.NewMigrator(db, remotemigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)
	return db
}

func TestRepositoryIntegration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := remotedb.NewRepository(db)

	t.Run("games are scoped by user", func(t *testing.T) {
		require.NoError(t, repo.UpsertGame(ctx, nil, &remotedb.Game{UserID: "u1", GameID: "g1", Data: json.RawMessage(`{"gameId":"g1"}`)}))
		require.NoError(t, repo.UpsertGame(ctx, nil, &remotedb.Game{UserID: "u2", GameID: "g1", Data: json.RawMessage(`{"gameId":"g1","teamName":"Other"}`)}))
		require.NoError(t, repo.UpsertGame(ctx, nil, &remotedb.Game{UserID: "u1", GameID: "g1", Data: json.RawMessage(`{"gameId":"g1","teamName":"Lions"}`)}))

		games, err := repo.ListGames(ctx, nil, "u1")
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.JSONEq(t, `{"gameId":"g1","teamName":"Lions"}`, string(games[0].Data))

		require.NoError(t, repo.DeleteGame(ctx, nil, "u1", "g1"))
		assert.ErrorIs(t, repo.DeleteGame(ctx, nil, "u1", "g1"), remotedb.ErrNotFound)
	})

	t.Run("versioned records detect lost updates", func(t *testing.T) {
		rec := &remotedb.Record{UserID: "u1", ID: "p1", Name: "Aino", Data: json.RawMessage(`{"id":"p1"}`)}
		require.NoError(t, repo.SaveRecord(ctx, nil, remotedb.TablePlayers, rec, 0))
		assert.Equal(t, 1, rec.Version)

		dup := &remotedb.Record{UserID: "u1", ID: "p1", Name: "Aino", Data: json.RawMessage(`{"id":"p1"}`)}
		assert.ErrorIs(t, repo.SaveRecord(ctx, nil, remotedb.TablePlayers, dup, 0), remotedb.ErrVersionConflict)

		rec.Name = "Aino K"
		require.NoError(t, repo.SaveRecord(ctx, nil, remotedb.TablePlayers, rec, 1))
		assert.Equal(t, 2, rec.Version)

		stale := &remotedb.Record{UserID: "u1", ID: "p1", Name: "Stale", Data: json.RawMessage(`{"id":"p1"}`)}
		assert.ErrorIs(t, repo.SaveRecord(ctx, nil, remotedb.TablePlayers, stale, 1), remotedb.ErrVersionConflict)

		recs, err := repo.ListRecords(ctx, nil, remotedb.TablePlayers, "u1")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Aino K", recs[0].Name)
		assert.Equal(t, 2, recs[0].Version)

		require.NoError(t, repo.DeleteAllRecords(ctx, nil, remotedb.TablePlayers, "u1"))
		recs, err = repo.ListRecords(ctx, nil, remotedb.TablePlayers, "u1")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("app data round trip", func(t *testing.T) {
		_, err := repo.GetAppData(ctx, nil, "u1", "soccerAppSettings")
		assert.ErrorIs(t, err, remotedb.ErrNotFound)

		require.NoError(t, repo.UpsertAppData(ctx, nil, &remotedb.AppData{UserID: "u1", Key: "soccerAppSettings", Value: json.RawMessage(`{"language":"en"}`)}))
		got, err := repo.GetAppData(ctx, nil, "u1", "soccerAppSettings")
		require.NoError(t, err)
		assert.JSONEq(t, `{"language":"en"}`, string(got.Value))
		assert.False(t, got.UpdatedAt.IsZero())

		keys, err := repo.ListAppDataKeys(ctx, nil, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"soccerAppSettings"}, keys)
	})
}
