package remoteservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	remotedb "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories"
	"github.com/matchops/matchops/app/shared/metrics"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testUser = "user-1"

func signedIn(context.Context) (string, bool) { return testUser, true }

func signedOut(context.Context) (string, bool) { return "", false }

func newTestClient(repo *FakeRemoteRepo, user UserResolver) *RemoteClient {
	return NewRemoteClient(repo, nil, user, nil, slog.Default(), metrics.NewNoop(), nil)
}

func TestRemoteClientRequiresUser(t *testing.T) {
	repo := NewFakeRemoteRepo()
	client := newTestClient(repo, signedOut)

	_, err := client.GetSavedGames(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, repo.Trace(), "repository must not be touched without a user")

	client = newTestClient(repo, nil)
	err = client.DeleteGame(context.Background(), "g1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetSavedGames(t *testing.T) {
	tests := []struct {
		name      string
		setupRepo func(*FakeRemoteRepo)
		wantIDs   []string
		wantErr   error
	}{
		{
			name: "decodes rows and keys them by id",
			setupRepo: func(f *FakeRemoteRepo) {
				f.ListGamesFunc = func(ctx context.Context, db bun.IDB, userID string) ([]remotedb.Game, error) {
					assert.Equal(t, testUser, userID)
					return []remotedb.Game{
						{GameID: "g1", Data: json.RawMessage(`{"gameId":"g1","teamName":"Lions"}`)},
						{GameID: "g2", Data: json.RawMessage(`{"teamName":"Tigers"}`)},
					}, nil
				}
			},
			wantIDs: []string{"g1", "g2"},
		},
		{
			name: "skips undecodable rows",
			setupRepo: func(f *FakeRemoteRepo) {
				f.ListGamesFunc = func(ctx context.Context, db bun.IDB, userID string) ([]remotedb.Game, error) {
					return []remotedb.Game{
						{GameID: "g1", Data: json.RawMessage(`{"gameId":"g1"}`)},
						{GameID: "bad", Data: json.RawMessage(`[`)},
					}, nil
				}
			},
			wantIDs: []string{"g1"},
		},
		{
			name: "connection refused is a network error",
			setupRepo: func(f *FakeRemoteRepo) {
				f.ListGamesFunc = func(ctx context.Context, db bun.IDB, userID string) ([]remotedb.Game, error) {
					return nil, context.DeadlineExceeded
				}
			},
			wantErr: ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeRemoteRepo()
			tt.setupRepo(repo)
			client := newTestClient(repo, signedIn)

			games, err := client.GetSavedGames(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, games, len(tt.wantIDs))
			for _, id := range tt.wantIDs {
				assert.Equal(t, id, games[id].GameID)
			}
		})
	}
}

func TestSaveGameWritesColumns(t *testing.T) {
	repo := NewFakeRemoteRepo()
	var saved *remotedb.Game
	repo.UpsertGameFunc = func(ctx context.Context, db bun.IDB, game *remotedb.Game) error {
		saved = game
		return nil
	}
	client := newTestClient(repo, signedIn)

	game := types.GameState{GameID: "g1", TeamName: "Lions", SeasonID: "s1", IsPlayed: types.BoolPtr(false)}
	require.NoError(t, client.SaveGame(context.Background(), game))

	require.NotNil(t, saved)
	assert.Equal(t, testUser, saved.UserID)
	assert.Equal(t, "g1", saved.GameID)
	assert.Equal(t, "s1", saved.SeasonID)
	require.NotNil(t, saved.IsPlayed)
	assert.False(t, *saved.IsPlayed)

	decoded, err := types.DecodeGame(saved.Data)
	require.NoError(t, err)
	assert.Equal(t, "Lions", decoded.TeamName)
}

func TestSaveGameConstraintViolation(t *testing.T) {
	repo := NewFakeRemoteRepo()
	repo.UpsertGameFunc = func(ctx context.Context, db bun.IDB, game *remotedb.Game) error {
		return errors.New("boom")
	}
	client := newTestClient(repo, signedIn)

	err := client.SaveGame(context.Background(), types.GameState{GameID: "g1"})
	assert.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestDeleteGameNotFound(t *testing.T) {
	repo := NewFakeRemoteRepo()
	repo.DeleteGameFunc = func(ctx context.Context, db bun.IDB, userID, gameID string) error {
		return remotedb.ErrNotFound
	}
	client := newTestClient(repo, signedIn)

	err := client.DeleteGame(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePlayerVersioning(t *testing.T) {
	tests := []struct {
		name        string
		setupRepo   func(*FakeRemoteRepo)
		expected    int
		wantVersion int
		wantErr     error
	}{
		{
			name:        "insert assigns version 1",
			setupRepo:   func(f *FakeRemoteRepo) {},
			expected:    0,
			wantVersion: 1,
		},
		{
			name:        "update bumps version",
			setupRepo:   func(f *FakeRemoteRepo) {},
			expected:    3,
			wantVersion: 4,
		},
		{
			name: "stale version conflicts",
			setupRepo: func(f *FakeRemoteRepo) {
				f.SaveRecordFunc = func(ctx context.Context, db bun.IDB, table string, rec *remotedb.Record, expectedVersion int) error {
					return remotedb.ErrVersionConflict
				}
			},
			expected: 2,
			wantErr:  ErrVersionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeRemoteRepo()
			tt.setupRepo(repo)
			client := newTestClient(repo, signedIn)

			player, err := client.SavePlayer(context.Background(), types.Player{ID: "p1", Name: "Ann"}, tt.expected)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, player.Version)
			assert.Equal(t, "Ann", player.Name)
		})
	}
}

func TestGetPlayersCarriesRowVersion(t *testing.T) {
	repo := NewFakeRemoteRepo()
	repo.ListRecordsFunc = func(ctx context.Context, db bun.IDB, table, userID string) ([]remotedb.Record, error) {
		assert.Equal(t, remotedb.TablePlayers, table)
		return []remotedb.Record{
			{ID: "p1", Name: "Ann", Data: json.RawMessage(`{"id":"p1","name":"Ann","version":1}`), Version: 7},
		}, nil
	}
	client := newTestClient(repo, signedIn)

	players, err := client.GetPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, 7, players[0].Version)
}

func TestReplacePlayersRunsDeleteThenUpsert(t *testing.T) {
	repo := NewFakeRemoteRepo()
	var written []remotedb.Record
	repo.UpsertRecordsFunc = func(ctx context.Context, db bun.IDB, table string, recs []remotedb.Record) error {
		written = recs
		return nil
	}
	client := newTestClient(repo, signedIn)

	err := client.ReplacePlayers(context.Background(), []types.Player{{ID: "p1", Name: "Ann"}, {ID: "p2", Name: "Bo"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"DeleteAllRecords", "UpsertRecords"}, repo.Trace())
	require.Len(t, written, 2)
	assert.Equal(t, testUser, written[1].UserID)
}

func TestSeasonAndTournamentTables(t *testing.T) {
	repo := NewFakeRemoteRepo()
	var tables []string
	repo.SaveRecordFunc = func(ctx context.Context, db bun.IDB, table string, rec *remotedb.Record, expectedVersion int) error {
		tables = append(tables, table)
		rec.Version = 1
		return nil
	}
	repo.DeleteRecordFunc = func(ctx context.Context, db bun.IDB, table, userID, id string) error {
		tables = append(tables, table)
		return nil
	}
	client := newTestClient(repo, signedIn)
	ctx := context.Background()

	_, err := client.SaveSeason(ctx, types.Season{ID: "s1", Name: "Spring"}, 0)
	require.NoError(t, err)
	_, err = client.SaveTournament(ctx, types.Tournament{ID: "t1", Name: "Cup"}, 0)
	require.NoError(t, err)
	require.NoError(t, client.DeleteSeason(ctx, "s1"))
	require.NoError(t, client.DeleteTournament(ctx, "t1"))

	assert.Equal(t, []string{
		remotedb.TableSeasons, remotedb.TableTournaments,
		remotedb.TableSeasons, remotedb.TableTournaments,
	}, tables)
}

func TestGenericData(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	repo := NewFakeRemoteRepo()
	repo.UpsertAppDataFunc = func(ctx context.Context, db bun.IDB, data *remotedb.AppData) error {
		assert.Equal(t, testUser, data.UserID)
		data.UpdatedAt = stamp
		return nil
	}
	repo.GetAppDataFunc = func(ctx context.Context, db bun.IDB, userID, key string) (*remotedb.AppData, error) {
		if key != "k" {
			return nil, remotedb.ErrNotFound
		}
		return &remotedb.AppData{UserID: userID, Key: key, Value: json.RawMessage(`{"a":1}`), UpdatedAt: stamp}, nil
	}
	repo.ListAppDataKeysFunc = func(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
		return []string{"k"}, nil
	}
	client := newTestClient(repo, signedIn)
	ctx := context.Background()

	written, err := client.SetGenericData(ctx, "k", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, stamp, written)

	rec, err := client.GetGenericData(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(rec.Value))
	assert.Equal(t, stamp, rec.UpdatedAt)

	_, err = client.GetGenericData(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := client.ListGenericKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, client.DeleteGenericData(ctx, "k"))
}

func TestRemoteClientRecoversPanics(t *testing.T) {
	repo := NewFakeRemoteRepo()
	repo.ListAppDataKeysFunc = func(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
		panic("driver exploded")
	}
	client := newTestClient(repo, signedIn)

	_, err := client.ListGenericKeys(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver exploded")
}
