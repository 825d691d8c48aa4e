// Package remoteservice is the per-user client of the remote Postgres store.
package remoteservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	remotedb "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories"
	"github.com/matchops/matchops/app/shared/metrics"
	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const serviceName = "RemoteClient"

// RemoteClient implements Client on top of the bun repository.
type RemoteClient struct {
	repo        remotedb.Repository
	db          *bun.DB
	currentUser UserResolver
	limiter     *rate.Limiter
	logger      *slog.Logger
	metrics     metrics.OperationMetrics
	tracer      trace.Tracer
}

// NewRemoteClient creates a new RemoteClient. limiter may be nil to disable throttling.
func NewRemoteClient(
	repo remotedb.Repository,
	db *bun.DB,
	currentUser UserResolver,
	limiter *rate.Limiter,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
) *RemoteClient {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &RemoteClient{
		repo:        repo,
		db:          db,
		currentUser: currentUser,
		limiter:     limiter,
		logger:      logger,
		metrics:     m,
		tracer:      tracer,
	}
}

// --- Games ---

// GetSavedGames returns every saved game keyed by id.
func (c *RemoteClient) GetSavedGames(ctx context.Context) (map[string]types.GameState, error) {
	return call(c, ctx, "GetSavedGames", "", func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[map[string]types.GameState, error], error) {
		rows, err := c.repo.ListGames(ctx, db, userID)
		if err != nil {
			return results.OperationResult[map[string]types.GameState, error]{}, err
		}
		games := make(map[string]types.GameState, len(rows))
		for _, row := range rows {
			g, err := types.DecodeGame(row.Data)
			if err != nil {
				c.logger.WarnContext(ctx, "Skipping undecodable remote game",
					slog.String("game_id", row.GameID),
					slog.String("error", err.Error()),
				)
				continue
			}
			g.GameID = row.GameID
			games[row.GameID] = g
		}
		return results.SuccessResult[map[string]types.GameState, error](games), nil
	})
}

// SaveGame creates or replaces a game.
func (c *RemoteClient) SaveGame(ctx context.Context, game types.GameState) error {
	_, err := call(c, ctx, "SaveGame", game.GameID, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[struct{}, error], error) {
		data, err := json.Marshal(game)
		if err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to encode game: %w", err)
		}
		row := &remotedb.Game{
			UserID:       userID,
			GameID:       game.GameID,
			Data:         data,
			SeasonID:     game.SeasonID,
			TournamentID: game.TournamentID,
			IsPlayed:     game.IsPlayed,
		}
		if err := c.repo.UpsertGame(ctx, db, row); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// DeleteGame removes a game. Returns ErrNotFound when it does not exist.
func (c *RemoteClient) DeleteGame(ctx context.Context, gameID string) error {
	_, err := call(c, ctx, "DeleteGame", gameID, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[struct{}, error], error) {
		if err := c.repo.DeleteGame(ctx, db, userID, gameID); err != nil {
			if errors.Is(err, remotedb.ErrNotFound) {
				return results.FailureResult[struct{}, error](err), nil
			}
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// --- Players ---

func (c *RemoteClient) GetPlayers(ctx context.Context) ([]types.Player, error) {
	return listVersioned(c, ctx, "GetPlayers", remotedb.TablePlayers, func(p *types.Player, v int) { p.Version = v })
}

func (c *RemoteClient) SavePlayer(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error) {
	return saveVersioned(c, ctx, "SavePlayer", remotedb.TablePlayers, player.ID, player.Name, player, expectedVersion,
		func(p *types.Player, v int) { p.Version = v })
}

func (c *RemoteClient) DeletePlayer(ctx context.Context, playerID string) error {
	return deleteVersioned(c, ctx, "DeletePlayer", remotedb.TablePlayers, playerID)
}

// ReplacePlayers swaps the whole roster inside one transaction.
func (c *RemoteClient) ReplacePlayers(ctx context.Context, players []types.Player) error {
	_, err := call(c, ctx, "ReplacePlayers", "", func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[struct{}, error], error) {
		recs := make([]remotedb.Record, 0, len(players))
		for _, p := range players {
			rec, err := toRecord(userID, p.ID, p.Name, p)
			if err != nil {
				return results.OperationResult[struct{}, error]{}, err
			}
			recs = append(recs, rec)
		}
		if err := c.repo.DeleteAllRecords(ctx, db, remotedb.TablePlayers, userID); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		if err := c.repo.UpsertRecords(ctx, db, remotedb.TablePlayers, recs); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// --- Seasons ---

func (c *RemoteClient) GetSeasons(ctx context.Context) ([]types.Season, error) {
	return listVersioned(c, ctx, "GetSeasons", remotedb.TableSeasons, func(s *types.Season, v int) { s.Version = v })
}

func (c *RemoteClient) SaveSeason(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error) {
	return saveVersioned(c, ctx, "SaveSeason", remotedb.TableSeasons, season.ID, season.Name, season, expectedVersion,
		func(s *types.Season, v int) { s.Version = v })
}

func (c *RemoteClient) DeleteSeason(ctx context.Context, seasonID string) error {
	return deleteVersioned(c, ctx, "DeleteSeason", remotedb.TableSeasons, seasonID)
}

// --- Tournaments ---

func (c *RemoteClient) GetTournaments(ctx context.Context) ([]types.Tournament, error) {
	return listVersioned(c, ctx, "GetTournaments", remotedb.TableTournaments, func(t *types.Tournament, v int) { t.Version = v })
}

func (c *RemoteClient) SaveTournament(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error) {
	return saveVersioned(c, ctx, "SaveTournament", remotedb.TableTournaments, tournament.ID, tournament.Name, tournament, expectedVersion,
		func(t *types.Tournament, v int) { t.Version = v })
}

func (c *RemoteClient) DeleteTournament(ctx context.Context, tournamentID string) error {
	return deleteVersioned(c, ctx, "DeleteTournament", remotedb.TableTournaments, tournamentID)
}

// --- Generic data ---

// GetGenericData returns the keyed document. Returns ErrNotFound for missing keys.
func (c *RemoteClient) GetGenericData(ctx context.Context, key string) (GenericRecord, error) {
	return call(c, ctx, "GetGenericData", key, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[GenericRecord, error], error) {
		row, err := c.repo.GetAppData(ctx, db, userID, key)
		if err != nil {
			if errors.Is(err, remotedb.ErrNotFound) {
				return results.FailureResult[GenericRecord, error](err), nil
			}
			return results.OperationResult[GenericRecord, error]{}, err
		}
		return results.SuccessResult[GenericRecord, error](GenericRecord{
			Key:       row.Key,
			Value:     row.Value,
			UpdatedAt: row.UpdatedAt,
		}), nil
	})
}

// SetGenericData stores value under key and returns the remote write time.
func (c *RemoteClient) SetGenericData(ctx context.Context, key string, value json.RawMessage) (time.Time, error) {
	return call(c, ctx, "SetGenericData", key, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[time.Time, error], error) {
		row := &remotedb.AppData{UserID: userID, Key: key, Value: value}
		if err := c.repo.UpsertAppData(ctx, db, row); err != nil {
			return results.OperationResult[time.Time, error]{}, err
		}
		return results.SuccessResult[time.Time, error](row.UpdatedAt), nil
	})
}

// DeleteGenericData removes key.
func (c *RemoteClient) DeleteGenericData(ctx context.Context, key string) error {
	_, err := call(c, ctx, "DeleteGenericData", key, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[struct{}, error], error) {
		if err := c.repo.DeleteAppData(ctx, db, userID, key); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// ListGenericKeys lists the user's keyed documents.
func (c *RemoteClient) ListGenericKeys(ctx context.Context) ([]string, error) {
	return call(c, ctx, "ListGenericKeys", "", func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[[]string, error], error) {
		keys, err := c.repo.ListAppDataKeys(ctx, db, userID)
		if err != nil {
			return results.OperationResult[[]string, error]{}, err
		}
		return results.SuccessResult[[]string, error](keys), nil
	})
}

// -----------------------------------------------------------------------------
// Versioned record helpers
// -----------------------------------------------------------------------------

func toRecord(userID, id, name string, doc any) (remotedb.Record, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return remotedb.Record{}, fmt.Errorf("failed to encode %s: %w", id, err)
	}
	return remotedb.Record{UserID: userID, ID: id, Name: name, Data: data}, nil
}

func listVersioned[T any](c *RemoteClient, ctx context.Context, op, table string, setVersion func(*T, int)) ([]T, error) {
	return call(c, ctx, op, table, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[[]T, error], error) {
		recs, err := c.repo.ListRecords(ctx, db, table, userID)
		if err != nil {
			return results.OperationResult[[]T, error]{}, err
		}
		out := make([]T, 0, len(recs))
		for _, rec := range recs {
			var doc T
			if err := json.Unmarshal(rec.Data, &doc); err != nil {
				c.logger.WarnContext(ctx, "Skipping undecodable remote record",
					slog.String("table", table),
					slog.String("id", rec.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			setVersion(&doc, rec.Version)
			out = append(out, doc)
		}
		return results.SuccessResult[[]T, error](out), nil
	})
}

func saveVersioned[T any](c *RemoteClient, ctx context.Context, op, table, id, name string, doc T, expectedVersion int, setVersion func(*T, int)) (T, error) {
	return call(c, ctx, op, id, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[T, error], error) {
		rec, err := toRecord(userID, id, name, doc)
		if err != nil {
			return results.OperationResult[T, error]{}, err
		}
		if err := c.repo.SaveRecord(ctx, db, table, &rec, expectedVersion); err != nil {
			if errors.Is(err, remotedb.ErrVersionConflict) {
				return results.FailureResult[T, error](err), nil
			}
			return results.OperationResult[T, error]{}, err
		}
		setVersion(&doc, rec.Version)
		return results.SuccessResult[T, error](doc), nil
	})
}

func deleteVersioned(c *RemoteClient, ctx context.Context, op, table, id string) error {
	_, err := call(c, ctx, op, id, func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[struct{}, error], error) {
		if err := c.repo.DeleteRecord(ctx, db, table, userID, id); err != nil {
			if errors.Is(err, remotedb.ErrNotFound) {
				return results.FailureResult[struct{}, error](err), nil
			}
			return results.OperationResult[struct{}, error]{}, err
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type scopedFunc[S any] func(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[S, error], error)

// call resolves the user, throttles, runs fn in a transaction under telemetry,
// and flattens the result into (value, classified error).
func call[S any](c *RemoteClient, ctx context.Context, operationName, identifier string, fn scopedFunc[S]) (S, error) {
	var zero S

	userID, ok := "", false
	if c.currentUser != nil {
		userID, ok = c.currentUser(ctx)
	}
	if !ok || userID == "" {
		return zero, fmt.Errorf("%s: %w: no signed-in user", operationName, ErrUnauthorized)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("%s: %w: %w", operationName, ErrNetwork, err)
		}
	}

	result, err := withTelemetry(c, ctx, operationName, identifier, func(ctx context.Context) (results.OperationResult[S, error], error) {
		return runInTx(c, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[S, error], error) {
			return fn(ctx, db, userID)
		})
	})
	if err != nil {
		return zero, classify(err)
	}
	if result.IsFailure() {
		return zero, fmt.Errorf("%s: %w", operationName, *result.Failure)
	}
	return *result.Success, nil
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a client operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	c *RemoteClient,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	c.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		c.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	c.logger.DebugContext(ctx, "Operation triggered", slog.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			c.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)
			c.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		c.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.String("error", wrappedErr.Error()),
		)
		c.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		c.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	c.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	c *RemoteClient,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if c.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

var _ Client = (*RemoteClient)(nil)
