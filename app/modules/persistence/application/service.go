// Package persistenceservice owns the app's persisted state: saved games,
// the master roster, seasons, tournaments, settings and user data, plus
// backup, import and repair flows.
package persistenceservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	storageservice "github.com/matchops/matchops/app/modules/storage/application"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/metrics"
	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "PersistenceService"

// State is a point-in-time copy of the service caches.
type State struct {
	SavedGames    map[string]types.GameState
	MasterRoster  []types.Player
	Seasons       []types.Season
	Tournaments   []types.Tournament
	Settings      types.AppSettings
	UserData      types.UserData
	DataIntegrity types.DataIntegrity

	IsLoading bool
	IsSaving  bool
	LastError error
}

func (st State) clone() State {
	out := st
	out.SavedGames = types.CloneGames(st.SavedGames)
	out.MasterRoster = types.ClonePlayers(st.MasterRoster)
	out.Seasons = types.CloneSeasons(st.Seasons)
	out.Tournaments = types.CloneTournaments(st.Tournaments)
	out.Settings = st.Settings.Clone()
	out.UserData = st.UserData.Clone()
	out.DataIntegrity = st.DataIntegrity.Clone()
	return out
}

// Service is the persistence store. It is safe for concurrent use.
type Service struct {
	entities  EntityStore
	storage   *storageservice.UnifiedStorage
	tx        *storageservice.TransactionManager
	publisher message.Publisher
	logger    *slog.Logger
	metrics   metrics.OperationMetrics
	tracer    trace.Tracer

	now   func() time.Time
	newID func() string

	mu      sync.RWMutex
	state   State
	loading int
	saving  int

	usageMu sync.Mutex
}

// NewService creates a persistence Service. publisher may be nil.
func NewService(
	entities EntityStore,
	storage *storageservice.UnifiedStorage,
	tx *storageservice.TransactionManager,
	publisher message.Publisher,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	if tx == nil {
		tx = storageservice.NewTransactionManager(logger, m, tracer, 0)
	}
	return &Service{
		entities:  entities,
		storage:   storage,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
		now:       time.Now,
		newID:     uuid.NewString,
		state: State{
			SavedGames:    map[string]types.GameState{},
			MasterRoster:  []types.Player{},
			Seasons:       []types.Season{},
			Tournaments:   []types.Tournament{},
			Settings:      types.DefaultSettings(),
			DataIntegrity: types.DataIntegrity{Version: types.SchemaVersion},
		},
	}
}

// Snapshot returns a deep copy of the caches and status flags.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state.clone()
	out.IsLoading = s.loading > 0
	out.IsSaving = s.saving > 0
	return out
}

// LoadAll warms every cache from the backends. Individual collections that
// fail to load keep their previous cache and the first failure is returned.
func (s *Service) LoadAll(ctx context.Context) error {
	_, err := run(s, ctx, flagLoading, "LoadAll", s.entities.Kind(), func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		var errs []error
		if err := s.refreshGames(ctx); err != nil {
			errs = append(errs, fmt.Errorf("games: %w", err))
		}
		if err := s.refreshRoster(ctx); err != nil {
			errs = append(errs, fmt.Errorf("roster: %w", err))
		}
		if err := s.refreshSeasons(ctx); err != nil {
			errs = append(errs, fmt.Errorf("seasons: %w", err))
		}
		if err := s.refreshTournaments(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tournaments: %w", err))
		}
		if err := s.refreshSettings(ctx); err != nil {
			errs = append(errs, fmt.Errorf("settings: %w", err))
		}
		if err := s.refreshUserData(ctx); err != nil {
			errs = append(errs, fmt.Errorf("user data: %w", err))
		}
		if err := s.refreshDataIntegrity(ctx); err != nil {
			errs = append(errs, fmt.Errorf("data integrity: %w", err))
		}
		if len(errs) > 0 {
			return results.OperationResult[struct{}, error]{}, errors.Join(errs...)
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// --- Cache loaders ---
//
// Each loadX reads one collection with the caller's context, refreshes the
// shared cache, and returns what it read. Request-facing operations use the
// returned value: with remote storage the context decides whose data is read,
// and the cache only reflects the latest load.

func (s *Service) loadGames(ctx context.Context) (map[string]types.GameState, error) {
	games, err := s.entities.LoadGames(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state.SavedGames = types.CloneGames(games)
	s.mu.Unlock()
	return games, nil
}

func (s *Service) loadRoster(ctx context.Context) ([]types.Player, error) {
	players, err := s.entities.LoadPlayers(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state.MasterRoster = types.ClonePlayers(players)
	s.mu.Unlock()
	return players, nil
}

func (s *Service) loadSeasons(ctx context.Context) ([]types.Season, error) {
	seasons, err := s.entities.LoadSeasons(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state.Seasons = types.CloneSeasons(seasons)
	s.mu.Unlock()
	return seasons, nil
}

func (s *Service) loadTournaments(ctx context.Context) ([]types.Tournament, error) {
	tournaments, err := s.entities.LoadTournaments(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state.Tournaments = types.CloneTournaments(tournaments)
	s.mu.Unlock()
	return tournaments, nil
}

func (s *Service) loadSettings(ctx context.Context) (types.AppSettings, error) {
	settings, found, err := storageservice.GetItemAs[types.AppSettings](ctx, s.storage, types.KeyAppSettings)
	if err != nil {
		return types.AppSettings{}, err
	}
	if !found {
		settings = types.DefaultSettings()
	}
	s.mu.Lock()
	s.state.Settings = settings.Clone()
	s.mu.Unlock()
	return settings, nil
}

func (s *Service) loadUserData(ctx context.Context) (types.UserData, error) {
	user, _, err := storageservice.GetItemAs[types.UserData](ctx, s.storage, types.KeyUserData)
	if err != nil {
		return types.UserData{}, err
	}
	s.mu.Lock()
	s.state.UserData = user.Clone()
	s.mu.Unlock()
	return user, nil
}

func (s *Service) loadDataIntegrity(ctx context.Context) (types.DataIntegrity, error) {
	integrity, found, err := storageservice.GetItemAs[types.DataIntegrity](ctx, s.storage, types.KeyDataIntegrity)
	if err != nil {
		return types.DataIntegrity{}, err
	}
	if !found {
		integrity = types.DataIntegrity{Version: types.SchemaVersion}
	}
	s.mu.Lock()
	s.state.DataIntegrity = integrity.Clone()
	s.mu.Unlock()
	return integrity, nil
}

// refresh adapts a loader to callers that only need the cache updated.
func refresh[T any](load func(context.Context) (T, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := load(ctx)
		return err
	}
}

// readThrough runs load as a tracked loading operation.
func readThrough[T any](s *Service, ctx context.Context, name string, load func(context.Context) (T, error)) (T, error) {
	return run(s, ctx, flagLoading, name, "", func(ctx context.Context) (results.OperationResult[T, error], error) {
		v, err := load(ctx)
		if err != nil {
			return results.OperationResult[T, error]{}, err
		}
		return results.SuccessResult[T, error](v), nil
	})
}

func (s *Service) refreshGames(ctx context.Context) error { return refresh(s.loadGames)(ctx) }
func (s *Service) refreshRoster(ctx context.Context) error { return refresh(s.loadRoster)(ctx) }
func (s *Service) refreshSeasons(ctx context.Context) error { return refresh(s.loadSeasons)(ctx) }
func (s *Service) refreshTournaments(ctx context.Context) error { return refresh(s.loadTournaments)(ctx) }
func (s *Service) refreshSettings(ctx context.Context) error { return refresh(s.loadSettings)(ctx) }
func (s *Service) refreshUserData(ctx context.Context) error { return refresh(s.loadUserData)(ctx) }
func (s *Service) refreshDataIntegrity(ctx context.Context) error { return refresh(s.loadDataIntegrity)(ctx) }

// publish sends an event and logs, never fails, the operation.
func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if err := eventbus.PublishJSON(s.publisher, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type statusFlag int

const (
	flagNone statusFlag = iota
	flagLoading
	flagSaving
)

func (s *Service) setFlag(flag statusFlag, delta int) {
	if flag == flagNone {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch flag {
	case flagLoading:
		s.loading += delta
	case flagSaving:
		s.saving += delta
	}
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.state.LastError = err
	s.mu.Unlock()
}

// run sets the status flag, runs op under telemetry, records LastError and
// flattens the result.
func run[S any](
	s *Service,
	ctx context.Context,
	flag statusFlag,
	operationName string,
	identifier string,
	op operationFunc[S, error],
) (S, error) {
	s.setFlag(flag, 1)
	defer s.setFlag(flag, -1)

	var zero S
	result, err := withTelemetry(s, ctx, operationName, identifier, op)
	if err != nil {
		s.recordError(err)
		return zero, err
	}
	if result.IsFailure() {
		s.recordError(*result.Failure)
		return zero, *result.Failure
	}
	if flag != flagNone {
		s.recordError(nil)
	}
	return *result.Success, nil
}

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *Service,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered", slog.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.String("error", wrappedErr.Error()),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	s.logger.InfoContext(ctx, "Operation completed successfully",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)
	return result, nil
}
