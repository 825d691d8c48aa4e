package persistenceservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// Seasons returns a copy of the cached seasons.
func (s *Service) Seasons() []types.Season {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.CloneSeasons(s.state.Seasons)
}

// Tournaments returns a copy of the cached tournaments.
func (s *Service) Tournaments() []types.Tournament {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.CloneTournaments(s.state.Tournaments)
}

// ListSeasons reads the seasons of the caller.
func (s *Service) ListSeasons(ctx context.Context) ([]types.Season, error) {
	return readThrough(s, ctx, "ListSeasons", s.loadSeasons)
}

// ListTournaments reads the tournaments of the caller.
func (s *Service) ListTournaments(ctx context.Context) ([]types.Tournament, error) {
	return readThrough(s, ctx, "ListTournaments", s.loadTournaments)
}

// AddSeason inserts a season. An empty id is generated.
func (s *Service) AddSeason(ctx context.Context, season types.Season) (types.Season, error) {
	if season.ID == "" {
		season.ID = "season_" + s.newID()
	}
	return run(s, ctx, flagSaving, "AddSeason", season.ID, func(ctx context.Context) (results.OperationResult[types.Season, error], error) {
		return saveRecord(ctx, s.entities.SaveSeason, s.refreshSeasons, season, 0)
	})
}

// UpdateSeason applies mutate to the stored season, guarded by expectedVersion.
func (s *Service) UpdateSeason(ctx context.Context, seasonID string, expectedVersion int, mutate func(*types.Season)) (types.Season, error) {
	return run(s, ctx, flagSaving, "UpdateSeason", seasonID, func(ctx context.Context) (results.OperationResult[types.Season, error], error) {
		seasons, err := s.entities.LoadSeasons(ctx)
		if err != nil {
			return results.OperationResult[types.Season, error]{}, fmt.Errorf("failed to load seasons: %w", err)
		}
		idx := indexOf(seasons, seasonCollection, seasonID)
		if idx < 0 {
			return results.FailureResult[types.Season, error](fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)), nil
		}
		updated := seasons[idx].Clone()
		if mutate != nil {
			mutate(&updated)
		}
		updated.ID = seasonID
		return saveRecord(ctx, s.entities.SaveSeason, s.refreshSeasons, updated, expectedVersion)
	})
}

// DeleteSeason removes a season. Games keep their seasonId.
func (s *Service) DeleteSeason(ctx context.Context, seasonID string) error {
	_, err := run(s, ctx, flagSaving, "DeleteSeason", seasonID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return deleteRecord(ctx, s.entities.DeleteSeason, s.refreshSeasons, seasonID)
	})
	return err
}

// AddTournament inserts a tournament. An empty id is generated.
func (s *Service) AddTournament(ctx context.Context, tournament types.Tournament) (types.Tournament, error) {
	if tournament.ID == "" {
		tournament.ID = "tournament_" + s.newID()
	}
	return run(s, ctx, flagSaving, "AddTournament", tournament.ID, func(ctx context.Context) (results.OperationResult[types.Tournament, error], error) {
		return saveRecord(ctx, s.entities.SaveTournament, s.refreshTournaments, tournament, 0)
	})
}

// UpdateTournament applies mutate to the stored tournament, guarded by expectedVersion.
func (s *Service) UpdateTournament(ctx context.Context, tournamentID string, expectedVersion int, mutate func(*types.Tournament)) (types.Tournament, error) {
	return run(s, ctx, flagSaving, "UpdateTournament", tournamentID, func(ctx context.Context) (results.OperationResult[types.Tournament, error], error) {
		tournaments, err := s.entities.LoadTournaments(ctx)
		if err != nil {
			return results.OperationResult[types.Tournament, error]{}, fmt.Errorf("failed to load tournaments: %w", err)
		}
		idx := indexOf(tournaments, tournamentCollection, tournamentID)
		if idx < 0 {
			return results.FailureResult[types.Tournament, error](fmt.Errorf("%w: %s", ErrTournamentNotFound, tournamentID)), nil
		}
		updated := tournaments[idx].Clone()
		if mutate != nil {
			mutate(&updated)
		}
		updated.ID = tournamentID
		return saveRecord(ctx, s.entities.SaveTournament, s.refreshTournaments, updated, expectedVersion)
	})
}

// DeleteTournament removes a tournament. Games keep their tournamentId.
func (s *Service) DeleteTournament(ctx context.Context, tournamentID string) error {
	_, err := run(s, ctx, flagSaving, "DeleteTournament", tournamentID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return deleteRecord(ctx, s.entities.DeleteTournament, s.refreshTournaments, tournamentID)
	})
	return err
}

func saveRecord[T any](
	ctx context.Context,
	save func(context.Context, T, int) (T, error),
	refresh func(context.Context) error,
	record T,
	expectedVersion int,
) (results.OperationResult[T, error], error) {
	saved, err := save(ctx, record, expectedVersion)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return results.FailureResult[T, error](err), nil
		}
		return results.OperationResult[T, error]{}, fmt.Errorf("failed to save record: %w", err)
	}
	if err := refresh(ctx); err != nil {
		return results.OperationResult[T, error]{}, fmt.Errorf("failed to refresh cache: %w", err)
	}
	return results.SuccessResult[T, error](saved), nil
}

func deleteRecord(
	ctx context.Context,
	del func(context.Context, string) error,
	refresh func(context.Context) error,
	id string,
) (results.OperationResult[struct{}, error], error) {
	if err := del(ctx, id); err != nil {
		if isNotFound(err) {
			return results.FailureResult[struct{}, error](err), nil
		}
		return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to delete record: %w", err)
	}
	if err := refresh(ctx); err != nil {
		return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to refresh cache: %w", err)
	}
	return results.SuccessResult[struct{}, error](struct{}{}), nil
}
