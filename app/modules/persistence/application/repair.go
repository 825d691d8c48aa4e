package persistenceservice

import (
	"context"
	"fmt"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// RepairMissingIsPlayedName is the migration history entry written by RepairMissingIsPlayed.
const RepairMissingIsPlayedName = "fix-missing-isPlayed"

// RepairReport summarizes a data repair.
type RepairReport struct {
	GamesFixed int `json:"gamesFixed"`
	TotalGames int `json:"totalGames"`
}

// RepairMissingIsPlayed sets isPlayed=true on games stored without the flag.
func (s *Service) RepairMissingIsPlayed(ctx context.Context) (RepairReport, error) {
	return run(s, ctx, flagSaving, "RepairMissingIsPlayed", "", func(ctx context.Context) (results.OperationResult[RepairReport, error], error) {
		games, err := s.entities.LoadGames(ctx)
		if err != nil {
			return results.OperationResult[RepairReport, error]{}, fmt.Errorf("failed to load games: %w", err)
		}

		report := RepairReport{TotalGames: len(games)}
		for id, g := range games {
			if g.IsPlayed != nil {
				continue
			}
			g.IsPlayed = types.BoolPtr(true)
			games[id] = g
			report.GamesFixed++
		}
		if report.GamesFixed == 0 {
			return results.SuccessResult[RepairReport, error](report), nil
		}

		if err := s.entities.ReplaceGames(ctx, games); err != nil {
			return results.OperationResult[RepairReport, error]{}, fmt.Errorf("failed to store repaired games: %w", err)
		}
		if err := s.refreshGames(ctx); err != nil {
			return results.OperationResult[RepairReport, error]{}, fmt.Errorf("failed to refresh games: %w", err)
		}
		if err := s.appendMigration(ctx, types.MigrationRecord{
			Name:      RepairMissingIsPlayedName,
			AppliedAt: s.now().UTC(),
			Details:   fmt.Sprintf("%d of %d games fixed", report.GamesFixed, report.TotalGames),
		}); err != nil {
			return results.OperationResult[RepairReport, error]{}, err
		}
		return results.SuccessResult[RepairReport, error](report), nil
	})
}

func (s *Service) appendMigration(ctx context.Context, rec types.MigrationRecord) error {
	integrity, err := s.loadDataIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("failed to read data integrity: %w", err)
	}

	integrity.MigrationHistory = append(integrity.MigrationHistory, rec)
	if err := s.storage.SetItem(ctx, types.KeyDataIntegrity, integrity); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	s.mu.Lock()
	s.state.DataIntegrity = integrity
	s.mu.Unlock()
	return nil
}
