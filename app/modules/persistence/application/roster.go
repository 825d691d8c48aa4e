package persistenceservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// Roster returns a copy of the cached master roster.
func (s *Service) Roster() []types.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.ClonePlayers(s.state.MasterRoster)
}

// ListPlayers reads the master roster of the caller.
func (s *Service) ListPlayers(ctx context.Context) ([]types.Player, error) {
	return readThrough(s, ctx, "ListPlayers", s.loadRoster)
}

// SaveMasterRoster replaces the whole roster.
func (s *Service) SaveMasterRoster(ctx context.Context, players []types.Player) error {
	_, err := run(s, ctx, flagSaving, "SaveMasterRoster", "", func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		for _, p := range players {
			if p.ID == "" {
				return results.FailureResult[struct{}, error](ErrMissingPlayerID), nil
			}
		}
		if err := s.entities.ReplacePlayers(ctx, types.ClonePlayers(players)); err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to replace roster: %w", err)
		}
		if err := s.refreshRoster(ctx); err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to refresh roster: %w", err)
		}
		s.publish(ctx, eventbus.TopicRosterChangedV1, eventbus.RosterChangedPayloadV1{ChangedAt: s.now().UTC()})
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// AddPlayer inserts a new player. An empty id is generated.
func (s *Service) AddPlayer(ctx context.Context, player types.Player) (types.Player, error) {
	if player.ID == "" {
		player.ID = "player_" + s.newID()
	}
	return run(s, ctx, flagSaving, "AddPlayer", player.ID, func(ctx context.Context) (results.OperationResult[types.Player, error], error) {
		return s.savePlayerLogic(ctx, player, 0)
	})
}

// UpdatePlayer applies mutate to the stored player and writes it if the
// stored version still equals expectedVersion.
func (s *Service) UpdatePlayer(ctx context.Context, playerID string, expectedVersion int, mutate func(*types.Player)) (types.Player, error) {
	return run(s, ctx, flagSaving, "UpdatePlayer", playerID, func(ctx context.Context) (results.OperationResult[types.Player, error], error) {
		players, err := s.entities.LoadPlayers(ctx)
		if err != nil {
			return results.OperationResult[types.Player, error]{}, fmt.Errorf("failed to load roster: %w", err)
		}
		idx := types.FindPlayer(players, playerID)
		if idx < 0 {
			return results.FailureResult[types.Player, error](fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)), nil
		}
		updated := players[idx].Clone()
		if mutate != nil {
			mutate(&updated)
		}
		updated.ID = playerID
		return s.savePlayerLogic(ctx, updated, expectedVersion)
	})
}

func (s *Service) savePlayerLogic(ctx context.Context, player types.Player, expectedVersion int) (results.OperationResult[types.Player, error], error) {
	saved, err := s.entities.SavePlayer(ctx, player, expectedVersion)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return results.FailureResult[types.Player, error](err), nil
		}
		return results.OperationResult[types.Player, error]{}, fmt.Errorf("failed to save player: %w", err)
	}
	if err := s.refreshRoster(ctx); err != nil {
		return results.OperationResult[types.Player, error]{}, fmt.Errorf("failed to refresh roster: %w", err)
	}
	s.publish(ctx, eventbus.TopicRosterChangedV1, eventbus.RosterChangedPayloadV1{PlayerID: saved.ID, ChangedAt: s.now().UTC()})
	return results.SuccessResult[types.Player, error](saved), nil
}

// RemovePlayer deletes a player from the roster.
func (s *Service) RemovePlayer(ctx context.Context, playerID string) error {
	_, err := run(s, ctx, flagSaving, "RemovePlayer", playerID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		if err := s.entities.DeletePlayer(ctx, playerID); err != nil {
			if isNotFound(err) {
				return results.FailureResult[struct{}, error](err), nil
			}
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to remove player: %w", err)
		}
		if err := s.refreshRoster(ctx); err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to refresh roster: %w", err)
		}
		s.publish(ctx, eventbus.TopicRosterChangedV1, eventbus.RosterChangedPayloadV1{PlayerID: playerID, ChangedAt: s.now().UTC()})
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}
