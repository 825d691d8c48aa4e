package persistenceservice

import (
	"context"
	"fmt"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// GameSetup describes a new game. Zero values fall back to the app settings.
type GameSetup struct {
	GameID                string
	TeamName              string
	OpponentName          string
	GameDate              string
	GameTime              string
	GameLocation          string
	HomeOrAway            types.HomeOrAway
	NumberOfPeriods       int
	PeriodDurationMinutes int
	SubIntervalMinutes    int
	SeasonID              string
	TournamentID          string
	// AvailablePlayers defaults to the active players of the master roster.
	AvailablePlayers      []types.Player
	IsPlayed              *bool
}

// SavedGames returns a copy of the cached saved games.
func (s *Service) SavedGames() map[string]types.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.CloneGames(s.state.SavedGames)
}

// ListGames reads the saved games of the caller.
func (s *Service) ListGames(ctx context.Context) (map[string]types.GameState, error) {
	return readThrough(s, ctx, "ListGames", s.loadGames)
}

// SaveGame validates and writes a game, then refreshes the games cache.
func (s *Service) SaveGame(ctx context.Context, gameID string, game types.GameState) error {
	if gameID != "" {
		game.GameID = gameID
	}
	_, err := run(s, ctx, flagSaving, "SaveGame", game.GameID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return s.saveGameLogic(ctx, game)
	})
	return err
}

func (s *Service) saveGameLogic(ctx context.Context, game types.GameState) (results.OperationResult[struct{}, error], error) {
	if err := game.Validate(); err != nil {
		return results.FailureResult[struct{}, error](err), nil
	}
	if err := s.entities.SaveGame(ctx, game); err != nil {
		return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to save game: %w", err)
	}
	if err := s.afterGamesChanged(ctx); err != nil {
		return results.OperationResult[struct{}, error]{}, err
	}
	s.publish(ctx, eventbus.TopicGameSavedV1, eventbus.GameSavedPayloadV1{GameID: game.GameID, SavedAt: s.now().UTC()})
	return results.SuccessResult[struct{}, error](struct{}{}), nil
}

// afterGamesChanged reloads the games cache and syncs the managed-games counter.
func (s *Service) afterGamesChanged(ctx context.Context) error {
	games, err := s.loadGames(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh games: %w", err)
	}
	total := len(games)
	s.bumpUsage(ctx, func(u *types.UsageCounters) { u.TotalGamesManaged = total })
	return nil
}

// LoadGame fetches every game and returns the one with gameID.
func (s *Service) LoadGame(ctx context.Context, gameID string) (types.GameState, error) {
	return run(s, ctx, flagLoading, "LoadGame", gameID, func(ctx context.Context) (results.OperationResult[types.GameState, error], error) {
		games, err := s.loadGames(ctx)
		if err != nil {
			return results.OperationResult[types.GameState, error]{}, fmt.Errorf("failed to load games: %w", err)
		}
		game, ok := games[gameID]
		if !ok {
			return results.FailureResult[types.GameState, error](fmt.Errorf("%w: %s", ErrGameNotFound, gameID)), nil
		}
		return results.SuccessResult[types.GameState, error](game.Clone()), nil
	})
}

// DeleteGame removes a game.
func (s *Service) DeleteGame(ctx context.Context, gameID string) error {
	_, err := run(s, ctx, flagSaving, "DeleteGame", gameID, func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		if err := s.entities.DeleteGame(ctx, gameID); err != nil {
			if isNotFound(err) {
				return results.FailureResult[struct{}, error](err), nil
			}
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to delete game: %w", err)
		}
		if err := s.afterGamesChanged(ctx); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		s.publish(ctx, eventbus.TopicGameDeletedV1, eventbus.GameDeletedPayloadV1{GameID: gameID, DeletedAt: s.now().UTC()})
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// DuplicateGame copies srcID into a fresh, unplayed game. An empty newID is
// generated; an id already in use fails with ErrGameExists.
func (s *Service) DuplicateGame(ctx context.Context, srcID, newID string) (types.GameState, error) {
	return run(s, ctx, flagSaving, "DuplicateGame", srcID, func(ctx context.Context) (results.OperationResult[types.GameState, error], error) {
		games, err := s.entities.LoadGames(ctx)
		if err != nil {
			return results.OperationResult[types.GameState, error]{}, fmt.Errorf("failed to load games: %w", err)
		}
		src, ok := games[srcID]
		if !ok {
			return results.FailureResult[types.GameState, error](fmt.Errorf("%w: %s", ErrGameNotFound, srcID)), nil
		}
		if newID == "" {
			newID = s.newGameID()
		}
		if _, exists := games[newID]; exists {
			return results.FailureResult[types.GameState, error](fmt.Errorf("%w: %s", ErrGameExists, newID)), nil
		}

		dup := resetForReplay(src.Clone())
		dup.GameID = newID

		saved, err := s.saveGameLogic(ctx, dup)
		if err != nil || saved.IsFailure() {
			return results.OperationResult[types.GameState, error]{Failure: saved.Failure}, err
		}
		return results.SuccessResult[types.GameState, error](dup.Clone()), nil
	})
}

// resetForReplay clears scores, events, timer and status so the copy starts fresh.
func resetForReplay(g types.GameState) types.GameState {
	g.IsPlayed = types.BoolPtr(false)
	g.HomeScore = 0
	g.AwayScore = 0
	g.GameEvents = []types.GameEvent{}
	g.CurrentPeriod = 1
	g.GameStatus = types.GameStatusNotStarted
	g.TimeElapsedInSeconds = 0
	g.IsTimerRunning = false
	g.CompletedIntervalDurations = []types.IntervalLog{}
	g.NextSubDueTimeSeconds = g.SubIntervalMinutes * 60
	g.LastSubConfirmationTimeSeconds = 0
	g.SubAlertLevel = types.SubAlertNone
	return g
}

// CreateGame builds a game from setup and the current settings and saves it.
func (s *Service) CreateGame(ctx context.Context, setup GameSetup) (types.GameState, error) {
	return run(s, ctx, flagSaving, "CreateGame", setup.GameID, func(ctx context.Context) (results.OperationResult[types.GameState, error], error) {
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return results.OperationResult[types.GameState, error]{}, fmt.Errorf("failed to read settings: %w", err)
		}
		roster, err := s.loadRoster(ctx)
		if err != nil {
			return results.OperationResult[types.GameState, error]{}, fmt.Errorf("failed to load roster: %w", err)
		}
		game := s.newGame(setup, settings, roster)
		saved, err := s.saveGameLogic(ctx, game)
		if err != nil || saved.IsFailure() {
			return results.OperationResult[types.GameState, error]{Failure: saved.Failure}, err
		}
		return results.SuccessResult[types.GameState, error](game.Clone()), nil
	})
}

func (s *Service) newGame(setup GameSetup, settings types.AppSettings, roster []types.Player) types.GameState {
	orDefault := func(v, def int) int {
		if v > 0 {
			return v
		}
		return def
	}

	id := setup.GameID
	if id == "" {
		id = s.newGameID()
	}
	homeOrAway := setup.HomeOrAway
	if homeOrAway == "" {
		homeOrAway = types.Home
	}
	teamName := setup.TeamName
	if teamName == "" {
		teamName = settings.LastHomeTeamName
	}

	available := setup.AvailablePlayers
	if available == nil {
		available = make([]types.Player, 0, len(roster))
		for _, p := range roster {
			if p.IsActive {
				available = append(available, p)
			}
		}
	}

	subInterval := orDefault(setup.SubIntervalMinutes, settings.DefaultSubIntervalMinutes)
	isPlayed := setup.IsPlayed
	if isPlayed == nil {
		isPlayed = types.BoolPtr(true)
	}

	return types.GameState{
		GameID:                     id,
		TeamName:                   teamName,
		OpponentName:               setup.OpponentName,
		GameDate:                   setup.GameDate,
		GameTime:                   setup.GameTime,
		GameLocation:               setup.GameLocation,
		HomeOrAway:                 homeOrAway,
		NumberOfPeriods:            orDefault(setup.NumberOfPeriods, settings.DefaultNumberOfPeriods),
		PeriodDurationMinutes:      orDefault(setup.PeriodDurationMinutes, settings.DefaultPeriodDurationMinutes),
		CurrentPeriod:              1,
		GameStatus:                 types.GameStatusNotStarted,
		SubIntervalMinutes:         subInterval,
		NextSubDueTimeSeconds:      subInterval * 60,
		SubAlertLevel:              types.SubAlertNone,
		CompletedIntervalDurations: []types.IntervalLog{},
		PlayersOnField:             []types.Player{},
		AvailablePlayers:           available,
		SelectedPlayerIDs:          []string{},
		Opponents:                  []types.Opponent{},
		Drawings:                   [][]types.Point{},
		GameEvents:                 []types.GameEvent{},
		ShowPlayerNames:            true,
		SeasonID:                   setup.SeasonID,
		TournamentID:               setup.TournamentID,
		IsPlayed:                   isPlayed,
	}
}

func (s *Service) newGameID() string {
	suffix := s.newID()
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("game_%d_%s", s.now().UnixMilli(), suffix)
}
