package persistenceservice

import (
	"context"
	"errors"
	"fmt"

	remoteservice "github.com/matchops/matchops/app/modules/remote/application"
	"github.com/matchops/matchops/app/shared/types"
)

// RemoteEntityStore persists collections through the remote client, one row per record.
type RemoteEntityStore struct {
	remote remoteservice.Client
}

// NewRemoteEntityStore creates a RemoteEntityStore.
func NewRemoteEntityStore(remote remoteservice.Client) *RemoteEntityStore {
	return &RemoteEntityStore{remote: remote}
}

func (r *RemoteEntityStore) Kind() string { return "remote" }

func (r *RemoteEntityStore) sealed() {}

func notFoundAs(err, target error, id string) error {
	if errors.Is(err, remoteservice.ErrNotFound) {
		return fmt.Errorf("%w: %s", target, id)
	}
	return err
}

// --- Games ---

func (r *RemoteEntityStore) LoadGames(ctx context.Context) (map[string]types.GameState, error) {
	return r.remote.GetSavedGames(ctx)
}

func (r *RemoteEntityStore) SaveGame(ctx context.Context, game types.GameState) error {
	return r.remote.SaveGame(ctx, game)
}

func (r *RemoteEntityStore) DeleteGame(ctx context.Context, gameID string) error {
	return notFoundAs(r.remote.DeleteGame(ctx, gameID), ErrGameNotFound, gameID)
}

// ReplaceGames removes remote games missing from games, then writes every game.
func (r *RemoteEntityStore) ReplaceGames(ctx context.Context, games map[string]types.GameState) error {
	existing, err := r.remote.GetSavedGames(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for id := range existing {
		if _, keep := games[id]; keep {
			continue
		}
		if err := r.remote.DeleteGame(ctx, id); err != nil && !errors.Is(err, remoteservice.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	for _, g := range games {
		if err := r.remote.SaveGame(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Players ---

func (r *RemoteEntityStore) LoadPlayers(ctx context.Context) ([]types.Player, error) {
	return r.remote.GetPlayers(ctx)
}

func (r *RemoteEntityStore) SavePlayer(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error) {
	return r.remote.SavePlayer(ctx, player, expectedVersion)
}

func (r *RemoteEntityStore) DeletePlayer(ctx context.Context, playerID string) error {
	return notFoundAs(r.remote.DeletePlayer(ctx, playerID), ErrPlayerNotFound, playerID)
}

func (r *RemoteEntityStore) ReplacePlayers(ctx context.Context, players []types.Player) error {
	return r.remote.ReplacePlayers(ctx, players)
}

// --- Seasons ---

func (r *RemoteEntityStore) LoadSeasons(ctx context.Context) ([]types.Season, error) {
	return r.remote.GetSeasons(ctx)
}

func (r *RemoteEntityStore) SaveSeason(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error) {
	return r.remote.SaveSeason(ctx, season, expectedVersion)
}

func (r *RemoteEntityStore) DeleteSeason(ctx context.Context, seasonID string) error {
	return notFoundAs(r.remote.DeleteSeason(ctx, seasonID), ErrSeasonNotFound, seasonID)
}

func (r *RemoteEntityStore) ReplaceSeasons(ctx context.Context, seasons []types.Season) error {
	existing, err := r.remote.GetSeasons(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range existing {
		if err := r.remote.DeleteSeason(ctx, s.ID); err != nil && !errors.Is(err, remoteservice.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	for _, s := range seasons {
		if _, err := r.remote.SaveSeason(ctx, s, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Tournaments ---

func (r *RemoteEntityStore) LoadTournaments(ctx context.Context) ([]types.Tournament, error) {
	return r.remote.GetTournaments(ctx)
}

func (r *RemoteEntityStore) SaveTournament(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error) {
	return r.remote.SaveTournament(ctx, tournament, expectedVersion)
}

func (r *RemoteEntityStore) DeleteTournament(ctx context.Context, tournamentID string) error {
	return notFoundAs(r.remote.DeleteTournament(ctx, tournamentID), ErrTournamentNotFound, tournamentID)
}

func (r *RemoteEntityStore) ReplaceTournaments(ctx context.Context, tournaments []types.Tournament) error {
	existing, err := r.remote.GetTournaments(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range existing {
		if err := r.remote.DeleteTournament(ctx, t.ID); err != nil && !errors.Is(err, remoteservice.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	for _, t := range tournaments {
		if _, err := r.remote.SaveTournament(ctx, t, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ EntityStore = (*RemoteEntityStore)(nil)
