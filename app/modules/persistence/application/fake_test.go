package persistenceservice

import (
	"context"
	"encoding/json"
	"time"

	remoteservice "github.com/matchops/matchops/app/modules/remote/application"
	"github.com/matchops/matchops/app/shared/types"
)

// ------------------------
// Fake Remote Client
// ------------------------

type FakeRemoteClient struct {
	trace []string

	GetGenericDataFunc    func(ctx context.Context, key string) (remoteservice.GenericRecord, error)
	SetGenericDataFunc    func(ctx context.Context, key string, value json.RawMessage) (time.Time, error)
	DeleteGenericDataFunc func(ctx context.Context, key string) error
	ListGenericKeysFunc   func(ctx context.Context) ([]string, error)

	GetSavedGamesFunc func(ctx context.Context) (map[string]types.GameState, error)
	SaveGameFunc      func(ctx context.Context, game types.GameState) error
	DeleteGameFunc    func(ctx context.Context, gameID string) error

	GetPlayersFunc     func(ctx context.Context) ([]types.Player, error)
	SavePlayerFunc     func(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error)
	DeletePlayerFunc   func(ctx context.Context, playerID string) error
	ReplacePlayersFunc func(ctx context.Context, players []types.Player) error

	GetSeasonsFunc   func(ctx context.Context) ([]types.Season, error)
	SaveSeasonFunc   func(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error)
	DeleteSeasonFunc func(ctx context.Context, seasonID string) error

	GetTournamentsFunc   func(ctx context.Context) ([]types.Tournament, error)
	SaveTournamentFunc   func(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error)
	DeleteTournamentFunc func(ctx context.Context, tournamentID string) error
}

func NewFakeRemoteClient() *FakeRemoteClient {
	return &FakeRemoteClient{
		trace: []string{},
	}
}

func (f *FakeRemoteClient) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRemoteClient) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// --- GenericStore ---

func (f *FakeRemoteClient) GetGenericData(ctx context.Context, key string) (remoteservice.GenericRecord, error) {
	f.record("GetGenericData")
	if f.GetGenericDataFunc != nil {
		return f.GetGenericDataFunc(ctx, key)
	}
	return remoteservice.GenericRecord{}, remoteservice.ErrNotFound
}

func (f *FakeRemoteClient) SetGenericData(ctx context.Context, key string, value json.RawMessage) (time.Time, error) {
	f.record("SetGenericData")
	if f.SetGenericDataFunc != nil {
		return f.SetGenericDataFunc(ctx, key, value)
	}
	return time.Time{}, nil
}

func (f *FakeRemoteClient) DeleteGenericData(ctx context.Context, key string) error {
	f.record("DeleteGenericData")
	if f.DeleteGenericDataFunc != nil {
		return f.DeleteGenericDataFunc(ctx, key)
	}
	return nil
}

func (f *FakeRemoteClient) ListGenericKeys(ctx context.Context) ([]string, error) {
	f.record("ListGenericKeys")
	if f.ListGenericKeysFunc != nil {
		return f.ListGenericKeysFunc(ctx)
	}
	return nil, nil
}

// --- Games ---

func (f *FakeRemoteClient) GetSavedGames(ctx context.Context) (map[string]types.GameState, error) {
	f.record("GetSavedGames")
	if f.GetSavedGamesFunc != nil {
		return f.GetSavedGamesFunc(ctx)
	}
	return map[string]types.GameState{}, nil
}

func (f *FakeRemoteClient) SaveGame(ctx context.Context, game types.GameState) error {
	f.record("SaveGame:" + game.GameID)
	if f.SaveGameFunc != nil {
		return f.SaveGameFunc(ctx, game)
	}
	return nil
}

func (f *FakeRemoteClient) DeleteGame(ctx context.Context, gameID string) error {
	f.record("DeleteGame:" + gameID)
	if f.DeleteGameFunc != nil {
		return f.DeleteGameFunc(ctx, gameID)
	}
	return nil
}

// --- Players ---

func (f *FakeRemoteClient) GetPlayers(ctx context.Context) ([]types.Player, error) {
	f.record("GetPlayers")
	if f.GetPlayersFunc != nil {
		return f.GetPlayersFunc(ctx)
	}
	return []types.Player{}, nil
}

func (f *FakeRemoteClient) SavePlayer(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error) {
	f.record("SavePlayer:" + player.ID)
	if f.SavePlayerFunc != nil {
		return f.SavePlayerFunc(ctx, player, expectedVersion)
	}
	player.Version = expectedVersion + 1
	return player, nil
}

func (f *FakeRemoteClient) DeletePlayer(ctx context.Context, playerID string) error {
	f.record("DeletePlayer:" + playerID)
	if f.DeletePlayerFunc != nil {
		return f.DeletePlayerFunc(ctx, playerID)
	}
	return nil
}

func (f *FakeRemoteClient) ReplacePlayers(ctx context.Context, players []types.Player) error {
	f.record("ReplacePlayers")
	if f.ReplacePlayersFunc != nil {
		return f.ReplacePlayersFunc(ctx, players)
	}
	return nil
}

// --- Seasons ---

func (f *FakeRemoteClient) GetSeasons(ctx context.Context) ([]types.Season, error) {
	f.record("GetSeasons")
	if f.GetSeasonsFunc != nil {
		return f.GetSeasonsFunc(ctx)
	}
	return []types.Season{}, nil
}

func (f *FakeRemoteClient) SaveSeason(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error) {
	f.record("SaveSeason:" + season.ID)
	if f.SaveSeasonFunc != nil {
		return f.SaveSeasonFunc(ctx, season, expectedVersion)
	}
	season.Version = expectedVersion + 1
	return season, nil
}

func (f *FakeRemoteClient) DeleteSeason(ctx context.Context, seasonID string) error {
	f.record("DeleteSeason:" + seasonID)
	if f.DeleteSeasonFunc != nil {
		return f.DeleteSeasonFunc(ctx, seasonID)
	}
	return nil
}

// --- Tournaments ---

func (f *FakeRemoteClient) GetTournaments(ctx context.Context) ([]types.Tournament, error) {
	f.record("GetTournaments")
	if f.GetTournamentsFunc != nil {
		return f.GetTournamentsFunc(ctx)
	}
	return []types.Tournament{}, nil
}

func (f *FakeRemoteClient) SaveTournament(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error) {
	f.record("SaveTournament:" + tournament.ID)
	if f.SaveTournamentFunc != nil {
		return f.SaveTournamentFunc(ctx, tournament, expectedVersion)
	}
	tournament.Version = expectedVersion + 1
	return tournament, nil
}

func (f *FakeRemoteClient) DeleteTournament(ctx context.Context, tournamentID string) error {
	f.record("DeleteTournament:" + tournamentID)
	if f.DeleteTournamentFunc != nil {
		return f.DeleteTournamentFunc(ctx, tournamentID)
	}
	return nil
}

var _ remoteservice.Client = (*FakeRemoteClient)(nil)
