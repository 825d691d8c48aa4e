package remoteservice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matchops/matchops/app/shared/types"
)

// GenericRecord is one keyed document with the remote's write timestamp.
type GenericRecord struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// GenericStore is the keyed-document subset used by the unified storage API.
type GenericStore interface {
	GetGenericData(ctx context.Context, key string) (GenericRecord, error)
	SetGenericData(ctx context.Context, key string, value json.RawMessage) (time.Time, error)
	DeleteGenericData(ctx context.Context, key string) error
	ListGenericKeys(ctx context.Context) ([]string, error)
}

// Client is the remote storage contract, scoped to the signed-in user.
type Client interface {
	GenericStore

	GetSavedGames(ctx context.Context) (map[string]types.GameState, error)
	SaveGame(ctx context.Context, game types.GameState) error
	DeleteGame(ctx context.Context, gameID string) error

	GetPlayers(ctx context.Context) ([]types.Player, error)
	SavePlayer(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error)
	DeletePlayer(ctx context.Context, playerID string) error
	ReplacePlayers(ctx context.Context, players []types.Player) error

	GetSeasons(ctx context.Context) ([]types.Season, error)
	SaveSeason(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error)
	DeleteSeason(ctx context.Context, seasonID string) error

	GetTournaments(ctx context.Context) ([]types.Tournament, error)
	SaveTournament(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error)
	DeleteTournament(ctx context.Context, tournamentID string) error
}

// UserResolver returns the id of the signed-in user.
type UserResolver func(ctx context.Context) (userID string, ok bool)
