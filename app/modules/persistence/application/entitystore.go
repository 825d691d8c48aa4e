package persistenceservice

import (
	"context"

	"github.com/matchops/matchops/app/shared/types"
)

// EntityStore persists the app's collections. Exactly two variants exist:
// LocalEntityStore over the key-value adapter and RemoteEntityStore over the
// remote client. One is selected at startup.
//
// Versioned saves take the version the caller last read; zero means the
// record is new. A stale version yields ErrVersionConflict.
type EntityStore interface {
	LoadGames(ctx context.Context) (map[string]types.GameState, error)
	SaveGame(ctx context.Context, game types.GameState) error
	DeleteGame(ctx context.Context, gameID string) error
	ReplaceGames(ctx context.Context, games map[string]types.GameState) error

	LoadPlayers(ctx context.Context) ([]types.Player, error)
	SavePlayer(ctx context.Context, player types.Player, expectedVersion int) (types.Player, error)
	DeletePlayer(ctx context.Context, playerID string) error
	ReplacePlayers(ctx context.Context, players []types.Player) error

	LoadSeasons(ctx context.Context) ([]types.Season, error)
	SaveSeason(ctx context.Context, season types.Season, expectedVersion int) (types.Season, error)
	DeleteSeason(ctx context.Context, seasonID string) error
	ReplaceSeasons(ctx context.Context, seasons []types.Season) error

	LoadTournaments(ctx context.Context) ([]types.Tournament, error)
	SaveTournament(ctx context.Context, tournament types.Tournament, expectedVersion int) (types.Tournament, error)
	DeleteTournament(ctx context.Context, tournamentID string) error
	ReplaceTournaments(ctx context.Context, tournaments []types.Tournament) error

	// Kind names the variant for logs.
	Kind() string

	sealed()
}
