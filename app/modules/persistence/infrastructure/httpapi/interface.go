package persistencehttp

import (
	"context"
	"encoding/json"
	"io"

	persistenceservice "github.com/matchops/matchops/app/modules/persistence/application"
	"github.com/matchops/matchops/app/shared/types"
)

// Service is the part of the persistence store the HTTP API exposes.
type Service interface {
	ListGames(ctx context.Context) (map[string]types.GameState, error)
	LoadGame(ctx context.Context, gameID string) (types.GameState, error)
	SaveGame(ctx context.Context, gameID string, game types.GameState) error
	CreateGame(ctx context.Context, setup persistenceservice.GameSetup) (types.GameState, error)
	DeleteGame(ctx context.Context, gameID string) error
	DuplicateGame(ctx context.Context, srcID, newID string) (types.GameState, error)

	ListPlayers(ctx context.Context) ([]types.Player, error)
	SaveMasterRoster(ctx context.Context, players []types.Player) error
	AddPlayer(ctx context.Context, player types.Player) (types.Player, error)
	UpdatePlayer(ctx context.Context, playerID string, expectedVersion int, mutate func(*types.Player)) (types.Player, error)
	RemovePlayer(ctx context.Context, playerID string) error

	ListSeasons(ctx context.Context) ([]types.Season, error)
	AddSeason(ctx context.Context, season types.Season) (types.Season, error)
	UpdateSeason(ctx context.Context, seasonID string, expectedVersion int, mutate func(*types.Season)) (types.Season, error)
	DeleteSeason(ctx context.Context, seasonID string) error

	ListTournaments(ctx context.Context) ([]types.Tournament, error)
	AddTournament(ctx context.Context, tournament types.Tournament) (types.Tournament, error)
	UpdateTournament(ctx context.Context, tournamentID string, expectedVersion int, mutate func(*types.Tournament)) (types.Tournament, error)
	DeleteTournament(ctx context.Context, tournamentID string) error

	ReadSettings(ctx context.Context) (types.AppSettings, error)
	UpdateSettings(ctx context.Context, patch types.SettingsPatch) (types.AppSettings, error)
	ResetSettings(ctx context.Context) (types.AppSettings, error)

	GetStorageItem(ctx context.Context, key string) (json.RawMessage, bool, error)
	SetStorageItem(ctx context.Context, key string, value any) error
	RemoveStorageItem(ctx context.Context, key string) error
	StorageKeys(ctx context.Context) ([]string, error)

	CreateBackup(ctx context.Context) ([]byte, error)
	ImportBackup(ctx context.Context, data []byte, mode persistenceservice.ImportMode) (persistenceservice.ImportResult, error)
	RestoreFromBackup(ctx context.Context, data []byte) (persistenceservice.ImportResult, error)
	RepairMissingIsPlayed(ctx context.Context) (persistenceservice.RepairReport, error)

	PlayerStats(ctx context.Context, filter persistenceservice.StatsFilter) ([]persistenceservice.PlayerStat, error)
	GoalsChart(ctx context.Context, filter persistenceservice.StatsFilter) ([]byte, error)
	ExportWorkbook(ctx context.Context, w io.Writer) error
}

var _ Service = (*persistenceservice.Service)(nil)
