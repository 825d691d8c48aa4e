package types

import "time"

// SchemaVersion is written into persistence metadata and backups.
const SchemaVersion = "2.0.0"

// Storage keys of the app's documents.
const (
	KeySavedGames    = "savedSoccerGames"
	KeyMasterRoster  = "soccerMasterRoster"
	KeySeasons       = "soccerSeasons"
	KeyTournaments   = "soccerTournaments"
	KeyAppSettings   = "soccerAppSettings"
	KeyUserData      = "soccerUserData"
	KeyDataIntegrity = "soccerDataIntegrity"
	KeyLastBackup    = "soccerLastAutoBackup"
)

// BackupDocument is the normalized export shape.
type BackupDocument struct {
	Players       []Player             `json:"players"`
	Seasons       []Season             `json:"seasons"`
	Tournaments   []Tournament         `json:"tournaments"`
	SavedGames    map[string]GameState `json:"savedGames"`
	Settings      *AppSettings         `json:"settings,omitempty"`
	UserData      *UserData            `json:"userData,omitempty"`
	DataIntegrity DataIntegrity        `json:"dataIntegrity"`
	ExportedAt    time.Time            `json:"exportedAt"`
}

// LegacyBackup is the older export shape that nested everything under localStorage.
type LegacyBackup struct {
	LocalStorage LegacyLocalStorage `json:"localStorage"`
}

// LegacyLocalStorage holds the legacy collections.
type LegacyLocalStorage struct {
	MasterRoster    []Player             `json:"masterRoster"`
	SeasonsList     []Season             `json:"seasonsList"`
	TournamentsList []Tournament         `json:"tournamentsList"`
	SavedGames      map[string]GameState `json:"savedGames"`
	AppSettings     *AppSettings         `json:"appSettings,omitempty"`
}

// Normalize converts the legacy shape into a BackupDocument.
func (l LegacyBackup) Normalize() BackupDocument {
	return BackupDocument{
		Players:     l.LocalStorage.MasterRoster,
		Seasons:     l.LocalStorage.SeasonsList,
		Tournaments: l.LocalStorage.TournamentsList,
		SavedGames:  l.LocalStorage.SavedGames,
		Settings:    l.LocalStorage.AppSettings,
	}
}
