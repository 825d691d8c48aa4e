package eventbus

import "time"

const (
	TopicAutosaveRequestedV1 = "session.autosave.requested.v1"
	TopicGameSavedV1         = "persistence.game.saved.v1"
	TopicGameDeletedV1       = "persistence.game.deleted.v1"
	TopicRosterChangedV1     = "persistence.roster.changed.v1"
	TopicBackupCreatedV1     = "persistence.backup.created.v1"
	TopicDataImportedV1      = "persistence.data.imported.v1"
	TopicRemoteChangedV1     = "sync.remote.changed.v1"

	// TopicChangeAnnouncedV1 carries local changes on their way to other devices.
	TopicChangeAnnouncedV1 = "sync.change.announced.v1"
)

// AutosaveRequestedPayloadV1 asks persistence to store the live session.
type AutosaveRequestedPayloadV1 struct {
	GameID      string    `json:"game_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// GameSavedPayloadV1 is published after a game write.
type GameSavedPayloadV1 struct {
	GameID  string    `json:"game_id"`
	SavedAt time.Time `json:"saved_at"`
}

// GameDeletedPayloadV1 is published after a game delete.
type GameDeletedPayloadV1 struct {
	GameID    string    `json:"game_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// RosterChangedPayloadV1 is published after any roster write.
type RosterChangedPayloadV1 struct {
	PlayerID  string    `json:"player_id,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// BackupCreatedPayloadV1 is published after a backup is produced.
type BackupCreatedPayloadV1 struct {
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// DataImportedPayloadV1 is published after a backup import.
type DataImportedPayloadV1 struct {
	Shape      string         `json:"shape"`
	Mode       string         `json:"mode"`
	Counts     map[string]int `json:"counts"`
	ImportedAt time.Time      `json:"imported_at"`
}

// RemoteChangedPayloadV1 describes a change made on one device. It is used
// both for outbound announcements and for changes received from elsewhere.
type RemoteChangedPayloadV1 struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id,omitempty"`
	DeviceID  string    `json:"device_id"`
	ChangedAt time.Time `json:"changed_at"`
}
