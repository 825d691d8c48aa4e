package persistenceservice

import (
	"errors"

	remoteservice "github.com/matchops/matchops/app/modules/remote/application"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrSeasonNotFound     = errors.New("season not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// ErrGameExists is returned when a copy would overwrite a stored game.
	ErrGameExists = errors.New("game already exists")

	// ErrMissingPlayerID is returned when a roster write carries a player without id.
	ErrMissingPlayerID = errors.New("player id is required")

	// ErrVersionConflict is returned when a record changed since it was read.
	// It matches the remote client's sentinel so callers need one errors.Is check.
	ErrVersionConflict = remoteservice.ErrVersionConflict

	// ErrUnknownBackupShape is returned when an import document matches neither backup format.
	ErrUnknownBackupShape = errors.New("unrecognized backup format")

	// ErrInvalidBackup is returned when an import document is not valid JSON.
	ErrInvalidBackup = errors.New("backup is not valid JSON")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrSeasonNotFound) ||
		errors.Is(err, ErrTournamentNotFound)
}
