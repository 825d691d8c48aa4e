package persistencehandlers

import (
	"context"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/handlerwrapper"
	"github.com/matchops/matchops/app/shared/types"
)

// Handlers defines the persistence event handlers.
type Handlers interface {
	// HandleAutosaveRequested stores the live game session.
	HandleAutosaveRequested(ctx context.Context, payload *eventbus.AutosaveRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// Local changes are announced to the other devices of the same user.
	HandleGameSaved(ctx context.Context, payload *eventbus.GameSavedPayloadV1) ([]handlerwrapper.Result, error)
	HandleGameDeleted(ctx context.Context, payload *eventbus.GameDeletedPayloadV1) ([]handlerwrapper.Result, error)
	HandleRosterChanged(ctx context.Context, payload *eventbus.RosterChangedPayloadV1) ([]handlerwrapper.Result, error)
	HandleDataImported(ctx context.Context, payload *eventbus.DataImportedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleRemoteChanged reloads the caches after another device wrote.
	HandleRemoteChanged(ctx context.Context, payload *eventbus.RemoteChangedPayloadV1) ([]handlerwrapper.Result, error)
}

// Service is the part of the persistence store the handlers drive.
type Service interface {
	SaveGame(ctx context.Context, gameID string, game types.GameState) error
	LoadAll(ctx context.Context) error
}

// SessionSource exposes the live game session.
type SessionSource interface {
	ToGameState(gameID string) types.GameState
}
