package persistencehandlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// Entity names used in change announcements.
const (
	EntityGame   = "game"
	EntityRoster = "roster"
	EntityAll    = "all"
)

// PersistenceHandlers implements the Handlers interface.
type PersistenceHandlers struct {
	service  Service
	session  SessionSource
	deviceID string
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewPersistenceHandlers creates a new PersistenceHandlers instance. session
// may be nil when no live game is hosted by this process.
func NewPersistenceHandlers(
	service Service,
	session SessionSource,
	deviceID string,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &PersistenceHandlers{
		service:  service,
		session:  session,
		deviceID: deviceID,
		logger:   logger,
		tracer:   tracer,
		now:      time.Now,
	}
}

// HandleAutosaveRequested writes the session's current game.
func (h *PersistenceHandlers) HandleAutosaveRequested(ctx context.Context, payload *eventbus.AutosaveRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PersistenceHandlers.HandleAutosaveRequested")
	defer span.End()

	if h.session == nil || payload.GameID == "" {
		h.logger.DebugContext(ctx, "Autosave skipped",
			slog.String("game_id", payload.GameID),
		)
		return nil, nil
	}

	game := h.session.ToGameState(payload.GameID)
	if err := h.service.SaveGame(ctx, payload.GameID, game); err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Session autosaved",
		slog.String("game_id", payload.GameID),
		slog.Duration("lag", h.now().Sub(payload.RequestedAt)),
	)
	return nil, nil
}

// HandleGameSaved announces a saved game.
func (h *PersistenceHandlers) HandleGameSaved(ctx context.Context, payload *eventbus.GameSavedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PersistenceHandlers.HandleGameSaved")
	defer span.End()
	return h.announce(ctx, EntityGame, payload.GameID), nil
}

// HandleGameDeleted announces a deleted game.
func (h *PersistenceHandlers) HandleGameDeleted(ctx context.Context, payload *eventbus.GameDeletedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PersistenceHandlers.HandleGameDeleted")
	defer span.End()
	return h.announce(ctx, EntityGame, payload.GameID), nil
}

// HandleRosterChanged announces a roster write.
func (h *PersistenceHandlers) HandleRosterChanged(ctx context.Context, payload *eventbus.RosterChangedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PersistenceHandlers.HandleRosterChanged")
	defer span.End()
	return h.announce(ctx, EntityRoster, payload.PlayerID), nil
}

// HandleDataImported announces an import, which may touch every entity.
func (h *PersistenceHandlers) HandleDataImported(ctx context.Context, payload *eventbus.DataImportedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PersistenceHandlers.HandleDataImported")
	defer span.End()
	return h.announce(ctx, EntityAll, ""), nil
}

func (h *PersistenceHandlers) announce(ctx context.Context, entity, id string) []handlerwrapper.Result {
	h.logger.DebugContext(ctx, "Announcing local change",
		slog.String("entity", entity),
		slog.String("id", id),
	)
	return []handlerwrapper.Result{{
		Topic: eventbus.TopicChangeAnnouncedV1,
		Payload: &eventbus.RemoteChangedPayloadV1{
			Entity:    entity,
			ID:        id,
			DeviceID:  h.deviceID,
			ChangedAt: h.now().UTC(),
		},
	}}
}

// HandleRemoteChanged reloads every cache unless the change came from this device.
func (h *PersistenceHandlers) HandleRemoteChanged(ctx context.Context, payload *eventbus.RemoteChangedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PersistenceHandlers.HandleRemoteChanged")
	defer span.End()

	if payload.DeviceID == h.deviceID {
		return nil, nil
	}

	h.logger.InfoContext(ctx, "Remote change received, reloading",
		slog.String("entity", payload.Entity),
		slog.String("id", payload.ID),
		slog.String("device_id", payload.DeviceID),
	)
	if err := h.service.LoadAll(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}
