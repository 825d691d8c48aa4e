package persistencehandlers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/handlerwrapper"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestHandlers(svc *FakeService, session SessionSource) *PersistenceHandlers {
	h := NewPersistenceHandlers(svc, session, "device-a", slog.New(slog.DiscardHandler), noop.NewTracerProvider().Tracer("test")).(*PersistenceHandlers)
	h.now = func() time.Time { return time.Date(2024, 9, 14, 10, 30, 0, 0, time.UTC) }
	return h
}

func TestHandleAutosaveRequested(t *testing.T) {
	tests := []struct {
		name        string
		session     SessionSource
		payload     *eventbus.AutosaveRequestedPayloadV1
		saveErr     error
		expectTrace []string
		expectErr   bool
	}{
		{
			name:        "Saves the live session",
			session:     &FakeSession{Game: types.GameState{TeamName: "Lions"}},
			payload:     &eventbus.AutosaveRequestedPayloadV1{GameID: "g1"},
			expectTrace: []string{"SaveGame:g1"},
		},
		{
			name:    "No session hosted",
			payload: &eventbus.AutosaveRequestedPayloadV1{GameID: "g1"},
		},
		{
			name:    "No game id",
			session: &FakeSession{},
			payload: &eventbus.AutosaveRequestedPayloadV1{},
		},
		{
			name:        "Save failure is returned",
			session:     &FakeSession{},
			payload:     &eventbus.AutosaveRequestedPayloadV1{GameID: "g1"},
			saveErr:     errors.New("disk full"),
			expectTrace: []string{"SaveGame:g1"},
			expectErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved types.GameState
			svc := &FakeService{SaveGameFunc: func(_ context.Context, _ string, g types.GameState) error {
				saved = g
				return tt.saveErr
			}}
			h := newTestHandlers(svc, tt.session)

			results, err := h.HandleAutosaveRequested(context.Background(), tt.payload)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Empty(t, results)
			assert.Equal(t, tt.expectTrace, svc.Trace())
			if len(tt.expectTrace) > 0 && !tt.expectErr {
				assert.Equal(t, "g1", saved.GameID)
				assert.Equal(t, "Lions", saved.TeamName)
			}
		})
	}
}

func TestLocalChangesAreAnnounced(t *testing.T) {
	ctx := context.Background()
	h := newTestHandlers(&FakeService{}, nil)

	tests := []struct {
		name         string
		call         func() ([]handlerwrapper.Result, error)
		expectEntity string
		expectID     string
	}{
		{
			name:         "Game saved",
			call:         func() ([]handlerwrapper.Result, error) { return h.HandleGameSaved(ctx, &eventbus.GameSavedPayloadV1{GameID: "g1"}) },
			expectEntity: EntityGame,
			expectID:     "g1",
		},
		{
			name:         "Game deleted",
			call:         func() ([]handlerwrapper.Result, error) { return h.HandleGameDeleted(ctx, &eventbus.GameDeletedPayloadV1{GameID: "g2"}) },
			expectEntity: EntityGame,
			expectID:     "g2",
		},
		{
			name:         "Roster changed",
			call:         func() ([]handlerwrapper.Result, error) { return h.HandleRosterChanged(ctx, &eventbus.RosterChangedPayloadV1{PlayerID: "p1"}) },
			expectEntity: EntityRoster,
			expectID:     "p1",
		},
		{
			name:         "Data imported",
			call:         func() ([]handlerwrapper.Result, error) { return h.HandleDataImported(ctx, &eventbus.DataImportedPayloadV1{Shape: "legacy"}) },
			expectEntity: EntityAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := tt.call()
			require.NoError(t, err)

			require.Len(t, results, 1)
			assert.Equal(t, eventbus.TopicChangeAnnouncedV1, results[0].Topic)
			payload := results[0].Payload.(*eventbus.RemoteChangedPayloadV1)
			assert.Equal(t, tt.expectEntity, payload.Entity)
			assert.Equal(t, tt.expectID, payload.ID)
			assert.Equal(t, "device-a", payload.DeviceID)
		})
	}
}

func TestHandleRemoteChanged(t *testing.T) {
	tests := []struct {
		name        string
		deviceID    string
		loadErr     error
		expectTrace []string
		expectErr   bool
	}{
		{name: "Other device triggers reload", deviceID: "device-b", expectTrace: []string{"LoadAll"}},
		{name: "Own change is ignored", deviceID: "device-a"},
		{name: "Reload failure", deviceID: "device-b", loadErr: errors.New("offline"), expectTrace: []string{"LoadAll"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{LoadAllFunc: func(context.Context) error { return tt.loadErr }}
			h := newTestHandlers(svc, nil)

			_, err := h.HandleRemoteChanged(context.Background(), &eventbus.RemoteChangedPayloadV1{Entity: EntityGame, DeviceID: tt.deviceID})

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectTrace, svc.Trace())
		})
	}
}
