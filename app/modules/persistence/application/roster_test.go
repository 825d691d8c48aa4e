package persistenceservice

import (
	"context"
	"testing"

	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveMasterRoster(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		players   []types.Player
		expectErr error
		expectLen int
	}{
		{
			name:      "Roster is replaced",
			players:   NewTestDataGenerator(1).Players(5),
			expectLen: 5,
		},
		{
			name:      "Empty roster clears",
			players:   []types.Player{},
			expectLen: 0,
		},
		{
			name:      "Player without id is rejected",
			players:   []types.Player{{ID: "p1", Name: "Ann"}, {Name: "No Id"}},
			expectErr: ErrMissingPlayerID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(0)
			require.NoError(t, env.svc.SaveMasterRoster(ctx, []types.Player{{ID: "old", Name: "Old"}}))

			err := env.svc.SaveMasterRoster(ctx, tt.players)

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				require.Len(t, env.svc.Roster(), 1)
				assert.Equal(t, "old", env.svc.Roster()[0].ID)
				return
			}
			require.NoError(t, err)
			roster := env.svc.Roster()
			assert.Len(t, roster, tt.expectLen)
			for _, p := range roster {
				assert.Equal(t, 1, p.Version, "replaced players start at version 1")
			}
			assert.Contains(t, env.publisher.Topics(), eventbus.TopicRosterChangedV1)
		})
	}
}

func TestAddPlayerGeneratesID(t *testing.T) {
	env := newTestEnv(0)

	p, err := env.svc.AddPlayer(context.Background(), types.Player{Name: "Mia", IsActive: true})

	require.NoError(t, err)
	assert.Equal(t, "player_id00000001", p.ID)
	assert.Equal(t, 1, p.Version)
	require.Len(t, env.svc.Roster(), 1)
	assert.Equal(t, "Mia", env.svc.Roster()[0].Name)
}

func TestUpdatePlayerVersionCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name            string
		playerID        string
		expectedVersion int
		expectErr       error
		expectVersion   int
	}{
		{
			name:            "Current version succeeds",
			playerID:        "p1",
			expectedVersion: 1,
			expectVersion:   2,
		},
		{
			name:            "Stale version conflicts",
			playerID:        "p1",
			expectedVersion: 0,
			expectErr:       ErrVersionConflict,
		},
		{
			name:            "Future version conflicts",
			playerID:        "p1",
			expectedVersion: 5,
			expectErr:       ErrVersionConflict,
		},
		{
			name:            "Unknown player",
			playerID:        "ghost",
			expectedVersion: 1,
			expectErr:       ErrPlayerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(0)
			_, err := env.svc.AddPlayer(ctx, types.Player{ID: "p1", Name: "Ann", JerseyNumber: "7"})
			require.NoError(t, err)

			updated, err := env.svc.UpdatePlayer(ctx, tt.playerID, tt.expectedVersion, func(p *types.Player) {
				p.JerseyNumber = "10"
			})

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				assert.Equal(t, "7", env.svc.Roster()[0].JerseyNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectVersion, updated.Version)
			assert.Equal(t, "10", env.svc.Roster()[0].JerseyNumber)
		})
	}
}

func TestConcurrentEditorsOneWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(0)
	p, err := env.svc.AddPlayer(ctx, types.Player{ID: "p1", Name: "Ann"})
	require.NoError(t, err)

	_, err = env.svc.UpdatePlayer(ctx, "p1", p.Version, func(p *types.Player) { p.Nickname = "A" })
	require.NoError(t, err)

	_, err = env.svc.UpdatePlayer(ctx, "p1", p.Version, func(p *types.Player) { p.Nickname = "B" })
	require.ErrorIs(t, err, ErrVersionConflict)

	assert.Equal(t, "A", env.svc.Roster()[0].Nickname)
}

func TestRemovePlayer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(0)
	require.NoError(t, env.svc.SaveMasterRoster(ctx, NewTestDataGenerator(2).Players(3)))

	require.NoError(t, env.svc.RemovePlayer(ctx, "p2"))

	ids := []string{}
	for _, p := range env.svc.Roster() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids)
	assert.ErrorIs(t, env.svc.RemovePlayer(ctx, "p2"), ErrPlayerNotFound)
}
