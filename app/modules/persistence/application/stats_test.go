package persistenceservice

import (
	"bytes"
	"context"
	"testing"

	"github.com/matchops/matchops/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func statsFixture() (map[string]types.GameState, []types.Player) {
	roster := []types.Player{
		{ID: "p1", Name: "Ann", IsActive: true},
		{ID: "p2", Name: "Bo", IsActive: true},
		{ID: "p3", Name: "Cy", IsActive: true},
	}
	games := map[string]types.GameState{
		"g1": {
			GameID:            "g1",
			GameDate:          "2024-04-01",
			SeasonID:          "s1",
			SelectedPlayerIDs: []string{"p1", "p2"},
			GameEvents: []types.GameEvent{
				goal("e1", "p1", "p2", 60),
				goal("e2", "p1", "", 400),
				{ID: "e3", Type: types.EventOpponentGoal, Time: 500},
			},
			IsPlayed: types.BoolPtr(true),
		},
		"g2": {
			GameID:            "g2",
			GameDate:          "2024-05-01",
			TournamentID:      "t1",
			SelectedPlayerIDs: []string{"p1", "p2", "p3"},
			GameEvents:        []types.GameEvent{goal("e4", "p2", "p3", 90)},
		},
		"g3": {
			GameID:            "g3",
			GameDate:          "2024-06-01",
			SelectedPlayerIDs: []string{"p3"},
			GameEvents:        []types.GameEvent{goal("e5", "p3", "", 30)},
			IsPlayed:          types.BoolPtr(false),
		},
	}
	return games, roster
}

func TestComputeStats(t *testing.T) {
	games, roster := statsFixture()

	tests := []struct {
		name   string
		filter StatsFilter
		expect []PlayerStat
	}{
		{
			name: "Played games only",
			expect: []PlayerStat{
				{PlayerID: "p1", Name: "Ann", GamesPlayed: 2, Goals: 2, Points: 2},
				{PlayerID: "p2", Name: "Bo", GamesPlayed: 2, Goals: 1, Assists: 1, Points: 2},
				{PlayerID: "p3", Name: "Cy", GamesPlayed: 1, Assists: 1, Points: 1},
			},
		},
		{
			name:   "Unplayed games included",
			filter: StatsFilter{IncludeUnplayed: true},
			expect: []PlayerStat{
				{PlayerID: "p1", Name: "Ann", GamesPlayed: 2, Goals: 2, Points: 2},
				{PlayerID: "p2", Name: "Bo", GamesPlayed: 2, Goals: 1, Assists: 1, Points: 2},
				{PlayerID: "p3", Name: "Cy", GamesPlayed: 2, Goals: 1, Assists: 1, Points: 2},
			},
		},
		{
			name:   "Season filter",
			filter: StatsFilter{SeasonID: "s1"},
			expect: []PlayerStat{
				{PlayerID: "p1", Name: "Ann", GamesPlayed: 1, Goals: 2, Points: 2},
				{PlayerID: "p2", Name: "Bo", GamesPlayed: 1, Assists: 1, Points: 1},
			},
		},
		{
			name:   "Unknown tournament yields nothing",
			filter: StatsFilter{TournamentID: "none"},
			expect: []PlayerStat{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, computeStats(games, roster, tt.filter))
		})
	}
}

func seedStats(t *testing.T, env testEnv) {
	t.Helper()
	ctx := context.Background()
	games, roster := statsFixture()
	require.NoError(t, env.svc.SaveMasterRoster(ctx, roster))
	for id, g := range games {
		require.NoError(t, env.svc.SaveGame(ctx, id, g))
	}
}

func TestPlayerStatsReadsStoredGames(t *testing.T) {
	env := newTestEnv(0)
	seedStats(t, env)

	stats, err := env.svc.PlayerStats(context.Background(), StatsFilter{TournamentID: "t1"})

	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "p2", stats[0].PlayerID)
	assert.Equal(t, 1, stats[0].Goals)
}

func TestExportWorkbook(t *testing.T) {
	env := newTestEnv(0)
	seedStats(t, env)
	var buf bytes.Buffer

	require.NoError(t, env.svc.ExportWorkbook(context.Background(), &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Games", "Player Stats"}, f.GetSheetList())

	games, err := f.GetRows("Games")
	require.NoError(t, err)
	require.Len(t, games, 4)
	assert.Equal(t, "Game ID", games[0][0])
	assert.Equal(t, "g3", games[1][0], "newest game first")
	assert.Equal(t, "no", games[1][len(games[1])-1])

	stats, err := f.GetRows("Player Stats")
	require.NoError(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, []string{"Ann", "2", "2", "0", "2"}, stats[1])
}

func TestGoalsChartRendersPNG(t *testing.T) {
	ctx := context.Background()

	t.Run("With goals", func(t *testing.T) {
		env := newTestEnv(0)
		seedStats(t, env)

		png, err := env.svc.GoalsChart(ctx, StatsFilter{})

		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("Without games", func(t *testing.T) {
		env := newTestEnv(0)

		png, err := env.svc.GoalsChart(ctx, StatsFilter{})

		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngMagic))
	})
}
