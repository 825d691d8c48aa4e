package sessionservice

import (
	"slices"

	"github.com/matchops/matchops/app/shared/types"
)

func (s *Store) SetGameID(id string) {
	s.set(func(g *types.GameState) { g.GameID = id })
}

func (s *Store) SetTeamName(name string) {
	s.set(func(g *types.GameState) { g.TeamName = name })
}

func (s *Store) SetOpponentName(name string) {
	s.set(func(g *types.GameState) { g.OpponentName = name })
}

func (s *Store) SetGameDate(date string) {
	s.set(func(g *types.GameState) { g.GameDate = date })
}

func (s *Store) SetGameLocation(location string) {
	s.set(func(g *types.GameState) { g.GameLocation = location })
}

func (s *Store) SetGameTime(clock string) {
	s.set(func(g *types.GameState) { g.GameTime = clock })
}

func (s *Store) SetGameNotes(notes string) {
	s.set(func(g *types.GameState) { g.GameNotes = notes })
}

func (s *Store) SetShowPlayerNames(show bool) {
	s.set(func(g *types.GameState) { g.ShowPlayerNames = show })
}

func (s *Store) SetIsPlayed(played bool) {
	s.set(func(g *types.GameState) { g.IsPlayed = types.BoolPtr(played) })
}

// SetHomeScore sets the home score; negative values clamp to zero.
func (s *Store) SetHomeScore(score int) {
	s.set(func(g *types.GameState) { g.HomeScore = max(score, 0) })
}

// SetAwayScore sets the away score; negative values clamp to zero.
func (s *Store) SetAwayScore(score int) {
	s.set(func(g *types.GameState) { g.AwayScore = max(score, 0) })
}

// AdjustScore adds delta to one side's score without going below zero.
func (s *Store) AdjustScore(side types.HomeOrAway, delta int) {
	s.set(func(g *types.GameState) { adjustScore(g, side, delta) })
}

func (s *Store) SetHomeOrAway(side types.HomeOrAway) {
	if side != types.Home && side != types.Away {
		return
	}
	s.set(func(g *types.GameState) { g.HomeOrAway = side })
}

// SetNumberOfPeriods accepts 1 or 2.
func (s *Store) SetNumberOfPeriods(n int) {
	if n < 1 || n > 2 {
		return
	}
	s.set(func(g *types.GameState) {
		g.NumberOfPeriods = n
		g.CurrentPeriod = min(g.CurrentPeriod, n)
	})
}

func (s *Store) SetPeriodDuration(minutes int) {
	if minutes < 1 {
		return
	}
	s.set(func(g *types.GameState) { g.PeriodDurationMinutes = minutes })
}

func (s *Store) SetCurrentPeriod(period int) {
	s.set(func(g *types.GameState) {
		g.CurrentPeriod = min(max(period, 1), max(g.NumberOfPeriods, 1))
	})
}

func (s *Store) SetGameStatus(status types.GameStatus) {
	s.set(func(g *types.GameState) { g.GameStatus = status })
}

func (s *Store) SetAvailablePlayers(players []types.Player) {
	s.set(func(g *types.GameState) { g.AvailablePlayers = types.ClonePlayers(players) })
}

// SetSelectedPlayerIDs replaces the squad selection, dropping duplicates.
func (s *Store) SetSelectedPlayerIDs(ids []string) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	s.set(func(g *types.GameState) { g.SelectedPlayerIDs = out })
}

// SetSeasonID links the game to a season and unlinks any tournament.
func (s *Store) SetSeasonID(id string) {
	s.set(func(g *types.GameState) {
		g.SeasonID = id
		if id != "" {
			g.TournamentID = ""
		}
	})
}

// SetTournamentID links the game to a tournament and unlinks any season.
func (s *Store) SetTournamentID(id string) {
	s.set(func(g *types.GameState) {
		g.TournamentID = id
		if id != "" {
			g.SeasonID = ""
		}
	})
}

func adjustScore(g *types.GameState, side types.HomeOrAway, delta int) {
	if side == types.Away {
		g.AwayScore = max(g.AwayScore+delta, 0)
		return
	}
	g.HomeScore = max(g.HomeScore+delta, 0)
}

// ownSide is the side the coached team plays on.
func ownSide(g *types.GameState) types.HomeOrAway {
	if g.HomeOrAway == types.Away {
		return types.Away
	}
	return types.Home
}

func opponentSide(g *types.GameState) types.HomeOrAway {
	if ownSide(g) == types.Away {
		return types.Home
	}
	return types.Away
}
