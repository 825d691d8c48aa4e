package persistenceservice

import (
	"context"
	"fmt"
	"sort"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// StatsFilter narrows the games counted by PlayerStats.
type StatsFilter struct {
	SeasonID     string
	TournamentID string
	// IncludeUnplayed counts games explicitly flagged as not played.
	IncludeUnplayed bool
}

func (f StatsFilter) matches(g types.GameState) bool {
	if !f.IncludeUnplayed && !g.Played() {
		return false
	}
	if f.SeasonID != "" && g.SeasonID != f.SeasonID {
		return false
	}
	if f.TournamentID != "" && g.TournamentID != f.TournamentID {
		return false
	}
	return true
}

// PlayerStat is one player's aggregate over the filtered games.
type PlayerStat struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	GamesPlayed int    `json:"gamesPlayed"`
	Goals       int    `json:"goals"`
	Assists     int    `json:"assists"`
	Points      int    `json:"points"`
}

// PlayerStats aggregates goals, assists and appearances per player, sorted
// by points, then goals, then name.
func (s *Service) PlayerStats(ctx context.Context, filter StatsFilter) ([]PlayerStat, error) {
	return run(s, ctx, flagNone, "PlayerStats", filter.SeasonID+filter.TournamentID, func(ctx context.Context) (results.OperationResult[[]PlayerStat, error], error) {
		games, roster, err := s.loadGamesAndRoster(ctx)
		if err != nil {
			return results.OperationResult[[]PlayerStat, error]{}, err
		}
		return results.SuccessResult[[]PlayerStat, error](computeStats(games, roster, filter)), nil
	})
}

func (s *Service) loadGamesAndRoster(ctx context.Context) (map[string]types.GameState, []types.Player, error) {
	games, err := s.loadGames(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load games: %w", err)
	}
	roster, err := s.loadRoster(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return games, roster, nil
}

func computeStats(games map[string]types.GameState, roster []types.Player, filter StatsFilter) []PlayerStat {
	names := make(map[string]string, len(roster))
	for _, p := range roster {
		names[p.ID] = p.Name
	}

	byID := map[string]*PlayerStat{}
	stat := func(id string) *PlayerStat {
		if st, ok := byID[id]; ok {
			return st
		}
		st := &PlayerStat{PlayerID: id, Name: names[id]}
		byID[id] = st
		return st
	}

	for _, g := range games {
		if !filter.matches(g) {
			continue
		}
		for _, p := range g.AvailablePlayers {
			if _, ok := names[p.ID]; !ok && p.Name != "" {
				names[p.ID] = p.Name
			}
		}
		for _, id := range g.SelectedPlayerIDs {
			stat(id).GamesPlayed++
		}
		for _, ev := range g.GameEvents {
			if ev.Type != types.EventGoal {
				continue
			}
			if ev.ScorerID != "" {
				stat(ev.ScorerID).Goals++
			}
			if ev.AssisterID != "" {
				stat(ev.AssisterID).Assists++
			}
		}
	}

	out := make([]PlayerStat, 0, len(byID))
	for _, st := range byID {
		if st.Name == "" {
			st.Name = names[st.PlayerID]
		}
		st.Points = st.Goals + st.Assists
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Goals != out[j].Goals {
			return out[i].Goals > out[j].Goals
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
