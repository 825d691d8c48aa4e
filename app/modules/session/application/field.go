package sessionservice

import (
	"fmt"

	"github.com/matchops/matchops/app/shared/types"
)

// PlacePlayer puts player on the field at (relX, relY), or moves it there if
// already placed.
func (s *Store) PlacePlayer(player types.Player, relX, relY float64) {
	x, y := clamp(relX), clamp(relY)
	s.set(func(g *types.GameState) {
		p := player.Clone()
		p.RelX, p.RelY = &x, &y
		if i := types.FindPlayer(g.PlayersOnField, p.ID); i >= 0 {
			g.PlayersOnField[i] = p
			return
		}
		g.PlayersOnField = append(g.PlayersOnField, p)
	})
}

func (s *Store) MovePlayer(playerID string, relX, relY float64) error {
	x, y := clamp(relX), clamp(relY)
	return s.update(true, func(g *types.GameState) error {
		i := types.FindPlayer(g.PlayersOnField, playerID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrPlayerNotOnField, playerID)
		}
		g.PlayersOnField[i].RelX, g.PlayersOnField[i].RelY = &x, &y
		return nil
	})
}

func (s *Store) RemovePlayerFromField(playerID string) error {
	return s.update(true, func(g *types.GameState) error {
		i := types.FindPlayer(g.PlayersOnField, playerID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrPlayerNotOnField, playerID)
		}
		g.PlayersOnField = append(g.PlayersOnField[:i], g.PlayersOnField[i+1:]...)
		return nil
	})
}

// AddOpponent places a new opponent marker and returns it.
func (s *Store) AddOpponent(relX, relY float64) types.Opponent {
	o := types.Opponent{ID: s.newID(), RelX: clamp(relX), RelY: clamp(relY)}
	s.set(func(g *types.GameState) { g.Opponents = append(g.Opponents, o) })
	return o
}

func (s *Store) MoveOpponent(id string, relX, relY float64) error {
	return s.update(true, func(g *types.GameState) error {
		for i := range g.Opponents {
			if g.Opponents[i].ID == id {
				g.Opponents[i].RelX, g.Opponents[i].RelY = clamp(relX), clamp(relY)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrOpponentNotFound, id)
	})
}

func (s *Store) RemoveOpponent(id string) error {
	return s.update(true, func(g *types.GameState) error {
		for i := range g.Opponents {
			if g.Opponents[i].ID == id {
				g.Opponents = append(g.Opponents[:i], g.Opponents[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrOpponentNotFound, id)
	})
}

// AddDrawing appends one stroke. Empty strokes are ignored.
func (s *Store) AddDrawing(stroke []types.Point) {
	if len(stroke) == 0 {
		return
	}
	line := make([]types.Point, len(stroke))
	for i, p := range stroke {
		line[i] = types.Point{RelX: clamp(p.RelX), RelY: clamp(p.RelY)}
	}
	s.set(func(g *types.GameState) { g.Drawings = append(g.Drawings, line) })
}

// UndoDrawing removes the most recent stroke.
func (s *Store) UndoDrawing() {
	s.set(func(g *types.GameState) {
		if n := len(g.Drawings); n > 0 {
			g.Drawings = g.Drawings[:n-1]
		}
	})
}

func (s *Store) ClearDrawings() {
	s.set(func(g *types.GameState) { g.Drawings = [][]types.Point{} })
}

// ResetField clears players, opponents and drawings from the field.
func (s *Store) ResetField() {
	s.set(func(g *types.GameState) {
		g.PlayersOnField = []types.Player{}
		g.Opponents = []types.Opponent{}
		g.Drawings = [][]types.Point{}
	})
}

// ResetGameSession returns the session to its initial state. The roster of
// available players is kept.
func (s *Store) ResetGameSession() {
	_ = s.update(false, func(g *types.GameState) error {
		available := g.AvailablePlayers
		*g = InitialState()
		g.AvailablePlayers = available
		return nil
	})
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
