package sessionservice

import (
	"fmt"

	"github.com/matchops/matchops/app/shared/types"
)

// AddGameEvent appends ev to the timeline. A missing id is generated and a
// missing period defaults to the current one. The stored event is returned.
func (s *Store) AddGameEvent(ev types.GameEvent) types.GameEvent {
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	_ = s.update(true, func(g *types.GameState) error {
		if ev.Period == 0 {
			ev.Period = g.CurrentPeriod
		}
		g.GameEvents = append(g.GameEvents, ev)
		return nil
	})
	return ev
}

// AddGoal records a goal by the coached team at the current clock and
// increments its score.
func (s *Store) AddGoal(scorerID, assisterID string) types.GameEvent {
	ev := types.GameEvent{
		ID:         s.newID(),
		Type:       types.EventGoal,
		ScorerID:   scorerID,
		AssisterID: assisterID,
	}
	_ = s.update(true, func(g *types.GameState) error {
		ev.Time = g.TimeElapsedInSeconds
		ev.Period = g.CurrentPeriod
		g.GameEvents = append(g.GameEvents, ev)
		adjustScore(g, ownSide(g), 1)
		return nil
	})
	return ev
}

// AddOpponentGoal records a goal against the coached team.
func (s *Store) AddOpponentGoal() types.GameEvent {
	ev := types.GameEvent{
		ID:   s.newID(),
		Type: types.EventOpponentGoal,
	}
	_ = s.update(true, func(g *types.GameState) error {
		ev.Time = g.TimeElapsedInSeconds
		ev.Period = g.CurrentPeriod
		g.GameEvents = append(g.GameEvents, ev)
		adjustScore(g, opponentSide(g), 1)
		return nil
	})
	return ev
}

// UpdateGameEvent replaces the event with the same id. Changing the type of
// a goal moves the point between the sides.
func (s *Store) UpdateGameEvent(ev types.GameEvent) error {
	return s.update(true, func(g *types.GameState) error {
		i := findEvent(g.GameEvents, ev.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrEventNotFound, ev.ID)
		}
		revertScore(g, g.GameEvents[i])
		applyScore(g, ev)
		g.GameEvents[i] = ev
		return nil
	})
}

// RemoveGameEvent deletes an event, taking back the point of a removed goal.
func (s *Store) RemoveGameEvent(id string) error {
	return s.update(true, func(g *types.GameState) error {
		i := findEvent(g.GameEvents, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		revertScore(g, g.GameEvents[i])
		g.GameEvents = append(g.GameEvents[:i], g.GameEvents[i+1:]...)
		return nil
	})
}

func findEvent(events []types.GameEvent, id string) int {
	for i, ev := range events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func applyScore(g *types.GameState, ev types.GameEvent) {
	switch ev.Type {
	case types.EventGoal:
		adjustScore(g, ownSide(g), 1)
	case types.EventOpponentGoal:
		adjustScore(g, opponentSide(g), 1)
	}
}

func revertScore(g *types.GameState, ev types.GameEvent) {
	switch ev.Type {
	case types.EventGoal:
		adjustScore(g, ownSide(g), -1)
	case types.EventOpponentGoal:
		adjustScore(g, opponentSide(g), -1)
	}
}
