package sessionservice

import (
	"github.com/matchops/matchops/app/shared/types"
)

// StartTimer runs the clock. After a period end it starts the next period.
func (s *Store) StartTimer() error {
	return s.update(true, func(g *types.GameState) error {
		switch g.GameStatus {
		case types.GameStatusGameEnd:
			return ErrGameFinished
		case types.GameStatusPeriodEnd:
			g.CurrentPeriod = min(g.CurrentPeriod+1, max(g.NumberOfPeriods, 1))
			g.LastSubConfirmationTimeSeconds = g.TimeElapsedInSeconds
			g.NextSubDueTimeSeconds = g.TimeElapsedInSeconds + g.SubIntervalMinutes*60
			g.SubAlertLevel = types.SubAlertNone
		}
		g.GameStatus = types.GameStatusInProgress
		g.IsTimerRunning = true
		return nil
	})
}

func (s *Store) PauseTimer() {
	s.set(func(g *types.GameState) { g.IsTimerRunning = false })
}

// Tick advances a running clock by seconds. The clock stops at the end of
// the current period, moving the game to periodEnd or, after the last
// period, to gameEnd.
func (s *Store) Tick(seconds int) {
	if seconds <= 0 {
		return
	}
	var (
		transitioned bool
		gameID       string
	)
	_ = s.update(false, func(g *types.GameState) error {
		if !g.IsTimerRunning {
			return nil
		}
		gameID = g.GameID
		g.TimeElapsedInSeconds += seconds

		periodEnd := g.CurrentPeriod * g.PeriodDurationMinutes * 60
		if g.TimeElapsedInSeconds >= periodEnd {
			g.TimeElapsedInSeconds = periodEnd
			g.IsTimerRunning = false
			transitioned = true

			ev := types.GameEvent{
				ID:     s.newID(),
				Type:   types.EventPeriodEnd,
				Time:   periodEnd,
				Period: g.CurrentPeriod,
			}
			g.GameStatus = types.GameStatusPeriodEnd
			if g.CurrentPeriod >= g.NumberOfPeriods {
				ev.Type = types.EventGameEnd
				g.GameStatus = types.GameStatusGameEnd
			}
			g.GameEvents = append(g.GameEvents, ev)
		}
		g.SubAlertLevel = subAlertLevel(g)
		return nil
	})
	if transitioned {
		s.requestAutosave(gameID)
	}
}

// SetSubInterval changes the substitution interval and reschedules the next
// substitution from the last confirmation.
func (s *Store) SetSubInterval(minutes int) {
	if minutes < 1 {
		return
	}
	s.set(func(g *types.GameState) {
		g.SubIntervalMinutes = minutes
		g.NextSubDueTimeSeconds = g.LastSubConfirmationTimeSeconds + minutes*60
		g.SubAlertLevel = subAlertLevel(g)
	})
}

// ConfirmSubstitution logs the interval since the previous substitution and
// schedules the next one.
func (s *Store) ConfirmSubstitution() {
	s.set(func(g *types.GameState) {
		g.CompletedIntervalDurations = append(g.CompletedIntervalDurations, types.IntervalLog{
			Period:    g.CurrentPeriod,
			Duration:  g.TimeElapsedInSeconds - g.LastSubConfirmationTimeSeconds,
			Timestamp: int(s.now().UnixMilli()),
		})
		g.LastSubConfirmationTimeSeconds = g.TimeElapsedInSeconds
		g.NextSubDueTimeSeconds = g.TimeElapsedInSeconds + g.SubIntervalMinutes*60
		g.SubAlertLevel = types.SubAlertNone
	})
}

// ResetTimer rewinds the clock to the start of the current period and
// reschedules substitutions from there. Everything else is kept.
func (s *Store) ResetTimer() {
	s.set(func(g *types.GameState) {
		periodStart := (g.CurrentPeriod - 1) * g.PeriodDurationMinutes * 60
		g.TimeElapsedInSeconds = periodStart
		g.IsTimerRunning = false
		g.NextSubDueTimeSeconds = periodStart + g.SubIntervalMinutes*60
		g.LastSubConfirmationTimeSeconds = periodStart
		g.SubAlertLevel = types.SubAlertNone
	})
}

func subAlertLevel(g *types.GameState) types.SubAlertLevel {
	remaining := g.NextSubDueTimeSeconds - g.TimeElapsedInSeconds
	switch {
	case remaining <= 0:
		return types.SubAlertDue
	case remaining <= SubWarningSeconds:
		return types.SubAlertWarning
	default:
		return types.SubAlertNone
	}
}
