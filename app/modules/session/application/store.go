package sessionservice

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/types"
)

// Defaults restored by ResetGameSession.
const (
	DefaultNumberOfPeriods    = 2
	DefaultPeriodDurationMins = 10
	DefaultSubIntervalMinutes = 5

	// SubWarningSeconds is how long before the next substitution the alert
	// level switches to warning.
	SubWarningSeconds = 60
)

var (
	ErrEventNotFound    = errors.New("game event not found")
	ErrPlayerNotOnField = errors.New("player is not on the field")
	ErrOpponentNotFound = errors.New("opponent not found")
	ErrGameFinished     = errors.New("game has ended")
)

// Listener receives a copy of the state after every change.
type Listener func(types.GameState)

// Store holds the live game session. All setters replace the state with an
// updated copy, so snapshots handed out never change underneath a caller.
type Store struct {
	mu        sync.RWMutex
	state     types.GameState
	listeners map[int]Listener
	nextID    int

	publisher message.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewStore creates a session store in its initial state. publisher may be
// nil, which disables autosave requests.
func NewStore(publisher message.Publisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:     InitialState(),
		listeners: make(map[int]Listener),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// InitialState returns the state of a fresh session.
func InitialState() types.GameState {
	return types.GameState{
		HomeOrAway:                 types.Home,
		NumberOfPeriods:            DefaultNumberOfPeriods,
		PeriodDurationMinutes:      DefaultPeriodDurationMins,
		CurrentPeriod:              1,
		GameStatus:                 types.GameStatusNotStarted,
		SubIntervalMinutes:         DefaultSubIntervalMinutes,
		NextSubDueTimeSeconds:      DefaultSubIntervalMinutes * 60,
		SubAlertLevel:              types.SubAlertNone,
		CompletedIntervalDurations: []types.IntervalLog{},
		PlayersOnField:             []types.Player{},
		AvailablePlayers:           []types.Player{},
		SelectedPlayerIDs:          []string{},
		Opponents:                  []types.Opponent{},
		Drawings:                   [][]types.Point{},
		GameEvents:                 []types.GameEvent{},
		ShowPlayerNames:            true,
		IsPlayed:                   types.BoolPtr(true),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() types.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// ToGameState returns the current state as the document of gameID.
func (s *Store) ToGameState(gameID string) types.GameState {
	g := s.Snapshot()
	if gameID != "" {
		g.GameID = gameID
	}
	return g
}

// Load replaces the session with a stored game.
func (s *Store) Load(game types.GameState) {
	next := normalize(game.Clone())
	s.mu.Lock()
	s.state = next
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Info("Session loaded", slog.String("game_id", next.GameID))
	notify(listeners, next)
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update applies fn to a copy of the state and swaps it in. persist marks
// changes that belong in the saved game.
func (s *Store) update(persist bool, fn func(g *types.GameState) error) error {
	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, next)
	if persist {
		s.requestAutosave(next.GameID)
	}
	return nil
}

func (s *Store) set(fn func(g *types.GameState)) {
	_ = s.update(true, func(g *types.GameState) error {
		fn(g)
		return nil
	})
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []Listener, state types.GameState) {
	for _, l := range listeners {
		l(state.Clone())
	}
}

func (s *Store) requestAutosave(gameID string) {
	if s.publisher == nil || gameID == "" {
		return
	}
	err := eventbus.PublishJSON(s.publisher, eventbus.TopicAutosaveRequestedV1, eventbus.AutosaveRequestedPayloadV1{
		GameID:      gameID,
		RequestedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("Failed to request autosave",
			slog.String("game_id", gameID),
			slog.String("error", err.Error()),
		)
	}
}

// normalize fills collections a stored document may omit.
func normalize(g types.GameState) types.GameState {
	if g.CompletedIntervalDurations == nil {
		g.CompletedIntervalDurations = []types.IntervalLog{}
	}
	if g.PlayersOnField == nil {
		g.PlayersOnField = []types.Player{}
	}
	if g.AvailablePlayers == nil {
		g.AvailablePlayers = []types.Player{}
	}
	if g.SelectedPlayerIDs == nil {
		g.SelectedPlayerIDs = []string{}
	}
	if g.Opponents == nil {
		g.Opponents = []types.Opponent{}
	}
	if g.Drawings == nil {
		g.Drawings = [][]types.Point{}
	}
	if g.GameEvents == nil {
		g.GameEvents = []types.GameEvent{}
	}
	if g.CurrentPeriod < 1 {
		g.CurrentPeriod = 1
	}
	if g.SubAlertLevel == "" {
		g.SubAlertLevel = types.SubAlertNone
	}
	if g.GameStatus == "" {
		g.GameStatus = types.GameStatusNotStarted
	}
	return g
}
