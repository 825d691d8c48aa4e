// Package uiservice holds client-only view state. Nothing here is persisted.
package uiservice

import (
	"slices"
	"sync"
)

// ViewMode selects how the field is shown.
type ViewMode string

const (
	ViewField   ViewMode = "field"
	ViewTactics ViewMode = "tactics"
)

// Modal names used by the app.
const (
	ModalGameSettings = "gameSettings"
	ModalNewGame      = "newGame"
	ModalLoadGame     = "loadGame"
	ModalRoster       = "roster"
	ModalSeasons      = "seasonsTournaments"
	ModalStats        = "gameStats"
	ModalSettings     = "settings"
	ModalGoalLog      = "goalLog"
)

// State is a snapshot of the UI store.
type State struct {
	// Modals is the open modal stack, topmost last.
	Modals           []string `json:"modals"`
	IsDrawingEnabled bool     `json:"isDrawingEnabled"`
	ViewMode         ViewMode `json:"viewMode"`
	SelectedPlayerID string   `json:"selectedPlayerId,omitempty"`
}

func (s State) clone() State {
	s.Modals = slices.Clone(s.Modals)
	return s
}

// Store is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewStore() *Store {
	return &Store{
		state:     State{Modals: []string{}, ViewMode: ViewField},
		listeners: make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
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

// update applies fn and notifies listeners when fn reports a change.
func (s *Store) update(fn func(st *State) bool) {
	s.mu.Lock()
	next := s.state.clone()
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	s.state = next
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next.clone())
	}
}

// OpenModal puts name on top of the stack. A modal that is already open is
// moved to the top rather than stacked twice.
func (s *Store) OpenModal(name string) {
	if name == "" {
		return
	}
	s.update(func(st *State) bool {
		if n := len(st.Modals); n > 0 && st.Modals[n-1] == name {
			return false
		}
		st.Modals = slices.DeleteFunc(st.Modals, func(m string) bool { return m == name })
		st.Modals = append(st.Modals, name)
		return true
	})
}

// CloseModal removes name wherever it is in the stack.
func (s *Store) CloseModal(name string) {
	s.update(func(st *State) bool {
		before := len(st.Modals)
		st.Modals = slices.DeleteFunc(st.Modals, func(m string) bool { return m == name })
		return len(st.Modals) != before
	})
}

// CloseTopModal closes the topmost modal and returns its name, or "" when
// none is open.
func (s *Store) CloseTopModal() string {
	var closed string
	s.update(func(st *State) bool {
		n := len(st.Modals)
		if n == 0 {
			return false
		}
		closed = st.Modals[n-1]
		st.Modals = st.Modals[:n-1]
		return true
	})
	return closed
}

func (s *Store) CloseAll() {
	s.update(func(st *State) bool {
		if len(st.Modals) == 0 {
			return false
		}
		st.Modals = []string{}
		return true
	})
}

func (s *Store) IsOpen(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.state.Modals, name)
}

// TopModal returns the topmost modal, or "" when none is open.
func (s *Store) TopModal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.state.Modals); n > 0 {
		return s.state.Modals[n-1]
	}
	return ""
}

func (s *Store) SetDrawingEnabled(enabled bool) {
	s.update(func(st *State) bool {
		changed := st.IsDrawingEnabled != enabled
		st.IsDrawingEnabled = enabled
		return changed
	})
}

// ToggleDrawing flips drawing mode and returns the new value.
func (s *Store) ToggleDrawing() bool {
	var enabled bool
	s.update(func(st *State) bool {
		st.IsDrawingEnabled = !st.IsDrawingEnabled
		enabled = st.IsDrawingEnabled
		return true
	})
	return enabled
}

// SetViewMode ignores unknown modes.
func (s *Store) SetViewMode(mode ViewMode) {
	if mode != ViewField && mode != ViewTactics {
		return
	}
	s.update(func(st *State) bool {
		changed := st.ViewMode != mode
		st.ViewMode = mode
		return changed
	})
}

// SelectPlayer sets the selected player; "" clears the selection.
func (s *Store) SelectPlayer(id string) {
	s.update(func(st *State) bool {
		changed := st.SelectedPlayerID != id
		st.SelectedPlayerID = id
		return changed
	})
}
