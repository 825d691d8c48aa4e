// Package types defines the documents exchanged between the storage layers,
// the session store and backups. JSON names follow the app's document format.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrConflictingCompetition is returned when a game links to both a season and a tournament.
var ErrConflictingCompetition = errors.New("game cannot belong to both a season and a tournament")

// ErrMissingGameID is returned when a game is written without an id.
var ErrMissingGameID = errors.New("game id is required")

// HomeOrAway marks which side the coached team plays.
type HomeOrAway string

const (
	Home HomeOrAway = "home"
	Away HomeOrAway = "away"
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	GameStatusNotStarted GameStatus = "notStarted"
	GameStatusInProgress GameStatus = "inProgress"
	GameStatusPeriodEnd  GameStatus = "periodEnd"
	GameStatusGameEnd    GameStatus = "gameEnd"
)

// SubAlertLevel signals how close the next substitution is.
type SubAlertLevel string

const (
	SubAlertNone    SubAlertLevel = "none"
	SubAlertWarning SubAlertLevel = "warning"
	SubAlertDue     SubAlertLevel = "due"
)

// GameEventType enumerates the kinds of timeline events.
type GameEventType string

const (
	EventGoal         GameEventType = "goal"
	EventOpponentGoal GameEventType = "opponentGoal"
	EventSubstitution GameEventType = "substitution"
	EventPeriodEnd    GameEventType = "periodEnd"
	EventGameEnd      GameEventType = "gameEnd"
)

// GameEvent is one entry of a game's timeline. Player references are ids only.
type GameEvent struct {
	ID          string        `json:"id"`
	Type        GameEventType `json:"type"`
	Time        int           `json:"time"`
	Period      int           `json:"period,omitempty"`
	ScorerID    string        `json:"scorerId,omitempty"`
	AssisterID  string        `json:"assisterId,omitempty"`
	PlayerInID  string        `json:"playerInId,omitempty"`
	PlayerOutID string        `json:"playerOutId,omitempty"`
}

// Point is a relative position on the field, both axes in [0,1].
type Point struct {
	RelX float64 `json:"relX"`
	RelY float64 `json:"relY"`
}

// Opponent is an opposing player marker on the field.
type Opponent struct {
	ID   string  `json:"id"`
	RelX float64 `json:"relX"`
	RelY float64 `json:"relY"`
}

// IntervalLog records a completed substitution interval.
type IntervalLog struct {
	Period    int `json:"period"`
	Duration  int `json:"duration"`
	Timestamp int `json:"timestamp"`
}

// GameState is the full document of one game.
type GameState struct {
	GameID       string `json:"gameId"`
	TeamName     string `json:"teamName"`
	OpponentName string `json:"opponentName"`
	GameDate     string `json:"gameDate"`
	GameLocation string `json:"gameLocation,omitempty"`
	GameTime     string `json:"gameTime,omitempty"`

	HomeScore  int        `json:"homeScore"`
	AwayScore  int        `json:"awayScore"`
	HomeOrAway HomeOrAway `json:"homeOrAway"`

	NumberOfPeriods       int        `json:"numberOfPeriods"`
	PeriodDurationMinutes int        `json:"periodDurationMinutes"`
	CurrentPeriod         int        `json:"currentPeriod"`
	GameStatus            GameStatus `json:"gameStatus"`

	TimeElapsedInSeconds           int           `json:"timeElapsedInSeconds"`
	IsTimerRunning                 bool          `json:"isTimerRunning"`
	SubIntervalMinutes             int           `json:"subIntervalMinutes"`
	NextSubDueTimeSeconds          int           `json:"nextSubDueTimeSeconds"`
	SubAlertLevel                  SubAlertLevel `json:"subAlertLevel"`
	LastSubConfirmationTimeSeconds int           `json:"lastSubConfirmationTimeSeconds"`
	CompletedIntervalDurations     []IntervalLog `json:"completedIntervalDurations"`

	PlayersOnField    []Player    `json:"playersOnField"`
	AvailablePlayers  []Player    `json:"availablePlayers"`
	SelectedPlayerIDs []string    `json:"selectedPlayerIds"`
	Opponents         []Opponent  `json:"opponents"`
	Drawings          [][]Point   `json:"drawings"`
	GameEvents        []GameEvent `json:"gameEvents"`
	GameNotes         string      `json:"gameNotes"`
	ShowPlayerNames   bool        `json:"showPlayerNames"`

	SeasonID     string `json:"seasonId,omitempty"`
	TournamentID string `json:"tournamentId,omitempty"`

	// IsPlayed is nil when a stored document predates the flag.
	IsPlayed *bool `json:"isPlayed,omitempty"`
}

// Validate checks the write-time constraints of a game document.
func (g GameState) Validate() error {
	if g.GameID == "" {
		return ErrMissingGameID
	}
	if g.SeasonID != "" && g.TournamentID != "" {
		return fmt.Errorf("game %s: %w", g.GameID, ErrConflictingCompetition)
	}
	return nil
}

// Played reports the game's played flag, treating a missing flag as played.
func (g GameState) Played() bool {
	return g.IsPlayed == nil || *g.IsPlayed
}

// Clone returns a deep copy that shares no slices or pointers with g.
func (g GameState) Clone() GameState {
	out := g
	out.CompletedIntervalDurations = cloneSlice(g.CompletedIntervalDurations)
	out.PlayersOnField = ClonePlayers(g.PlayersOnField)
	out.AvailablePlayers = ClonePlayers(g.AvailablePlayers)
	out.SelectedPlayerIDs = cloneSlice(g.SelectedPlayerIDs)
	out.Opponents = cloneSlice(g.Opponents)
	out.GameEvents = cloneSlice(g.GameEvents)
	if g.Drawings != nil {
		out.Drawings = make([][]Point, len(g.Drawings))
		for i, stroke := range g.Drawings {
			out.Drawings[i] = cloneSlice(stroke)
		}
	}
	if g.IsPlayed != nil {
		played := *g.IsPlayed
		out.IsPlayed = &played
	}
	return out
}

// CloneGames deep-copies a saved games collection.
func CloneGames(games map[string]GameState) map[string]GameState {
	if games == nil {
		return nil
	}
	out := make(map[string]GameState, len(games))
	for id, g := range games {
		out[id] = g.Clone()
	}
	return out
}

// DecodeGame parses a game document.
func DecodeGame(raw json.RawMessage) (GameState, error) {
	var g GameState
	if err := json.Unmarshal(raw, &g); err != nil {
		return GameState{}, fmt.Errorf("failed to decode game: %w", err)
	}
	return g, nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
