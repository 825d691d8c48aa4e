package persistencehttp

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	persistenceservice "github.com/matchops/matchops/app/modules/persistence/application"
	"github.com/matchops/matchops/app/shared/types"
)

type gameSetupRequest struct {
	GameID                string           `json:"gameId"`
	TeamName              string           `json:"teamName"`
	OpponentName          string           `json:"opponentName"`
	GameDate              string           `json:"gameDate"`
	GameTime              string           `json:"gameTime"`
	GameLocation          string           `json:"gameLocation"`
	HomeOrAway            types.HomeOrAway `json:"homeOrAway"`
	NumberOfPeriods       int              `json:"numberOfPeriods"`
	PeriodDurationMinutes int              `json:"periodDurationMinutes"`
	SubIntervalMinutes    int              `json:"subIntervalMinutes"`
	SeasonID              string           `json:"seasonId"`
	TournamentID          string           `json:"tournamentId"`
	AvailablePlayers      []types.Player   `json:"availablePlayers"`
	IsPlayed              *bool            `json:"isPlayed"`
}

type gameSummary struct {
	GameID       string           `json:"gameId"`
	TeamName     string           `json:"teamName"`
	OpponentName string           `json:"opponentName"`
	GameDate     string           `json:"gameDate"`
	HomeScore    int              `json:"homeScore"`
	AwayScore    int              `json:"awayScore"`
	GameStatus   types.GameStatus `json:"gameStatus"`
	SeasonID     string           `json:"seasonId,omitempty"`
	TournamentID string           `json:"tournamentId,omitempty"`
	IsPlayed     bool             `json:"isPlayed"`
}

func (h *Handlers) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListGames(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]gameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, gameSummary{
			GameID:       g.GameID,
			TeamName:     g.TeamName,
			OpponentName: g.OpponentName,
			GameDate:     g.GameDate,
			HomeScore:    g.HomeScore,
			AwayScore:    g.AwayScore,
			GameStatus:   g.GameStatus,
			SeasonID:     g.SeasonID,
			TournamentID: g.TournamentID,
			IsPlayed:     g.Played(),
		})
	}
	// Newest first, then by id for a stable order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameDate != out[j].GameDate {
			return out[i].GameDate > out[j].GameDate
		}
		return out[i].GameID < out[j].GameID
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.LoadGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handlers) createGame(w http.ResponseWriter, r *http.Request) {
	var req gameSetupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	game, err := h.service.CreateGame(r.Context(), persistenceservice.GameSetup{
		GameID:                req.GameID,
		TeamName:              req.TeamName,
		OpponentName:          req.OpponentName,
		GameDate:              req.GameDate,
		GameTime:              req.GameTime,
		GameLocation:          req.GameLocation,
		HomeOrAway:            req.HomeOrAway,
		NumberOfPeriods:       req.NumberOfPeriods,
		PeriodDurationMinutes: req.PeriodDurationMinutes,
		SubIntervalMinutes:    req.SubIntervalMinutes,
		SeasonID:              req.SeasonID,
		TournamentID:          req.TournamentID,
		AvailablePlayers:      req.AvailablePlayers,
		IsPlayed:              req.IsPlayed,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *Handlers) saveGame(w http.ResponseWriter, r *http.Request) {
	var game types.GameState
	if !decodeJSON(w, r, &game) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.SaveGame(r.Context(), id, game); err != nil {
		h.writeError(w, r, err)
		return
	}
	game.GameID = id
	writeJSON(w, http.StatusOK, game)
}

func (h *Handlers) deleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) duplicateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewID string `json:"newId"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	game, err := h.service.DuplicateGame(r.Context(), chi.URLParam(r, "id"), req.NewID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}
