// Package persistencehttp exposes the persistence store over a chi router.
package persistencehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	kvservice "github.com/matchops/matchops/app/modules/kvstore/application"
	persistenceservice "github.com/matchops/matchops/app/modules/persistence/application"
	"github.com/matchops/matchops/app/shared/types"
	"go.opentelemetry.io/otel/trace"
)

// maxBodyBytes bounds request bodies; backups are the largest payloads.
const maxBodyBytes = 32 << 20

// Middleware wraps a handler.
type Middleware = func(http.Handler) http.Handler

// Handlers serves the persistence API.
type Handlers struct {
	service Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates Handlers.
func NewHandlers(service Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// Routes builds the API router. authenticate guards every route and
// authorizeWrite additionally guards mutations; nil skips either check.
func (h *Handlers) Routes(authenticate, authorizeWrite Middleware) chi.Router {
	r := chi.NewRouter()
	if authenticate != nil {
		r.Use(authenticate)
	}
	write := func(r chi.Router) chi.Router {
		if authorizeWrite == nil {
			return r
		}
		return r.With(authorizeWrite)
	}

	r.Get("/games", h.listGames)
	r.Get("/games/{id}", h.getGame)
	write(r).Post("/games", h.createGame)
	write(r).Put("/games/{id}", h.saveGame)
	write(r).Delete("/games/{id}", h.deleteGame)
	write(r).Post("/games/{id}/duplicate", h.duplicateGame)

	r.Get("/roster", h.listRoster)
	write(r).Put("/roster", h.replaceRoster)
	write(r).Post("/roster/players", h.addPlayer)
	write(r).Patch("/roster/players/{id}", h.updatePlayer)
	write(r).Delete("/roster/players/{id}", h.removePlayer)

	r.Get("/seasons", h.listSeasons)
	write(r).Post("/seasons", h.addSeason)
	write(r).Put("/seasons/{id}", h.updateSeason)
	write(r).Delete("/seasons/{id}", h.deleteSeason)

	r.Get("/tournaments", h.listTournaments)
	write(r).Post("/tournaments", h.addTournament)
	write(r).Put("/tournaments/{id}", h.updateTournament)
	write(r).Delete("/tournaments/{id}", h.deleteTournament)

	r.Get("/settings", h.getSettings)
	write(r).Patch("/settings", h.updateSettings)
	write(r).Delete("/settings", h.resetSettings)

	r.Get("/storage", h.listStorageKeys)
	r.Get("/storage/{key}", h.getStorageItem)
	write(r).Put("/storage/{key}", h.setStorageItem)
	write(r).Delete("/storage/{key}", h.removeStorageItem)

	r.Get("/backup", h.createBackup)
	write(r).Post("/import", h.importBackup)
	write(r).Post("/restore", h.restoreBackup)
	write(r).Post("/repair/is-played", h.repairIsPlayed)

	r.Get("/stats", h.playerStats)
	r.Get("/stats/chart.png", h.goalsChart)
	r.Get("/export.xlsx", h.exportWorkbook)

	return r
}

// writeError maps service errors to status codes.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, persistenceservice.ErrGameNotFound),
		errors.Is(err, persistenceservice.ErrPlayerNotFound),
		errors.Is(err, persistenceservice.ErrSeasonNotFound),
		errors.Is(err, persistenceservice.ErrTournamentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, persistenceservice.ErrVersionConflict),
		errors.Is(err, persistenceservice.ErrGameExists):
		status = http.StatusConflict
	case errors.Is(err, types.ErrConflictingCompetition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, persistenceservice.ErrUnknownBackupShape),
		errors.Is(err, persistenceservice.ErrInvalidBackup),
		errors.Is(err, persistenceservice.ErrMissingPlayerID),
		errors.Is(err, types.ErrMissingGameID):
		status = http.StatusBadRequest
	case errors.Is(err, kvservice.ErrQuotaExceeded):
		status = http.StatusInsufficientStorage
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return nil, false
	}
	return data, true
}

// expectedVersion reads the If-Match header, falling back to the body version.
func expectedVersion(r *http.Request, bodyVersion int) (int, error) {
	header := r.Header.Get("If-Match")
	if header == "" {
		return bodyVersion, nil
	}
	v, err := strconv.Atoi(header)
	if err != nil {
		return 0, fmt.Errorf("invalid If-Match version %q", header)
	}
	return v, nil
}

func statsFilter(r *http.Request) persistenceservice.StatsFilter {
	q := r.URL.Query()
	include, _ := strconv.ParseBool(q.Get("includeUnplayed"))
	return persistenceservice.StatsFilter{
		SeasonID:        q.Get("seasonId"),
		TournamentID:    q.Get("tournamentId"),
		IncludeUnplayed: include,
	}
}
