package persistencehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matchops/matchops/app/shared/types"
)

func (h *Handlers) listSeasons(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListSeasons(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) addSeason(w http.ResponseWriter, r *http.Request) {
	var season types.Season
	if !decodeJSON(w, r, &season) {
		return
	}
	saved, err := h.service.AddSeason(r.Context(), season)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// updateSeason replaces every field but the id with the request body.
func (h *Handlers) updateSeason(w http.ResponseWriter, r *http.Request) {
	var body types.Season
	if !decodeJSON(w, r, &body) {
		return
	}
	version, err := expectedVersion(r, body.Version)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	saved, err := h.service.UpdateSeason(r.Context(), chi.URLParam(r, "id"), version, func(s *types.Season) {
		id, v := s.ID, s.Version
		*s = body.Clone()
		s.ID, s.Version = id, v
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handlers) deleteSeason(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSeason(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listTournaments(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListTournaments(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) addTournament(w http.ResponseWriter, r *http.Request) {
	var tournament types.Tournament
	if !decodeJSON(w, r, &tournament) {
		return
	}
	saved, err := h.service.AddTournament(r.Context(), tournament)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handlers) updateTournament(w http.ResponseWriter, r *http.Request) {
	var body types.Tournament
	if !decodeJSON(w, r, &body) {
		return
	}
	version, err := expectedVersion(r, body.Version)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	saved, err := h.service.UpdateTournament(r.Context(), chi.URLParam(r, "id"), version, func(t *types.Tournament) {
		id, v := t.ID, t.Version
		*t = body.Clone()
		t.ID, t.Version = id, v
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handlers) deleteTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTournament(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
