package persistencehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matchops/matchops/app/shared/types"
)

type playerPatch struct {
	Name         *string `json:"name"`
	Nickname     *string `json:"nickname"`
	JerseyNumber *string `json:"jerseyNumber"`
	IsActive     *bool   `json:"isActive"`
	IsGoalie     *bool   `json:"isGoalie"`
	Notes        *string `json:"notes"`
	Version      int     `json:"version"`
}

func (p playerPatch) apply(player *types.Player) {
	if p.Name != nil {
		player.Name = *p.Name
	}
	if p.Nickname != nil {
		player.Nickname = *p.Nickname
	}
	if p.JerseyNumber != nil {
		player.JerseyNumber = *p.JerseyNumber
	}
	if p.IsActive != nil {
		player.IsActive = *p.IsActive
	}
	if p.IsGoalie != nil {
		player.IsGoalie = *p.IsGoalie
	}
	if p.Notes != nil {
		player.Notes = *p.Notes
	}
}

func (h *Handlers) listRoster(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListPlayers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) replaceRoster(w http.ResponseWriter, r *http.Request) {
	var players []types.Player
	if !decodeJSON(w, r, &players) {
		return
	}
	if err := h.service.SaveMasterRoster(r.Context(), players); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.service.ListPlayers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) addPlayer(w http.ResponseWriter, r *http.Request) {
	var player types.Player
	if !decodeJSON(w, r, &player) {
		return
	}
	saved, err := h.service.AddPlayer(r.Context(), player)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handlers) updatePlayer(w http.ResponseWriter, r *http.Request) {
	var patch playerPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	version, err := expectedVersion(r, patch.Version)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	saved, err := h.service.UpdatePlayer(r.Context(), chi.URLParam(r, "id"), version, patch.apply)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handlers) removePlayer(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemovePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
