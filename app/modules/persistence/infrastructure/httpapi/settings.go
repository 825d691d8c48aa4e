package persistencehttp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matchops/matchops/app/shared/types"
)

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ReadSettings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch types.SettingsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handlers) resetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.ResetSettings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handlers) listStorageKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.StorageKeys(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *Handlers) getStorageItem(w http.ResponseWriter, r *http.Request) {
	value, ok, err := h.service.GetStorageItem(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handlers) setStorageItem(w http.ResponseWriter, r *http.Request) {
	var value json.RawMessage
	if !decodeJSON(w, r, &value) {
		return
	}
	if err := h.service.SetStorageItem(r.Context(), chi.URLParam(r, "key"), value); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeStorageItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveStorageItem(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
