package persistencehttp

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	persistenceservice "github.com/matchops/matchops/app/modules/persistence/application"
)

func (h *Handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.CreateBackup(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("matchops-backup-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(data)
}

func (h *Handlers) importBackup(w http.ResponseWriter, r *http.Request) {
	mode, err := persistenceservice.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	result, err := h.service.ImportBackup(r.Context(), data, mode)
	h.writeImportResult(w, r, result, err)
}

func (h *Handlers) restoreBackup(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	result, err := h.service.RestoreFromBackup(r.Context(), data)
	h.writeImportResult(w, r, result, err)
}

// writeImportResult reports partial imports with 207 so callers see the per-entity errors.
func (h *Handlers) writeImportResult(w http.ResponseWriter, r *http.Request, result persistenceservice.ImportResult, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

func (h *Handlers) repairIsPlayed(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RepairMissingIsPlayed(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) playerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.PlayerStats(r.Context(), statsFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) goalsChart(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.GoalsChart(r.Context(), statsFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *Handlers) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportWorkbook(r.Context(), &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="matchops.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}
