package handle

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"chess-moves/api/internal/obslog"
)

// Analyses lists recent successful analyses, newest first.
func (h *Handle) Analyses(w http.ResponseWriter, r *http.Request) {
	if h.opt.History == nil {
		writeError(w, http.StatusNotFound, "not_found", "history is disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	items, err := h.opt.History.Recent(r.Context(), limit)
	if err != nil {
		obslog.From(r.Context()).Error("history read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "history is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
