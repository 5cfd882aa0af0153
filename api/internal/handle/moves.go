package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chess-moves/api/internal/moves/types"
	"chess-moves/api/internal/obslog"
)

func (h *Handle) Moves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, types.CodeInvalidInput, "POST only")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opt.MaxBodyBytes)
	var req types.MovesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, types.CodeInvalidInput, "image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, types.CodeInvalidInput, "bad json: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	out, err := h.svc.BestMoves(ctx, req)
	if err != nil {
		code := types.CodeOf(err)
		msg := err.Error()
		var de *types.DomainError
		if !errors.As(err, &de) {
			msg = types.MsgModelFailure
		}
		obslog.From(r.Context()).Info("moves request failed", zap.String("code", code), zap.Error(err))
		writeError(w, statusOf(code), code, msg)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// deadline reads X-Request-Timeout or ?timeoutSec= (seconds), falling back to the configured default.
func (h *Handle) deadline(r *http.Request) time.Duration {
	d := h.opt.RequestTimeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	}
	return d
}
