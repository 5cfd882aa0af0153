package handle

import (
	"net/http"
	"strings"
)

// Routes builds the service mux wrapped in request-id and access-log middleware.
func (h *Handle) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("/api/moves", h.Moves)
	mux.HandleFunc("GET /api/analyses", h.Analyses)
	if dir := strings.TrimSpace(h.opt.StaticDir); dir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}
	return RequestID(AccessLog(mux))
}
