package handle

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chess-moves/api/internal/obslog"
	"chess-moves/api/internal/widget"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html.tmpl"))

type indexData struct {
	Title  string
	Widget template.HTML
}

// Index serves the page shell with the widget pre-rendered in its Idle state,
// so the page is usable before widget.wasm has loaded.
func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	html, err := h.renderer.HTML(widget.Idle())
	if err != nil {
		obslog.From(r.Context()).Error("render widget", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, indexData{Title: "Chess Moves", Widget: html}); err != nil {
		obslog.From(r.Context()).Error("render index", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, c := range h.opt.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(c.Name + ": not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
