package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chess-moves/api/internal/moves/types"
	"chess-moves/api/internal/widget"
)

type MovesService interface {
	BestMoves(ctx context.Context, in types.MovesRequest) (types.MoveResult, error)
}

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]types.Analysis, error)
}

// Check is a named readiness check reported by /healthz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// DefaultRequestTimeout bounds one /api/moves call when Options leave it unset.
const DefaultRequestTimeout = 120 * time.Second

type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	StaticDir      string
	History        HistoryReader
	Checks         []Check
}

type Handle struct {
	svc      MovesService
	renderer *widget.Renderer
	opt      Options
}

func New(svc MovesService, renderer *widget.Renderer, opt Options) *Handle {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = DefaultRequestTimeout
	}
	if opt.MaxBodyBytes <= 0 {
		opt.MaxBodyBytes = 14 << 20
	}
	if renderer == nil {
		renderer = widget.MustRenderer()
	}
	return &Handle{svc: svc, renderer: renderer, opt: opt}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg, Code: errCode})
}

// statusOf maps a DomainError code to the HTTP status of /api/moves.
func statusOf(code string) int {
	switch code {
	case types.CodeInvalidInput:
		return http.StatusBadRequest
	case types.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
