package moves

import (
	"context"
	"errors"
	"time"

	"chess-moves/api/internal/moves/types"
)

var (
	// ErrBlocked marks a response withheld by provider safety filters. Not retried.
	ErrBlocked = errors.New("response blocked by safety filters")
	// ErrEmptyResponse marks a reply without any text part.
	ErrEmptyResponse = errors.New("empty model response")
)

// Image is inline binary data sent alongside the prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// Model is a multimodal text generator: one prompt and one image in, free text out.
type Model interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, prompt string, img Image) (string, error)
}

// Cache stores validated results keyed by model and image hash.
type Cache interface {
	Get(ctx context.Context, key string) (types.MoveResult, bool, error)
	Set(ctx context.Context, key string, res types.MoveResult) error
}

// History records successful analyses and serves them back as a durable cache.
type History interface {
	Insert(ctx context.Context, a types.Analysis) (int64, error)
	// FindByHash returns the newest analysis of the image made by engine/model,
	// or types.ErrNotFound. maxAge <= 0 ignores age.
	FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*types.Analysis, error)
}
