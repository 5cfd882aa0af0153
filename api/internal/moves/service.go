package moves

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chess-moves/api/internal/moves/types"
	"chess-moves/api/internal/obslog"
	"chess-moves/api/internal/util"
)

type Options struct {
	// MaxAttempts bounds model calls per request; values below 1 mean one attempt.
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// AttemptTimeout caps a single model call; 0 leaves only the caller's deadline.
	AttemptTimeout time.Duration

	Limiter *rate.Limiter
	Cache   Cache
	History History
	// HistoryMaxAge bounds how old a history row may be to answer a request; 0 means any age.
	HistoryMaxAge time.Duration
}

// Service turns a board image into validated best-move suggestions.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	model Model
	opt   Options
}

func NewService(m Model, opt Options) *Service {
	if opt.MaxAttempts < 1 {
		opt.MaxAttempts = 1
	}
	if opt.Backoff <= 0 {
		opt.Backoff = 300 * time.Millisecond
	}
	return &Service{model: m, opt: opt}
}

func (s *Service) Engine() string { return s.model.Name() }
func (s *Service) Model() string  { return s.model.GetModel() }

// BestMoves validates the payload, asks the model once per attempt and returns
// the strictly validated result. Errors are *types.DomainError.
func (s *Service) BestMoves(ctx context.Context, in types.MovesRequest) (types.MoveResult, error) {
	if strings.TrimSpace(in.ImageBase64) == "" {
		return types.MoveResult{}, types.InvalidInput("imageBase64 is required")
	}
	if in.MIMEType != "" && !util.IsImageMIME(in.MIMEType) {
		return types.MoveResult{}, types.InvalidInput("mimeType must be an image/* type")
	}
	data, hint, err := util.DecodeBase64MaybeDataURL(in.ImageBase64)
	if err != nil {
		return types.MoveResult{}, types.InvalidInput("imageBase64 is not valid base64 image data")
	}

	img := Image{MIMEType: util.PickMIME(in.MIMEType, hint, data), Data: data}
	hash := ImageHash(data)
	log := obslog.From(ctx).With(
		zap.String("engine", s.model.Name()),
		zap.String("model", s.model.GetModel()),
		zap.String("image_hash", hash[:16]),
		zap.String("mime", img.MIMEType),
	)

	key := CacheKey(s.model.GetModel(), hash)
	if s.opt.Cache != nil {
		if res, ok, err := s.opt.Cache.Get(ctx, key); err != nil {
			log.Warn("cache get failed", zap.Error(err))
		} else if ok {
			log.Debug("cache hit")
			return res, nil
		}
	}
	if res, ok := s.recall(ctx, log, key, hash); ok {
		return res, nil
	}

	start := time.Now()
	text, err := s.generate(ctx, log, img)
	if err != nil {
		log.Error("model call failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return types.MoveResult{}, err
	}

	res, err := DecodeModelText(text)
	if err != nil {
		log.Warn("bad model response", zap.Error(errors.Unwrap(err)), zap.String("raw", util.Truncate(text, 512)))
		return types.MoveResult{}, err
	}
	log.Info("moves suggested",
		zap.Duration("latency", time.Since(start)),
		zap.Bool("white", res.WhiteBestMove != nil),
		zap.Bool("black", res.BlackBestMove != nil),
	)

	s.remember(ctx, log, key, hash, img.MIMEType, res)
	return res, nil
}

// DecodeModelText strips Markdown fences and validates the JSON payload.
func DecodeModelText(text string) (types.MoveResult, error) {
	return types.ParseMoveResult(util.StripCodeFences(text))
}

func ImageHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func CacheKey(model, imageHash string) string {
	return "moves:" + model + ":" + imageHash
}

func (s *Service) generate(ctx context.Context, log *zap.Logger, img Image) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opt.MaxAttempts; attempt++ {
		if s.opt.Limiter != nil {
			if err := s.opt.Limiter.Wait(ctx); err != nil {
				return "", limiterFailure(ctx, err)
			}
		}

		actx, cancel := ctx, context.CancelFunc(func() {})
		if s.opt.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, s.opt.AttemptTimeout)
		}
		text, err := s.model.Generate(actx, Prompt, img)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == s.opt.MaxAttempts || !retryable(ctx, err) {
			break
		}
		log.Warn("model call failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(time.Duration(attempt) * s.opt.Backoff):
		case <-ctx.Done():
			return "", types.ModelFailure(ctx.Err())
		}
	}
	return "", types.ModelFailure(lastErr)
}

// limiterFailure classifies a failed limiter wait. Wait refuses up front when the
// next token lies past the deadline, so that case is a timeout too.
func limiterFailure(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return types.ModelFailure(cerr)
	}
	if _, ok := ctx.Deadline(); ok {
		return types.ModelFailure(fmt.Errorf("rate limit: %w: %w", err, context.DeadlineExceeded))
	}
	return types.ModelFailure(err)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrBlocked) && !errors.Is(err, context.Canceled)
}

// recall answers from history when redis missed, and warms the cache on a hit.
func (s *Service) recall(ctx context.Context, log *zap.Logger, key, hash string) (types.MoveResult, bool) {
	if s.opt.History == nil {
		return types.MoveResult{}, false
	}
	a, err := s.opt.History.FindByHash(ctx, hash, s.model.Name(), s.model.GetModel(), s.opt.HistoryMaxAge)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			log.Warn("history lookup failed", zap.Error(err))
		}
		return types.MoveResult{}, false
	}
	log.Debug("history hit", zap.Int64("analysis_id", a.ID))
	if s.opt.Cache != nil {
		if err := s.opt.Cache.Set(ctx, key, a.Result); err != nil {
			log.Warn("cache set failed", zap.Error(err))
		}
	}
	return a.Result, true
}

func (s *Service) remember(ctx context.Context, log *zap.Logger, key, hash, mime string, res types.MoveResult) {
	if s.opt.Cache != nil {
		if err := s.opt.Cache.Set(ctx, key, res); err != nil {
			log.Warn("cache set failed", zap.Error(err))
		}
	}
	if s.opt.History != nil {
		_, err := s.opt.History.Insert(ctx, types.Analysis{
			ImageHash: hash,
			MIMEType:  mime,
			Engine:    s.model.Name(),
			Model:     s.model.GetModel(),
			Result:    res,
		})
		if err != nil {
			log.Warn("history insert failed", zap.Error(err))
		}
	}
}
