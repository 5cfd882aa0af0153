// Package app wires configuration into the moves service and its optional
// collaborators. Both binaries build through it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chess-moves/api/internal/cache"
	"chess-moves/api/internal/config"
	"chess-moves/api/internal/handle"
	"chess-moves/api/internal/moves"
	"chess-moves/api/internal/moves/gemini"
	"chess-moves/api/internal/obslog"
	"chess-moves/api/internal/store"
)

type App struct {
	Service *moves.Service
	History *store.AnalysisRepo
	Checks  []handle.Check

	closers []func() error
}

// Build connects every configured backend. Redis and postgres are optional:
// empty REDIS_URL / DATABASE_URL leave them disabled.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	log := obslog.L()
	a := &App{}

	eng, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, eng.Close)

	opt := moves.Options{
		MaxAttempts:    cfg.GeminiMaxAttempts,
		Backoff:        cfg.GeminiRetryBackoff,
		AttemptTimeout: cfg.RequestTimeout,
		HistoryMaxAge:  cfg.HistoryMaxAge,
	}
	if cfg.GeminiRPS > 0 {
		opt.Limiter = rate.NewLimiter(rate.Limit(cfg.GeminiRPS), cfg.GeminiBurst)
	}

	if cfg.RedisURL != "" {
		c, err := cache.Open(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		opt.Cache = c
		a.closers = append(a.closers, c.Close)
		a.Checks = append(a.Checks, handle.Check{Name: "redis", Ping: c.Ping})
		log.Info("result cache enabled", zap.Duration("ttl", cfg.CacheTTL))
	}

	if cfg.DatabaseURL != "" {
		db, err := openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := store.NewAnalysisRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.History = repo
		opt.History = repo
		a.Checks = append(a.Checks, handle.Check{Name: "db", Ping: db.PingContext})

		sched, err := NewPurgeScheduler(cfg.HistoryPurgeSpec, cfg.HistoryRetention, repo)
		if err != nil {
			a.Close()
			return nil, err
		}
		sched.Start()
		a.closers = append(a.closers, func() error { sched.Stop(); return nil })
		log.Info("analysis history enabled", zap.String("db", safeDSNSummary(cfg.DatabaseURL)))
	}

	a.Service = moves.NewService(eng, opt)
	log.Info("moves service ready",
		zap.String("engine", eng.Name()),
		zap.String("model", eng.GetModel()),
		zap.Int("max_attempts", cfg.GeminiMaxAttempts),
	)
	return a, nil
}

// Close releases backends in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// safeDSNSummary drops credentials from a DSN for logging.
func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	return fmt.Sprintf("host=%s db=%s user=%s", u.Host, strings.TrimPrefix(u.Path, "/"), u.User.Username())
}
