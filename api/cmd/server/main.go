package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chess-moves/api/internal/app"
	"chess-moves/api/internal/config"
	"chess-moves/api/internal/handle"
	"chess-moves/api/internal/httpserver"
	"chess-moves/api/internal/obslog"
	"chess-moves/api/internal/widget"
)

func main() {
	log, err := obslog.InitFromEnv("chess-moves")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	opt := handle.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes(),
		StaticDir:      cfg.StaticDir,
		Checks:         a.Checks,
	}
	if a.History != nil {
		opt.History = a.History
	}
	h := handle.New(a.Service, widget.MustRenderer(), opt)

	// запись ответа ждёт модель
	srv := httpserver.New(":"+cfg.Port, h.Routes(), cfg.RequestTimeout+10*time.Second)
	if err := httpserver.Run(ctx, srv); err != nil {
		log.Error("http", zap.Error(err))
	}
}
