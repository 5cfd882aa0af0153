package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chess-moves/api/internal/app"
	"chess-moves/api/internal/config"
	"chess-moves/api/internal/handle"
	"chess-moves/api/internal/httpserver"
	"chess-moves/api/internal/obslog"
	"chess-moves/api/internal/telegram"
)

func main() {
	log, err := obslog.InitFromEnv("chess-moves-bot")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:     bot,
		Service: a.Service,
		Model:   cfg.GeminiModel,
		Timeout: cfg.RequestTimeout,
	}

	// ListenForWebhook регистрирует обработчик на DefaultServeMux, поэтому healthz там же.
	health := handle.New(a.Service, nil, handle.Options{Checks: a.Checks})
	http.HandleFunc("/healthz", health.Healthz)

	// nil handler: DefaultServeMux
	srv := httpserver.New("0.0.0.0:"+cfg.Port, nil, 30*time.Second)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, srv, bot, r, webhookURL)
	} else {
		startPollingMode(ctx, srv, bot, r)
	}
	r.Wait()
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	log := obslog.L()
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("set webhook", zap.Error(err))
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					log.Info("webhook updates channel closed")
					return
				}
				r.HandleUpdate(upd)
			}
		}
	}()

	log.Info("webhook registered", zap.String("path", path))
	if err := httpserver.Run(ctx, srv); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}

func startPollingMode(ctx context.Context, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router) {
	log := obslog.L()
	// healthz нужен платформе и в режиме polling
	go func() {
		if err := httpserver.Run(ctx, srv); err != nil {
			log.Error("health server", zap.Error(err))
		}
	}()

	runPolling(ctx, bot, r.HandleUpdate)
}
