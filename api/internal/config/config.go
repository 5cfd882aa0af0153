package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	GeminiAPIKey       string
	GeminiModel        string
	GeminiMaxAttempts  int
	GeminiRetryBackoff time.Duration
	GeminiRPS          float64
	GeminiBurst        int

	RequestTimeout time.Duration
	MaxImageBytes  int64
	StaticDir      string

	RedisURL string
	CacheTTL time.Duration

	DatabaseURL      string
	HistoryRetention time.Duration
	HistoryMaxAge    time.Duration
	HistoryPurgeSpec string

	TelegramBotToken string
	WebhookURL       string
}

var ErrMissingAPIKey = errors.New("missing required env GEMINI_API_KEY")

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8000"),

		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiMaxAttempts:  getEnvAsInt("GEMINI_MAX_ATTEMPTS", 1),
		GeminiRetryBackoff: getEnvDuration("GEMINI_RETRY_BACKOFF", 300*time.Millisecond),
		GeminiRPS:          getEnvAsFloat("GEMINI_RPS", 0),
		GeminiBurst:        getEnvAsInt("GEMINI_BURST", 1),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
		MaxImageBytes:  int64(getEnvAsInt("MAX_IMAGE_BYTES", 10<<20)),
		StaticDir:      getEnv("STATIC_DIR", "web/static"),

		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		CacheTTL: getEnvDuration("CACHE_TTL", 24*time.Hour),

		DatabaseURL:      resolveDSN(),
		HistoryRetention: getEnvDuration("HISTORY_RETENTION", 720*time.Hour),
		HistoryMaxAge:    getEnvDuration("HISTORY_MAX_AGE", 30*24*time.Hour),
		HistoryPurgeSpec: getEnv("HISTORY_PURGE_SPEC", "@daily"),

		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		WebhookURL:       strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be > 0, got %d", c.MaxImageBytes)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0, got %s", c.RequestTimeout)
	}
	if c.GeminiMaxAttempts < 1 {
		c.GeminiMaxAttempts = 1
	}
	if c.GeminiBurst < 1 {
		c.GeminiBurst = 1
	}
	return nil
}

// MaxBodyBytes is the request body cap: base64 grows data by 4/3, plus room for the JSON envelope.
func (c *Config) MaxBodyBytes() int64 {
	return c.MaxImageBytes/3*4 + 4<<10
}

// resolveDSN prefers DATABASE_URL and falls back to POSTGRES_* parts.
func resolveDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn
	}
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     host + ":" + getEnv("POSTGRES_PORT", "5432"),
		Path:     "/" + getEnv("POSTGRES_DB", "chess_moves"),
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnv(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvAsFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(k, ""), 64); err == nil {
		return v
	}
	return def
}

// getEnvDuration понимает "90s"/"2m" и голое число секунд.
func getEnvDuration(k string, def time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
