// Package obslog holds the process-wide zap logger.
package obslog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger = zap.NewNop()

// L returns the global logger; a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Set replaces the global logger. Tests use it with zaptest/observer loggers.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

type Options struct {
	Level   string // debug|info|warn|error
	Format  string // json|console
	Caller  bool
	ToFile  bool
	File    string
	Service string
}

// OptionsFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_CALLER, LOG_TO_FILE, LOG_FILE.
func OptionsFromEnv() Options {
	return Options{
		Level:  getenvDefault("LOG_LEVEL", "info"),
		Format: strings.ToLower(getenvDefault("LOG_FORMAT", "json")),
		Caller: strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
		ToFile: strings.EqualFold(getenvDefault("LOG_TO_FILE", "false"), "true"),
		File:   getenvDefault("LOG_FILE", filepath.Join("logs", "chess-moves.log")),
	}
}

// Init builds a logger from opt, installs it globally and returns it.
func Init(opt Options) (*zap.Logger, error) {
	level := parseLevel(opt.Level)

	var enc zapcore.Encoder
	if opt.Format == "console" {
		enc = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level)}

	if opt.ToFile {
		if err := ensureDir(filepath.Dir(opt.File)); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opt.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(f), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	if opt.Caller {
		logger = logger.WithOptions(zap.AddCaller())
	}
	if opt.Service != "" {
		logger = logger.With(zap.String("service", opt.Service))
	}
	Set(logger)
	return logger, nil
}

// InitFromEnv is Init(OptionsFromEnv()) tagged with the service name.
func InitFromEnv(service string) (*zap.Logger, error) {
	opt := OptionsFromEnv()
	opt.Service = service
	return Init(opt)
}

type requestIDKey struct{}

// WithRequestID stores the request id for downstream log fields.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// From returns the global logger annotated with the request id, if any.
func From(ctx context.Context) *zap.Logger {
	if id := RequestID(ctx); id != "" {
		return globalLogger.With(zap.String("request_id", id))
	}
	return globalLogger
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
