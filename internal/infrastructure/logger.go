package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LoggerConfig controls the global structured logger.
type LoggerConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, file, both
	FilePath string // required for file and both
}

var (
	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
	logFile    *os.File
)

// InitializeLogger builds the process-wide slog logger and installs it as
// the slog default. Safe to call more than once; only the first call wins.
func InitializeLogger(cfg LoggerConfig) (*slog.Logger, error) {
	loggerOnce.Do(func() {
		logger, loggerErr = buildLogger(cfg)
		if loggerErr == nil {
			slog.SetDefault(logger)
		}
	})
	return logger, loggerErr
}

// MustInitializeLogger is InitializeLogger that panics on failure. Intended
// for main functions where a missing log sink is fatal anyway.
func MustInitializeLogger(cfg LoggerConfig) *slog.Logger {
	l, err := InitializeLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("logger initialization failed: %v", err))
	}
	return l
}

// GetLogger returns the initialized logger, or the slog default when
// InitializeLogger has not run yet.
func GetLogger() *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// CloseLogger closes the log file if one was opened.
func CloseLogger() error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// ResetLoggerForTesting clears the global state so tests can initialize
// with their own configuration.
func ResetLoggerForTesting() {
	loggerOnce = sync.Once{}
	logger = nil
	loggerErr = nil
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func buildLogger(cfg LoggerConfig) (*slog.Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "file":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logFile = f
		out = f
	case "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	default:
		return nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(&traceHandler{inner: handler}), nil
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// traceHandler decorates every record with the trace_id carried by the
// context, so request logs correlate without each call site passing it.
type traceHandler struct {
	inner slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		record.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.inner.Handle(ctx, record)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{inner: h.inner.WithGroup(name)}
}
