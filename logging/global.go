// Package logging wires log/slog for the lookup front end: a console handler plus
// a JSON handler over weekly rotating files, and an HTTP request logger.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/medicaments-lookup/config"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var DefaultLoggingService *LoggingService

// Close releases the rotating log file, if any
func (s *LoggingService) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless verbose;
// prod and staging default to warn.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if logLevel != "" {
		return parseLogLevel(logLevel)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level for the rotating file handler
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// InitLogger builds the console + rotating file logger and installs it as the
// slog default. If the log directory is unusable it falls back to console only.
func InitLogger(cfg *config.Config, verbose bool) *LoggingService {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(cfg.Env, cfg.LogLevel, verbose),
	})

	service := &LoggingService{}
	rotating, err := NewRotatingLogger(cfg.LogDir, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
	if err != nil {
		service.Logger = slog.New(consoleHandler)
		service.Logger.Error("Failed to initialize rotating logger", "error", err)
	} else {
		fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: GetFileLogLevel()})
		service.Logger = slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}})
		service.file = rotating
	}

	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
	return service
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}

// Package-level functions for direct access

// Logger returns the configured logger, or slog's default before InitLogger
func Logger() *slog.Logger {
	return logger()
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.Default()
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
