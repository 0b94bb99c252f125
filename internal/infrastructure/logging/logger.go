package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
)

// Logger is a thin wrapper over slog.Logger carrying the gateway's
// default fields. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml. Every
// record carries the service name and version so aggregated logs from
// several gateways stay attributable.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(destination(cfg.Output), cfg.Format, parseLevel(cfg.Level)).
		WithAttrs([]slog.Attr{
			slog.String("service", "farmhub"),
			slog.String("version", version),
		})
	return &Logger{Logger: slog.New(handler)}
}

// Default is the pre-configuration logger used during startup, before
// config.yaml has been read. JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// With returns a derived logger with extra default attributes, for
// per-component loggers such as With("component", "status").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func destination(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config string to a slog level. Anything
// unrecognised falls back to info rather than failing startup.
func parseLevel(level string) slog.Level {
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
