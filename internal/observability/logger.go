// Package observability holds the logger and Prometheus metric set shared by
// the pipeline and its adapters.
package observability

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/storm-damage-aggregator/internal/config"
)

// NewLogger builds the process logger from config. Format is json or text;
// unknown levels fall back to info.
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
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
