package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/lmittmann/tint"
)

const serviceName = "air-quality-etl"

// NewLogger builds the root logger. LOG_FORMAT=text gives colored
// human-readable output for local runs; anything else is JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = tint.NewHandler(w, &tint.Options{
			Level:      cfg.SlogLevel(),
			TimeFormat: time.Kitchen,
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	}
	return slog.New(h).With(
		"service", serviceName,
		"station_id", cfg.StationID,
	)
}
