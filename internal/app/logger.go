package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger tagged with the service and environment.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelInfo}
	env := "development"
	if cfg != nil {
		env = cfg.AppEnv
		if !cfg.IsProduction() {
			opts.Level = slog.LevelDebug
		}
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "salonpos"), slog.String("env", env))
}
