package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/salonpos/salonpos/internal/app"
	"github.com/salonpos/salonpos/internal/platform/db"
	"github.com/salonpos/salonpos/migrations"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS, logger)
	if err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations complete", slog.Int("applied", len(applied)))
}
