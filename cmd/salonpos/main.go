package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salonpos/salonpos/cmd/salonpos/cli"
	"github.com/salonpos/salonpos/internal/app"
	"github.com/salonpos/salonpos/internal/auth"
	"github.com/salonpos/salonpos/internal/expenses"
	"github.com/salonpos/salonpos/internal/inventory"
	"github.com/salonpos/salonpos/internal/masterdata"
	"github.com/salonpos/salonpos/internal/observability"
	"github.com/salonpos/salonpos/internal/platform/cache"
	"github.com/salonpos/salonpos/internal/platform/db"
	"github.com/salonpos/salonpos/internal/rbac"
	"github.com/salonpos/salonpos/internal/reports"
	"github.com/salonpos/salonpos/internal/sales"
	"github.com/salonpos/salonpos/internal/shared"
	"github.com/salonpos/salonpos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authService, err := auth.NewService(auth.NewRepository(dbpool), cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("init auth", slog.Any("error", err))
		os.Exit(1)
	}
	authHandler := auth.NewHandler(logger, authService)

	rbacMiddleware := rbac.Middleware{Logger: logger}
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reports.NewRepository(dbpool), reportCache, logger)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, inventory.ServiceConfig{
		Locker: inventory.NewRedisLocker(redisClient, cfg.ItemLockTTL),
		Events: inventory.EventHandlers{reportsService, metrics},
		Logger: logger,
	})

	salesService := sales.NewService(sales.NewRepository(dbpool), inventoryService, sales.Options{
		Idempotency: idempotencyStore,
		Audit:       auditLogger,
		Cache:       reportCache,
		Logger:      logger,
	})
	expensesService := expenses.NewService(expenses.NewRepository(dbpool), reportCache, logger)

	go func() {
		err := reportCache.ListenForInvalidation(ctx, func(version int64) {
			logger.Debug("report cache bumped", slog.Int64("version", version))
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("report cache listener", slog.Any("error", err))
		}
	}()

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             dbpool,
		AuthHandler:      authHandler,
		MasterData:       masterdata.NewModule(dbpool, logger, rbacMiddleware, cfg.DefaultPhoneRegion),
		InventoryHandler: inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		SalesHandler:     sales.NewHandler(logger, salesService, rbacMiddleware),
		ExpensesHandler:  expenses.NewHandler(logger, expensesService, rbacMiddleware),
		ReportsHandler:   reports.NewHandler(logger, reportsService, rbacMiddleware),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles `salonpos jobs trigger <name> [item-id]` and `salonpos jobs stats`.
func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: salonpos jobs trigger <name> [item-id] | salonpos jobs stats")
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("usage: salonpos jobs trigger <name> [item-id]")
		}
		var itemID int64
		if len(args) > 2 {
			itemID, err = strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("item id: %w", err)
			}
		}
		info, err := jobsCLI.Trigger(ctx, args[1], itemID)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s (%s) on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
	return nil
}
