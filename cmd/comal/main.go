package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/comal-pos/comal-pos/internal/app"
	"github.com/comal-pos/comal-pos/internal/catalog"
	"github.com/comal-pos/comal-pos/internal/consumption"
	"github.com/comal-pos/comal-pos/internal/costing"
	"github.com/comal-pos/comal-pos/internal/insights"
	"github.com/comal-pos/comal-pos/internal/inventory"
	"github.com/comal-pos/comal-pos/internal/loyalty"
	"github.com/comal-pos/comal-pos/internal/observability"
	"github.com/comal-pos/comal-pos/internal/orders"
	"github.com/comal-pos/comal-pos/internal/platform/cache"
	"github.com/comal-pos/comal-pos/internal/platform/db"
	"github.com/comal-pos/comal-pos/internal/purchases"
	"github.com/comal-pos/comal-pos/internal/shared"
	"github.com/comal-pos/comal-pos/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache and jobs disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	var recoster *jobs.Client
	if redisClient != nil {
		recoster, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("asynq client", slog.Any("error", err))
		} else {
			defer func() {
				if err := recoster.Close(); err != nil {
					logger.Warn("asynq client close", slog.Any("error", err))
				}
			}()
		}
	}
	// *jobs.Client is used through small Recoster interfaces; a typed nil
	// must not reach them.
	var catalogRecoster catalog.Recoster
	var purchaseRecoster purchases.Recoster
	if recoster != nil {
		catalogRecoster = recoster
		purchaseRecoster = recoster
	}

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, catalogRecoster, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, metrics)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	purchasesRepo := purchases.NewRepository(pool)
	purchasesService := purchases.NewService(purchasesRepo, purchaseRecoster, auditLogger, metrics, logger)
	purchasesHandler := purchases.NewHandler(logger, purchasesService)

	consumptionEngine := consumption.NewEngine(consumption.NewRepository())

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, consumptionEngine, auditLogger, metrics, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	costingCalc := costing.NewCalculator(costing.NewRepository(pool), purchasesRepo, logger)
	costingHandler := costing.NewHandler(logger, costingCalc)

	insightsService := insights.NewService(insights.NewRepository(pool), redisClient, cfg.DashboardCacheTTL, logger)
	insightsHandler := insights.NewHandler(logger, insightsService)

	loyaltyService := loyalty.NewService(pool, cfg.LoyaltyGoal)
	loyaltyHandler := loyalty.NewHandler(logger, loyaltyService)

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsHandler = jobs.NewHandler(inspector, recoster, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		OrdersHandler:    ordersHandler,
		InventoryHandler: inventoryHandler,
		PurchasesHandler: purchasesHandler,
		CostingHandler:   costingHandler,
		InsightsHandler:  insightsHandler,
		LoyaltyHandler:   loyaltyHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
