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

	"github.com/namhatta/namhatta/internal/app"
	"github.com/namhatta/namhatta/internal/auth"
	"github.com/namhatta/namhatta/internal/dashboard"
	"github.com/namhatta/namhatta/internal/devotees"
	"github.com/namhatta/namhatta/internal/hierarchy"
	"github.com/namhatta/namhatta/internal/namhattas"
	"github.com/namhatta/namhatta/internal/observability"
	"github.com/namhatta/namhatta/internal/platform/cache"
	"github.com/namhatta/namhatta/internal/platform/db"
	"github.com/namhatta/namhatta/internal/shared"
	"github.com/namhatta/namhatta/internal/users"
	"github.com/namhatta/namhatta/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// A missing Redis only costs the dashboard its cache, so we keep going.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens).WithMetrics(metrics)
	guard := auth.Guard{
		Logger:      logger,
		Service:     authService,
		AuthEnabled: cfg.AuthEnabled,
		Production:  cfg.IsProduction(),
	}
	authHandler := auth.NewHandler(logger, authService, guard, auth.HandlerConfig{
		SecureCookies:   cfg.IsProduction(),
		TokenTTL:        cfg.TokenTTL,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
	})

	auditLogger := shared.NewAuditLogger(dbpool)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashboardCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("dashboard cache subscribe", slog.Any("error", err))
	}
	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo, dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, guard)

	hierarchyRepo := hierarchy.NewRepository(dbpool)
	hierarchyService := hierarchy.NewService(hierarchyRepo, auditLogger, logger).WithInvalidator(dashboardService)
	hierarchyHandler := hierarchy.NewHandler(logger, hierarchyService, guard)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, guard)

	devoteesRepo := devotees.NewRepository(dbpool)
	devoteesService := devotees.NewService(devoteesRepo).WithInvalidator(dashboardService)
	devoteesHandler := devotees.NewHandler(logger, devoteesService, guard)

	namhattasRepo := namhattas.NewRepository(dbpool)
	namhattasService := namhattas.NewService(namhattasRepo).WithInvalidator(dashboardService)
	namhattasHandler := namhattas.NewHandler(logger, namhattasService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		HierarchyHandler: hierarchyHandler,
		UsersHandler:     usersHandler,
		DevoteesHandler:  devoteesHandler,
		NamhattasHandler: namhattasHandler,
		DashboardHandler: dashboardHandler,
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
