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

	"github.com/meridian-hr/meridian-hr/internal/app"
	"github.com/meridian-hr/meridian-hr/internal/auth"
	"github.com/meridian-hr/meridian-hr/internal/divisions"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/history"
	"github.com/meridian-hr/meridian-hr/internal/identity"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/platform/cache"
	"github.com/meridian-hr/meridian-hr/internal/platform/db"
	"github.com/meridian-hr/meridian-hr/internal/shared"
	"github.com/meridian-hr/meridian-hr/internal/workflow"
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

	table, err := cfg.Hierarchy()
	if err != nil {
		logger.Error("parse role hierarchy", slog.Any("error", err))
		os.Exit(1)
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

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	employeeRepo := employees.NewRepository(dbpool)
	employeeService := employees.NewService(employeeRepo)

	divisionRepo := divisions.NewRepository(dbpool)
	divisionService := divisions.NewService(divisionRepo)

	historyRecorder := history.NewRecorder(dbpool)
	notifyService := notify.NewService(dbpool, asynqClient, logger)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(employeeService, authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	identityMW := identity.Middleware{Directory: employeeService, Hierarchy: table, Logger: logger}

	metrics := observability.NewMetrics()

	workflowRepo := workflow.NewPGRepository(dbpool)
	resolver := workflow.NewApproverResolver(workflow.DefaultTemplates(), employeeService, divisionService, logger)
	guard := workflow.NewGuard(table, divisionService)
	effects := workflow.NewEffectApplier(employeeService, employeeService, historyRecorder,
		notifyService, idempotencyStore, cfg.SetupTokenTTL, logger)
	engine := workflow.NewEngine(workflowRepo, effects, metrics, logger)
	requestNotifier := workflow.NewRequestNotifier(employeeService, notifyService, logger)
	engine.OnApproved(requestNotifier)
	engine.OnRejected(requestNotifier)

	workflowService := workflow.NewService(workflowRepo, resolver, guard, engine,
		employeeService, notifyService, auditLogger, logger)
	workflowHandler := workflow.NewHandler(logger, workflowService)

	employeesHandler := employees.NewHandler(logger, employeeService, historyRecorder)
	divisionsHandler := divisions.NewHandler(logger, divisionService)
	notifyHandler := notify.NewHandler(logger, notifyService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		WorkflowHandler:  workflowHandler,
		EmployeesHandler: employeesHandler,
		DivisionsHandler: divisionsHandler,
		NotifyHandler:    notifyHandler,
		Identity:         identityMW,
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
