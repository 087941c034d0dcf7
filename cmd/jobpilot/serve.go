package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/ai"
	"github.com/kiranshivaraju/jobpilot/internal/api"
	"github.com/kiranshivaraju/jobpilot/internal/api/handler"
	mw "github.com/kiranshivaraju/jobpilot/internal/api/middleware"
	"github.com/kiranshivaraju/jobpilot/internal/application"
	"github.com/kiranshivaraju/jobpilot/internal/batch"
	"github.com/kiranshivaraju/jobpilot/internal/cache"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/internal/resume"
	"github.com/kiranshivaraju/jobpilot/internal/runner"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation API server",
	Long:  "Connects to Postgres and Redis, applies migrations and serves the automation API until SIGINT or SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx)
}

func serve(ctx context.Context) error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "applier", cfg.Automation.Applier, "env", cfg.Server.Env)

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create AI provider
	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	advisor := ai.NewAdvisor(provider, cfg.AI.InferenceTimeout, slog.Default())
	slog.Info("AI provider initialized", "provider", provider.Name())

	// 6. Create applier, runner and application service
	applier, err := batch.NewApplier(cfg.Automation, nil)
	if err != nil {
		return fmt.Errorf("create applier: %w", err)
	}

	pgStore := store.NewPostgresStore(pool)
	automationRunner := runner.New(pgStore, redisCache, applier, runner.Config{
		StageDelay: cfg.Automation.StageDelay,
		JobDelay:   cfg.Automation.JobDelay,
		StatusTTL:  cfg.Automation.StatusTTL,
	}, slog.Default())
	applications := application.NewService(pgStore, applier,
		cfg.Automation.StageDelay, cfg.Automation.ApplyConcurrency, slog.Default())

	// 7. Build router with dependencies
	router := api.NewRouter(newDependencies(cfg, pgStore, redisCache, advisor, automationRunner, applications))

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := automationRunner.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("runner shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// serverStore is everything the HTTP surface reads from Postgres.
type serverStore interface {
	handler.Pinger
	handler.JobCatalog
	mw.KeyStore
}

// serverCache is everything the HTTP surface needs from Redis.
type serverCache interface {
	handler.Pinger
	handler.KV
	mw.Counter
}

func newDependencies(
	cfg *config.Config,
	s serverStore,
	kv serverCache,
	advisor *ai.Advisor,
	automation handler.Automation,
	applications handler.Applications,
) api.Dependencies {
	return api.Dependencies{
		Auth:      mw.NewAuth(s, cfg.Server.RequireAuth),
		RateLimit: mw.NewRateLimit(kv, cfg.Server.RateLimitRPM),

		HealthHandler:            handler.NewHealthHandler(s, kv, advisor),
		StartAutomationHandler:   handler.NewStartAutomationHandler(automation),
		AutomationStatusHandler:  handler.NewAutomationStatusHandler(automation),
		AutomationLogsHandler:    handler.NewAutomationLogsHandler(automation),
		ControlHandler:           handler.NewControlHandler(automation),
		UploadCVHandler:          handler.NewUploadCVHandler(kv, handler.UploadConfig{Dir: cfg.Server.UploadDir, MaxSize: cfg.Server.MaxUploadSize}),
		AnalyzeCVHandler:         handler.NewAnalyzeCVHandler(s, resume.NewExtractor(cfg.Server.PDFToText), cfg.Server.MaxUploadSize),
		SearchJobsHandler:        handler.NewSearchJobsHandler(s, kv),
		ApplyHandler:             handler.NewApplyHandler(applications),
		ApplyMultipleHandler:     handler.NewApplyMultipleHandler(applications),
		ApplicationStatusHandler: handler.NewApplicationStatusHandler(applications),
		AskHandler:               handler.NewAskHandler(advisor, s),
	}
}
