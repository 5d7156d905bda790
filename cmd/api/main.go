package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/atento/internal/api"
	"github.com/saturnino-fabrica-de-software/atento/internal/audit"
	"github.com/saturnino-fabrica-de-software/atento/internal/config"
	"github.com/saturnino-fabrica-de-software/atento/internal/database"
	"github.com/saturnino-fabrica-de-software/atento/internal/face"
	"github.com/saturnino-fabrica-de-software/atento/internal/repository"
	"github.com/saturnino-fabrica-de-software/atento/internal/service"
	"github.com/saturnino-fabrica-de-software/atento/internal/webhook"
	"github.com/saturnino-fabrica-de-software/atento/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logWriter := config.NewLogWriter(cfg.LogFile)
	defer func() { _ = logWriter.Close() }()

	logger := config.NewLogger(cfg.Environment, logWriter)
	slog.SetDefault(logger)

	logger.Info("starting Atento API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("landmark_provider", cfg.LandmarkProvider),
		slog.String("pose_provider", cfg.PoseProvider),
		slog.Bool("persistence", cfg.PersistenceEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditLogger := audit.NewSlogLogger(logger)

	// Providers
	landmarks, err := face.NewLandmarkProvider(ctx, cfg, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create landmark provider: %w", err)
	}
	pose, err := face.NewPoseProvider(ctx, cfg, landmarks, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create pose provider: %w", err)
	}

	hub := ws.NewHub()
	opts := []service.Option{
		service.WithBroadcaster(hub),
		service.WithAuditLogger(auditLogger),
		service.WithStoppedRetention(cfg.StoppedRetention),
	}
	deps := &api.Dependencies{
		Hub:       hub,
		RateLimit: cfg.RateLimit,
	}

	var (
		webhookStore webhook.Store
		worker       *webhook.Worker
	)

	// Persistence
	if cfg.PersistenceEnabled() {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("connected to database")

		opts = append(opts, service.WithPersistence(
			repository.NewSessionRepository(pool),
			repository.NewLogRepository(pool),
		))
		deps.DB = pool
		webhookStore = pool
	}

	// Webhooks
	webhookService := webhook.NewService(webhook.Config{
		URL:    cfg.WebhookURL,
		Secret: cfg.WebhookSecret,
	}, webhookStore)
	if webhookService.Enabled() {
		opts = append(opts, service.WithNotifier(webhookService))
		if webhookStore != nil {
			worker = webhook.NewWorker(webhookStore, webhookService, logger)
		}
	}

	svc := service.NewAttentionService(landmarks, pose, cfg.Attention.Scoring(), logger, opts...)
	deps.Service = svc

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := router.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
		svc.Close()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("server stopped")
	return nil
}
