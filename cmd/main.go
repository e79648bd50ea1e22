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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/cloutleague/tournament-engine/config"
	"github.com/cloutleague/tournament-engine/db"
	"github.com/cloutleague/tournament-engine/handlers"
	"github.com/cloutleague/tournament-engine/notify"
	"github.com/cloutleague/tournament-engine/repositories"
	api "github.com/cloutleague/tournament-engine/routes"
	"github.com/cloutleague/tournament-engine/scheduler"
	"github.com/cloutleague/tournament-engine/services"
	"github.com/cloutleague/tournament-engine/social"
	"github.com/cloutleague/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Snapshot archiving is optional: without R2 credentials the retention
	// sweep purges without writing archives.
	var archiver services.SnapshotArchiver
	if cfg.ArchivingEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewSnapshotArchiver(uploader)
		logger.Info("snapshot archiving enabled")
	} else {
		logger.Warn("R2 credentials not configured, snapshot archiving disabled")
	}

	wsHub := notify.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	queueRepo := repositories.NewPostgresQueueRepository(dbConn)
	snapshotRepo := repositories.NewPostgresSnapshotRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	walletRepo := repositories.NewPostgresWalletRepository(dbConn)
	txRunner := repositories.NewTxRunner(dbConn)
	logger.Info("repositories initialized")

	metricsClient := social.NewHTTPMetricsClient(cfg.SocialAPIBaseURL, cfg.SocialAPIToken, cfg.SocialAPITimeout)

	ingestionService := services.NewIngestionService(
		tournamentRepo,
		rosterRepo,
		queueRepo,
		snapshotRepo,
		txRunner,
		metricsClient,
		archiver,
		logger,
	)
	lifecycleService := services.NewLifecycleService(
		tournamentRepo,
		rosterRepo,
		snapshotRepo,
		resultRepo,
		queueRepo,
		walletRepo,
		txRunner,
		wsHub,
		logger,
	)
	leaderboardService := services.NewLeaderboardService(
		tournamentRepo,
		resultRepo,
		walletRepo,
		snapshotRepo,
		rosterRepo,
	)
	logger.Info("services initialized")

	schedulerCtx, stopSchedulers := context.WithCancel(context.Background())
	defer stopSchedulers()

	clock := scheduler.NewRealClock()
	runners := []*scheduler.Runner{
		scheduler.NewRunner("ingestion-poll", cfg.PollInterval, func(ctx context.Context) error {
			if err := ingestionService.PollNext(ctx); err != nil && !errors.Is(err, services.ErrNothingToPoll) {
				return err
			}
			return nil
		}, clock, logger),
		scheduler.NewRunner("queue-sync", cfg.SweepInterval, ingestionService.SyncAllQueues, clock, logger),
		scheduler.NewRunner("lifecycle-sweep", cfg.SweepInterval, lifecycleService.RunSweep, clock, logger),
		scheduler.NewRunner("retention-cleanup", cfg.CleanupInterval, ingestionService.CleanupInactive, clock, logger),
	}
	for _, runner := range runners {
		go runner.Run(schedulerCtx)
	}

	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	adminHandler := handlers.NewAdminHandler(ingestionService, lifecycleService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, leaderboardHandler, adminHandler, webSocketHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		stopSchedulers()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
