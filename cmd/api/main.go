package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-extractor/internal/api"
	"github.com/dvloznov/statement-extractor/internal/api/handlers"
	"github.com/dvloznov/statement-extractor/internal/app"
	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/gcs"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/jobs/inmemory"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("STATEMENT_CONFIG"), "Path to a YAML config file (or set STATEMENT_CONFIG env)")
		port       = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log, err := logger.NewWithConfig(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid log settings")
	}

	if cfg.GCS.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement uploads will be disabled")
	}

	ctx := logger.WithContext(context.Background(), log)

	storage, err := gcs.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	ctrl, err := app.NewController(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create controller")
	}

	runRepo, err := app.OpenRunRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create run repository")
	}
	var recorder jobs.OutcomeRecorder
	if runRepo != nil {
		defer runRepo.Close()
		recorder = runRepo
	} else {
		log.Info().Msg("BigQuery persistence disabled - outcomes are kept in the job store only")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, cfg.Worker.Workers, jobStore).
		WithMaxRetries(cfg.Worker.MaxRetries)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := jobs.NewStatementHandler(document.NewLoader(storage), ctrl, recorder)

	go func() {
		log.Info().Int("workers", cfg.Worker.Workers).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	router := api.NewRouter(log, api.Handlers{
		Statements:   handlers.NewStatementsHandler(jobQueue, storage, cfg.GCS.Bucket, cfg.GCS.Prefix, cfg.Server.MaxUploadBytes),
		Transactions: handlers.NewTransactionsHandler(),
		Jobs:         handlers.NewJobsHandler(jobStore),
	}, cfg.Server.CORSOrigins...)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
