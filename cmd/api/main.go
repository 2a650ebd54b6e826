package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/varunidealabs/cash-flow-analyzer/internal/api"
	"github.com/varunidealabs/cash-flow-analyzer/internal/api/handlers"
	"github.com/varunidealabs/cash-flow-analyzer/internal/config"
	"github.com/varunidealabs/cash-flow-analyzer/internal/gcsuploader"
	"github.com/varunidealabs/cash-flow-analyzer/internal/history"
	infraBQ "github.com/varunidealabs/cash-flow-analyzer/internal/infra/bigquery"
	"github.com/varunidealabs/cash-flow-analyzer/internal/insights"
	"github.com/varunidealabs/cash-flow-analyzer/internal/jobs/inmemory"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/notionsync"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
	"github.com/varunidealabs/cash-flow-analyzer/internal/session"
)

const queueBuffer = 100

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log := logger.NewWithLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := llm.New(ctx, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	recorder, closeRecorder := newRecorder(ctx, cfg, log)
	defer closeRecorder()

	runner := pipeline.NewRunner(
		pipeline.NewDocumentExtractor(client),
		pipeline.NewExtractionClient(client),
		recorder,
	)

	sessions := session.NewStore(cfg.Server.SessionTTL)

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(queueBuffer, cfg.Server.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", cfg.Server.Workers).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, handlers.NewAnalyzeJobHandler(runner, sessions)); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	var storage gcsuploader.StorageService
	if cfg.Storage.GCSBucket != "" {
		gcs, err := gcsuploader.NewGCSStorageService(ctx, cfg.Storage.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer gcs.Close()
		storage = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured, uploads will not be archived")
	}

	var notion *handlers.NotionTarget
	if cfg.NotionEnabled() {
		notion = &handlers.NotionTarget{
			Client:     notionsync.NewNotionClient(cfg.Notion.Token),
			DatabaseID: cfg.Notion.DatabaseID,
		}
	}

	var limiter *rate.Limiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	}

	router := api.NewRouter(api.Deps{
		Log:        log,
		Limiter:    limiter,
		Statements: handlers.NewStatementsHandler(jobQueue, storage),
		Jobs:       handlers.NewJobsHandler(jobStore),
		Sessions:   handlers.NewSessionsHandler(sessions, insights.NewGenerator(client), notion),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("provider", cfg.Model.Provider).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()

	// Wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// newRecorder prefers BigQuery when a project is configured and falls back
// to the local sqlite history.
func newRecorder(ctx context.Context, cfg config.Config, log zerolog.Logger) (pipeline.RunRecorder, func()) {
	if cfg.BigQueryEnabled() {
		repo, err := infraBQ.NewRepository(ctx, cfg.Storage.BQProject, cfg.Storage.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		log.Info().Str("project", cfg.Storage.BQProject).Str("dataset", cfg.Storage.BQDataset).Msg("Recording runs to BigQuery")
		return repo, func() { repo.Close() }
	}

	store, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open run history")
	}
	log.Info().Str("path", cfg.Storage.DBPath).Msg("Recording runs to local history")
	return store, func() { store.Close() }
}
