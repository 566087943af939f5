package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/budget-ledger/internal/api/handlers"
	"github.com/dvloznov/budget-ledger/internal/api/middleware"
	"github.com/dvloznov/budget-ledger/internal/config"
	"github.com/dvloznov/budget-ledger/internal/export"
	"github.com/dvloznov/budget-ledger/internal/jobs"
	"github.com/dvloznov/budget-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/budget-ledger/internal/ledger"
	"github.com/dvloznov/budget-ledger/internal/logger"
	"github.com/dvloznov/budget-ledger/internal/store"
	bqstore "github.com/dvloznov/budget-ledger/internal/store/bigquery"
	"github.com/dvloznov/budget-ledger/internal/store/local"
	"github.com/dvloznov/budget-ledger/internal/suggest"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New("api")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.ExportBucket == "" {
		log.Warn().Msg("No export bucket configured - ledger exports will be disabled")
	}

	ctx := context.Background()

	st := openStore(ctx, cfg, log)
	defer st.Close()

	svc := ledger.NewService(st, log)
	exporter := export.NewExporter(st)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.ExportSnapshotJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("user_id", job.UserID).
			Msg("Processing export job")

		uri, err := exporter.Export(ctx, job.Bucket, job.UserID)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Export failed")
			return err
		}
		job.ObjectURI = uri

		log.Info().Str("job_id", job.JobID).Str("object_uri", uri).Msg("Export completed")
		return nil
	}

	go func() {
		log.Info().Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Export worker stopped with error")
		}
	}()

	router := handlers.NewRouter(handlers.RouterConfig{
		Ledger:       svc,
		Suggester:    suggest.NewSuggester(),
		Publisher:    jobQueue,
		JobStore:     jobStore,
		ExportBucket: cfg.ExportBucket,
		Log:          log,
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(router),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Let the in-flight export finish before exiting.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping export queue")
	}

	log.Info().Msg("Server exited")
}

// openStore connects the preferred backend. When BigQuery is configured but
// unreachable, the server starts on the local SQLite store instead of
// refusing to come up.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) store.Store {
	if cfg.Backend == config.BackendLocal {
		st, err := local.NewStore(cfg.LocalDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open local store")
		}
		log.Info().Str("path", cfg.LocalDBPath).Msg("Using local store")
		return st
	}

	bq, err := bqstore.NewStore(ctx, cfg.ProjectID)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if perr := bq.Ping(pingCtx); perr == nil {
			log.Info().Str("project_id", cfg.ProjectID).Msg("Using BigQuery store")
			return bq
		} else {
			err = perr
			_ = bq.Close()
		}
	}

	log.Warn().Err(err).Msg("BigQuery unreachable, falling back to local store")
	st, lerr := local.NewStore(cfg.LocalDBPath)
	if lerr != nil {
		log.Fatal().Err(lerr).Msg("Failed to open local fallback store")
	}
	return st
}
