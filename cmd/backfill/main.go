// Command backfill sweeps a historical date range, fetching every
// (date, country, market type) SP file not yet in the bucket. Existence is
// answered from a single bucket listing taken at startup rather than a
// head probe per key.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bfsp/ingestion/internal/client"
	"bfsp/ingestion/internal/config"
	"bfsp/ingestion/internal/ingest"
	"bfsp/ingestion/internal/retry"
	"bfsp/ingestion/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	setupLogger()

	log.Info().Msg("Starting Betfair SP backfill")

	cfg := config.MustLoad()

	start, end, ok := cfg.DateRange()
	if !ok {
		log.Error().Msg("START_DATE and END_DATE are required for backfill")
		return 1
	}
	if start.After(end) {
		log.Error().
			Str("start", cfg.StartDate).
			Str("end", cfg.EndDate).
			Msg("START_DATE cannot be after END_DATE")
		return 1
	}

	log.Info().
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Strs("countries", cfg.Countries).
		Strs("types", cfg.Types).
		Int("workers", cfg.Workers).
		Msg("Backfill range configured")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, abandoning remaining keys...")
		cancel()
	}()

	policy := retry.NewPolicy(cfg.MaxRetries, cfg.RetryBaseDelay)

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:      cfg.Bucket,
		Prefix:      cfg.Prefix,
		Region:      cfg.Region,
		EndpointURL: cfg.EndpointURL,
	}, policy)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize S3 store")
		return 1
	}

	checker, err := ingest.NewSnapshotChecker(ctx, store)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load existence snapshot")
		return 1
	}

	fetcher := client.NewClient(cfg.SourceBaseURL, cfg.HTTPTimeout, policy)

	keys := ingest.Keys(ingest.Dates(start, end), cfg.Countries, cfg.MarketTypes())

	driver := ingest.NewDriver(fetcher, store,
		ingest.WithChecker(checker),
		ingest.WithWorkers(cfg.Workers),
	)
	summary := driver.Run(ctx, keys)

	if cfg.EnableReport {
		ingest.UploadReport(ctx, store, "backfill", summary)
	}

	for _, f := range summary.Failures {
		log.Error().Err(f.Err).Stringer("key", f.Key).Msg("Key failed")
	}

	return summary.ExitCode()
}

// setupLogger configures the zerolog logger
func setupLogger() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)
}
