// Command worker runs the daily SP sync: for every configured country and
// market type it ingests yesterday's Betfair SP file, skipping artifacts
// already in the bucket. An external orchestrator triggers it; the exit
// code tells the orchestrator whether any key failed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bfsp/ingestion/internal/client"
	"bfsp/ingestion/internal/config"
	"bfsp/ingestion/internal/ingest"
	"bfsp/ingestion/internal/retry"
	"bfsp/ingestion/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	setupLogger()

	log.Info().Msg("Starting Betfair SP daily sync worker")

	cfg := config.MustLoad()
	log.Info().
		Strs("countries", cfg.Countries).
		Strs("types", cfg.Types).
		Str("bucket", cfg.Bucket).
		Msg("Configuration loaded")

	if _, _, ok := cfg.DateRange(); ok {
		log.Warn().Msg("START_DATE/END_DATE are set but ignored; use the backfill command for ranges")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, abandoning remaining keys...")
		cancel()
	}()

	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

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

	fetcher := client.NewClient(cfg.SourceBaseURL, cfg.HTTPTimeout, policy)

	yesterday := ingest.Yesterday(time.Now().UTC())
	log.Info().Str("date", yesterday.Format("2006-01-02")).Msg("Syncing yesterday's SP data")

	keys := ingest.Keys(ingest.Dates(yesterday, yesterday), cfg.Countries, cfg.MarketTypes())

	driver := ingest.NewDriver(fetcher, store, ingest.WithWorkers(cfg.Workers))
	summary := driver.Run(ctx, keys)

	if cfg.EnableReport {
		ingest.UploadReport(ctx, store, "daily", summary)
	}

	for _, f := range summary.Failures {
		log.Error().Err(f.Err).Stringer("key", f.Key).Msg("Key failed")
	}

	return summary.ExitCode()
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
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

// startMetricsServer exposes Prometheus metrics for scrape-on-run setups
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
