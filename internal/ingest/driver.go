// Package ingest drives the idempotent fetch-check-write sweep over
// (date, country, market type) artifact keys.
package ingest

import (
	"context"
	"iter"
	"sync"
	"time"

	"bfsp/ingestion/internal/metrics"
	"bfsp/ingestion/internal/models"
	"bfsp/ingestion/internal/storage"

	"github.com/rs/zerolog/log"
)

// State is a key's position in its lifecycle:
// PENDING -> CHECKING -> (SKIPPED | FETCHING) -> (STORED | FAILED)
type State string

const (
	StatePending  State = "pending"
	StateChecking State = "checking"
	StateFetching State = "fetching"
	StateSkipped  State = "skipped"
	StateStored   State = "stored"
	StateFailed   State = "failed"
)

// Fetcher downloads and normalizes one day's SP file
type Fetcher interface {
	FetchDay(ctx context.Context, key models.ArtifactKey) (*models.DayFile, error)
}

// Checker answers whether an artifact already exists in storage
type Checker interface {
	Exists(ctx context.Context, key models.ArtifactKey) (bool, error)
}

// Result is the terminal outcome for one key
type Result struct {
	Key   models.ArtifactKey
	State State
	Rows  int
	Err   error
}

// Driver composes the checker, fetcher and store into the sweep loop.
// Keys are independent: no key's outcome affects another, so the sweep can
// run with a bounded worker pool when configured.
type Driver struct {
	fetcher Fetcher
	store   storage.Store
	checker Checker
	workers int
}

// Option tweaks driver behavior
type Option func(*Driver)

// WithChecker substitutes the existence checker, e.g. a prefetched
// bucket-listing snapshot for backfill runs
func WithChecker(c Checker) Option {
	return func(d *Driver) { d.checker = c }
}

// WithWorkers bounds the concurrent key workers; values below 1 mean
// sequential
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 1 {
			d.workers = n
		}
	}
}

// NewDriver creates a sweep driver. By default the store itself answers
// existence checks and keys run sequentially.
func NewDriver(fetcher Fetcher, store storage.Store, opts ...Option) *Driver {
	d := &Driver{
		fetcher: fetcher,
		store:   store,
		checker: store,
		workers: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run sweeps every key to a terminal state and aggregates the outcomes.
// No single key's failure aborts the run; cancellation of ctx abandons
// in-flight keys (their writes are atomic, so nothing needs cleanup).
func (d *Driver) Run(ctx context.Context, keys iter.Seq[models.ArtifactKey]) *Summary {
	summary := newSummary()

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)

dispatch:
	for key := range keys {
		if ctx.Err() != nil {
			log.Warn().Msg("Run cancelled, abandoning remaining keys")
			break
		}
		select {
		case <-ctx.Done():
			log.Warn().Msg("Run cancelled, abandoning remaining keys")
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(key models.ArtifactKey) {
			defer wg.Done()
			defer func() { <-sem }()
			res := d.processKey(ctx, key)
			summary.add(res)
		}(key)
	}

	wg.Wait()
	summary.finish()

	log.Info().
		Int("stored", summary.Stored).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Run complete")

	metrics.RecordRun(summary.Duration.Seconds(), summary.Failed)
	return summary
}

// processKey walks one key through its lifecycle
func (d *Driver) processKey(ctx context.Context, key models.ArtifactKey) Result {
	exists, err := d.checker.Exists(ctx, key)
	if err != nil {
		// "Cannot determine" is never treated as absent: silently
		// re-fetching would mask real storage problems
		log.Error().Err(err).Stringer("key", key).Msg("Existence check failed")
		metrics.RecordError("checker", string(models.KindOf(err)))
		return Result{Key: key, State: StateFailed, Err: err}
	}
	if exists {
		log.Debug().Stringer("key", key).Msg("Artifact already in storage, skipping")
		return Result{Key: key, State: StateSkipped}
	}

	day, err := d.fetcher.FetchDay(ctx, key)
	if err != nil {
		if models.IsNotFound(err) {
			// Nothing to fetch for that day, a normal outcome
			log.Info().Stringer("key", key).Msg("No source data for key")
			return Result{Key: key, State: StateSkipped}
		}
		log.Error().Err(err).Stringer("key", key).Msg("Fetch failed")
		metrics.RecordError("fetcher", string(models.KindOf(err)))
		return Result{Key: key, State: StateFailed, Err: err}
	}

	payload, err := day.Payload()
	if err != nil {
		err = models.NewFormatError(key, err)
		log.Error().Err(err).Stringer("key", key).Msg("Payload encoding failed")
		metrics.RecordError("encoder", string(models.ErrFormat))
		return Result{Key: key, State: StateFailed, Err: err}
	}

	if err := d.store.Put(ctx, key, payload); err != nil {
		log.Error().Err(err).Stringer("key", key).Msg("Upload failed")
		metrics.RecordError("store", string(models.KindOf(err)))
		return Result{Key: key, State: StateFailed, Err: err}
	}

	log.Info().
		Stringer("key", key).
		Int("rows", len(day.Records)).
		Msg("Artifact stored")
	metrics.RecordRows(key.Country, string(key.Market), len(day.Records))

	return Result{Key: key, State: StateStored, Rows: len(day.Records)}
}

// Summary aggregates terminal states across a run
type Summary struct {
	mu sync.Mutex

	Stored  int
	Skipped int
	Failed  int
	Rows    int

	// Failures holds every FAILED key with its error; nothing is swallowed
	Failures []Result

	storedByGroup map[string]int // "country/type" -> stored count

	Started  time.Time
	Duration time.Duration
}

func newSummary() *Summary {
	return &Summary{
		Started:       time.Now(),
		storedByGroup: make(map[string]int),
	}
}

func (s *Summary) add(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.RecordKey(string(res.State))
	switch res.State {
	case StateStored:
		s.Stored++
		s.Rows += res.Rows
		s.storedByGroup[res.Key.Country+"/"+string(res.Key.Market)]++
	case StateSkipped:
		s.Skipped++
	case StateFailed:
		s.Failed++
		s.Failures = append(s.Failures, res)
	}
}

func (s *Summary) finish() {
	s.Duration = time.Since(s.Started)
}

// Total returns the number of keys that reached a terminal state
func (s *Summary) Total() int {
	return s.Stored + s.Skipped + s.Failed
}

// ExitCode maps the run outcome to a process exit code for the surrounding
// orchestration: non-zero iff any key FAILED
func (s *Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
