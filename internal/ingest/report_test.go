package ingest

import (
	"context"
	"errors"
	"testing"

	"bfsp/ingestion/internal/models"
	"bfsp/ingestion/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_Report(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	keys := testKeys(t, 2, 2)
	badKey := keys[0]
	missing := keys[1]
	fetcher.notFound[missing.String()] = true

	store := &failingStore{
		MemoryStore: storage.NewMemoryStore(),
		failPuts:    map[string]bool{badKey.String(): true},
	}

	summary := NewDriver(fetcher, store).Run(ctx, keySeq(keys))
	report := summary.Report("backfill")

	assert.Contains(t, report, "SP Ingestion Report (backfill)")
	assert.Contains(t, report, "Failed:  1")
	assert.Contains(t, report, "Skipped: 1")
	assert.Contains(t, report, badKey.String())
	assert.Contains(t, report, "storage: 1")
	assert.Contains(t, report, "files")
}

func TestSummary_ReportNoFailuresOmitsFailureSections(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	store := storage.NewMemoryStore()

	summary := NewDriver(fetcher, store).Run(ctx, keySeq(testKeys(t, 1, 1)))
	report := summary.Report("daily")

	assert.Contains(t, report, "Failed:  0")
	assert.NotContains(t, report, "Failed keys:")
}

type captureUploader struct {
	key     string
	payload []byte
	err     error
}

func (c *captureUploader) PutRaw(_ context.Context, key string, payload []byte, _ string) error {
	if c.err != nil {
		return c.err
	}
	c.key = key
	c.payload = payload
	return nil
}

func TestUploadReport(t *testing.T) {
	summary := newSummary()
	summary.add(Result{
		Key:   models.NewArtifactKey(day(2024, 1, 1), "gb", models.MarketWin),
		State: StateStored,
		Rows:  10,
	})
	summary.finish()

	up := &captureUploader{}
	UploadReport(context.Background(), up, "daily", summary)

	require.NotEmpty(t, up.key)
	assert.Regexp(t, `^reports/daily_\d{8}_\d{6}\.txt$`, up.key)
	assert.Contains(t, string(up.payload), "Stored:  1")
}

func TestUploadReport_FailureDoesNotPanic(t *testing.T) {
	summary := newSummary()
	summary.finish()

	up := &captureUploader{err: errors.New("bucket gone")}
	assert.NotPanics(t, func() {
		UploadReport(context.Background(), up, "daily", summary)
	})
}
