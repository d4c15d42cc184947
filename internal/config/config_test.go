package config

import (
	"testing"
	"time"

	"bfsp/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("S3_BUCKET", "test-bucket")
	// Guard against ambient values leaking into tests
	t.Setenv("COUNTRIES", "gb,ire,fr")
	t.Setenv("TYPES", "win,place")
	t.Setenv("START_DATE", "")
	t.Setenv("END_DATE", "")
	t.Setenv("BUCKET_NAME", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"gb", "ire", "fr"}, cfg.Countries)
	assert.Equal(t, []string{"win", "place"}, cfg.Types)
	assert.Equal(t, "test-bucket", cfg.Bucket)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoad_BucketNameFallback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_BUCKET", "")
	t.Setenv("BUCKET_NAME", "legacy-bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-bucket", cfg.Bucket)
}

func TestLoad_MissingBucketFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestLoad_NormalizesCase(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COUNTRIES", "GB, Ire")
	t.Setenv("TYPES", "WIN,Place")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"gb", "ire"}, cfg.Countries)
	assert.Equal(t, []string{"win", "place"}, cfg.Types)
}

func TestLoad_MapsLegacyUKCode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COUNTRIES", "uk,fr")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"gb", "fr"}, cfg.Countries)
}

func TestLoad_RejectsUnknownMarketType(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TYPES", "win,show")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market type")
}

func TestLoad_RejectsOneSidedDateRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("START_DATE", "2024-01-01")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set together")
}

func TestLoad_RejectsBadDateFormat(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("START_DATE", "01/02/2024")
	t.Setenv("END_DATE", "2024-02-01")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "START_DATE")
}

func TestDateRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("START_DATE", "2024-01-01")
	t.Setenv("END_DATE", "2024-01-31")

	cfg, err := Load()
	require.NoError(t, err)

	start, end, ok := cfg.DateRange()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestDateRange_YesterdayMode(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	_, _, ok := cfg.DateRange()
	assert.False(t, ok, "no dates configured means yesterday-only mode")
}

func TestMarketTypes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TYPES", "win")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []models.MarketType{models.MarketWin}, cfg.MarketTypes())
}

func TestValidate_WorkersFloor(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKERS")
}
