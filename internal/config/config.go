package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bfsp/ingestion/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration. It is built once at startup
// and read-only afterwards.
type Config struct {
	// Sweep scope
	Countries []string `envconfig:"COUNTRIES" default:"gb,ire,fr"`
	Types     []string `envconfig:"TYPES" default:"win,place"`

	// Backfill range; both empty means "yesterday only" mode
	StartDate string `envconfig:"START_DATE"`
	EndDate   string `envconfig:"END_DATE"`

	// Betfair source
	SourceBaseURL string        `envconfig:"SOURCE_BASE_URL" default:"https://promo.betfair.com/betfairsp/prices"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	// Object storage
	Bucket      string `envconfig:"S3_BUCKET"`
	Prefix      string `envconfig:"S3_PREFIX" default:""`
	Region      string `envconfig:"AWS_REGION" default:"eu-west-1"`
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`

	// Retry policy, applied to both fetches and storage calls
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"5"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`

	// Driver
	Workers int `envconfig:"WORKERS" default:"1"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"false"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`

	// Run report uploaded to the bucket under reports/
	EnableReport bool `envconfig:"ENABLE_REPORT" default:"false"`
}

// Load loads configuration from environment variables.
// It first attempts to load from .env file if present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// BUCKET_NAME is the legacy name for the same setting
	if cfg.Bucket == "" {
		cfg.Bucket = os.Getenv("BUCKET_NAME")
	}

	for i, c := range cfg.Countries {
		code := strings.ToLower(strings.TrimSpace(c))
		// Betfair's legacy code for GB racing
		if code == "uk" {
			code = "gb"
		}
		cfg.Countries[i] = code
	}
	for i, t := range cfg.Types {
		cfg.Types[i] = strings.ToLower(strings.TrimSpace(t))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("S3_BUCKET (or BUCKET_NAME) is required")
	}
	if len(c.Countries) == 0 {
		return fmt.Errorf("COUNTRIES must list at least one country code")
	}
	if len(c.Types) == 0 {
		return fmt.Errorf("TYPES must list at least one market type")
	}
	for _, t := range c.Types {
		if _, err := models.ParseMarketType(t); err != nil {
			return fmt.Errorf("invalid TYPES entry: %w", err)
		}
	}
	if (c.StartDate == "") != (c.EndDate == "") {
		return fmt.Errorf("START_DATE and END_DATE must be set together")
	}
	if c.StartDate != "" {
		if _, err := time.Parse(dateLayout, c.StartDate); err != nil {
			return fmt.Errorf("invalid START_DATE %q: %w", c.StartDate, err)
		}
		if _, err := time.Parse(dateLayout, c.EndDate); err != nil {
			return fmt.Errorf("invalid END_DATE %q: %w", c.EndDate, err)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	return nil
}

// MarketTypes returns the configured market types as typed values
func (c *Config) MarketTypes() []models.MarketType {
	types := make([]models.MarketType, 0, len(c.Types))
	for _, t := range c.Types {
		mt, err := models.ParseMarketType(t)
		if err != nil {
			continue // Validate already rejected unknown types
		}
		types = append(types, mt)
	}
	return types
}

// DateRange returns the configured backfill range.
// ok is false when the config selects "yesterday only" mode.
func (c *Config) DateRange() (start, end time.Time, ok bool) {
	if c.StartDate == "" {
		return time.Time{}, time.Time{}, false
	}
	start, _ = time.Parse(dateLayout, c.StartDate)
	end, _ = time.Parse(dateLayout, c.EndDate)
	return start, end, true
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error.
// Use this in main() where we want to fail fast.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
