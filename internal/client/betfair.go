package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"bfsp/ingestion/internal/metrics"
	"bfsp/ingestion/internal/models"
	"bfsp/ingestion/internal/retry"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is where Betfair publishes the daily SP price files
const DefaultBaseURL = "https://promo.betfair.com/betfairsp/prices"

// Client downloads and parses Betfair SP price files
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a Betfair prices client
func NewClient(baseURL string, timeout time.Duration, policy retry.Policy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		policy:  policy,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchDay downloads the SP file for key and normalizes it.
// Returns a not_found error when the source has no file for that day or the
// file carries no rows, a transient error when retries are exhausted, and a
// format error when the response is not a usable SP file.
func (c *Client) FetchDay(ctx context.Context, key models.ArtifactKey) (*models.DayFile, error) {
	url := key.SourceURL(c.baseURL)

	start := time.Now()
	var body []byte
	err := c.policy.Do(ctx, "fetch "+key.String(), func() error {
		b, err := c.get(ctx, url, key)
		if err != nil {
			if !models.IsTransient(err) {
				return retry.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		status := string(models.KindOf(err))
		metrics.RecordFetch(key.Country, string(key.Market), status, time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordFetch(key.Country, string(key.Market), "ok", time.Since(start).Seconds())

	records, err := parseDayFile(bytes.NewReader(body), key)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		// A header-only file means no racing was settled for the key
		log.Debug().Stringer("key", key).Msg("Source file has no rows")
		return nil, models.NewNotFoundError(key)
	}

	log.Debug().
		Stringer("key", key).
		Int("rows", len(records)).
		Msg("SP file fetched and normalized")

	return &models.DayFile{Key: key, Records: records}, nil
}

// get performs a single download attempt and classifies the outcome
func (c *Client) get(ctx context.Context, url string, key models.ArtifactKey) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewFormatError(key, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", "bfsp-ingestion/1.0")

	log.Debug().
		Str("url", url).
		Stringer("key", key).
		Msg("Downloading SP file")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewTransientError(key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTransientError(key, fmt.Errorf("failed to read response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil

	case resp.StatusCode == http.StatusNotFound:
		// No racing for that country/type/day
		return nil, models.NewNotFoundError(key)

	case resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode >= 500:
		return nil, models.NewTransientError(key,
			fmt.Errorf("source returned retryable status %d", resp.StatusCode))

	default:
		// Anything else (auth walls, odd redirects) is not a usable SP file
		return nil, models.NewFormatError(key,
			fmt.Errorf("source returned unexpected status %d", resp.StatusCode))
	}
}
