package models

import (
	"fmt"
	"path"
	"time"
)

// MarketType identifies a Betfair SP market
type MarketType string

const (
	MarketWin   MarketType = "win"
	MarketPlace MarketType = "place"
)

// ParseMarketType validates a market type string
func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(s) {
	case MarketWin, MarketPlace:
		return MarketType(s), nil
	default:
		return "", fmt.Errorf("unknown market type %q (expected win or place)", s)
	}
}

// ArtifactKey identifies one unit of ingestion work: the SP file for a
// single date, country and market type
type ArtifactKey struct {
	Date    time.Time
	Country string
	Market  MarketType
}

// NewArtifactKey builds a key with the date truncated to its calendar day
func NewArtifactKey(date time.Time, country string, market MarketType) ArtifactKey {
	return ArtifactKey{
		Date:    time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Country: country,
		Market:  market,
	}
}

// ObjectKey returns the deterministic storage path for this key,
// e.g. "gb/win/2024-01-01.csv"
func (k ArtifactKey) ObjectKey() string {
	return path.Join(k.Country, string(k.Market), k.Date.Format("2006-01-02")+".csv")
}

// SourceURL returns the Betfair prices download URL for this key.
// Betfair still publishes GB files under the legacy "uk" code.
func (k ArtifactKey) SourceURL(baseURL string) string {
	country := k.Country
	if country == "gb" {
		country = "uk"
	}
	return fmt.Sprintf("%s/dwbfprices%s%s%s.csv",
		baseURL, country, k.Market, k.Date.Format("02012006"))
}

// String implements fmt.Stringer for log output
func (k ArtifactKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Country, k.Market, k.Date.Format("2006-01-02"))
}
