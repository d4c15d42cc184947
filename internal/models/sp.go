package models

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SPRecord is one runner's starting-price row from a Betfair daily file,
// plus the derived columns appended during normalization
type SPRecord struct {
	EventID          int64
	MenuHint         string
	EventName        string
	EventDT          time.Time
	SelectionID      int64
	SelectionName    string
	WinLose          int
	BSP              float64
	PPWAP            float64
	MorningWAP       float64
	PPMax            float64
	PPMin            float64
	IPMax            float64
	IPMin            float64
	MorningTradedVol float64
	PPTradedVol      float64
	IPTradedVol      float64

	// Derived during normalization
	Country              string
	Market               MarketType
	SelectionNameCleaned string
	EventDate            string
	Year                 int
}

// DayFile is the fetched and normalized SP data for one ArtifactKey,
// immutable once built
type DayFile struct {
	Key     ArtifactKey
	Records []SPRecord
}

// csvHeader is the column order of the persisted artifact
var csvHeader = []string{
	"event_id", "menu_hint", "event_name", "event_dt",
	"selection_id", "selection_name", "win_lose",
	"bsp", "ppwap", "morningwap", "ppmax", "ppmin", "ipmax", "ipmin",
	"morningtradedvol", "pptradedvol", "iptradedvol",
	"country", "type", "selection_name_cleaned", "event_date", "year",
}

// Payload encodes the normalized records as the CSV artifact to persist
func (d *DayFile) Payload() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range d.Records {
		row := []string{
			strconv.FormatInt(r.EventID, 10),
			r.MenuHint,
			r.EventName,
			r.EventDT.Format("2006-01-02 15:04"),
			strconv.FormatInt(r.SelectionID, 10),
			r.SelectionName,
			strconv.Itoa(r.WinLose),
			formatFloat(r.BSP),
			formatFloat(r.PPWAP),
			formatFloat(r.MorningWAP),
			formatFloat(r.PPMax),
			formatFloat(r.PPMin),
			formatFloat(r.IPMax),
			formatFloat(r.IPMin),
			formatFloat(r.MorningTradedVol),
			formatFloat(r.PPTradedVol),
			formatFloat(r.IPTradedVol),
			r.Country,
			string(r.Market),
			r.SelectionNameCleaned,
			r.EventDate,
			strconv.Itoa(r.Year),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// selectionIllegalSymbols are stripped from selection names before matching
const selectionIllegalSymbols = "'$@#^(%*)._ "

// CleanSelectionName lowercases a runner name, strips leading digits and
// punctuation, and suffixes the country code so the same horse name in
// different jurisdictions stays distinct
func CleanSelectionName(name, country string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		s = s[1:]
	}
	for _, sym := range selectionIllegalSymbols {
		s = strings.ReplaceAll(s, string(sym), "")
	}
	if country == "" {
		return s
	}
	return s + "_" + country
}

// Normalize fills the derived columns for a record belonging to key.
// Betfair labels GB racing as "uk"; the stored country code is always gb.
func (r *SPRecord) Normalize(key ArtifactKey) {
	country := strings.ToLower(key.Country)
	if country == "uk" {
		country = "gb"
	}
	r.Country = country
	r.Market = key.Market
	r.SelectionNameCleaned = CleanSelectionName(r.SelectionName, country)
	r.EventDate = r.EventDT.Format("2006-01-02")
	r.Year = r.EventDT.Year()
}
