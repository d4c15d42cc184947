package client

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bfsp/ingestion/internal/models"
)

// eventDTLayout is the timestamp format Betfair uses in SP files
const eventDTLayout = "02-01-2006 15:04"

// requiredColumns must all be present in the file header
var requiredColumns = []string{
	"event_id", "event_dt", "selection_id", "selection_name", "win_lose", "bsp",
}

// parseDayFile reads a raw SP CSV into normalized records.
// Header names are matched case-insensitively; optional price/volume columns
// missing from older files parse as zero.
func parseDayFile(r io.Reader, key models.ArtifactKey) ([]models.SPRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // older files have ragged trailing columns

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewFormatError(key, fmt.Errorf("failed to read csv header: %w", err))
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, models.NewFormatError(key, fmt.Errorf("missing required column %q", name))
		}
	}

	var records []models.SPRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, models.NewFormatError(key, fmt.Errorf("failed to read csv row %d: %w", line, err))
		}
		line++

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, models.NewFormatError(key, fmt.Errorf("row %d: %w", line, err))
		}
		rec.Normalize(key)
		records = append(records, *rec)
	}

	return records, nil
}

func parseRow(row []string, cols map[string]int) (*models.SPRecord, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	eventID, err := strconv.ParseInt(field("event_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad event_id %q: %w", field("event_id"), err)
	}
	selectionID, err := strconv.ParseInt(field("selection_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad selection_id %q: %w", field("selection_id"), err)
	}
	winLose, err := strconv.Atoi(field("win_lose"))
	if err != nil {
		return nil, fmt.Errorf("bad win_lose %q: %w", field("win_lose"), err)
	}
	eventDT, err := time.Parse(eventDTLayout, field("event_dt"))
	if err != nil {
		return nil, fmt.Errorf("bad event_dt %q: %w", field("event_dt"), err)
	}

	return &models.SPRecord{
		EventID:          eventID,
		MenuHint:         field("menu_hint"),
		EventName:        field("event_name"),
		EventDT:          eventDT,
		SelectionID:      selectionID,
		SelectionName:    field("selection_name"),
		WinLose:          winLose,
		BSP:              parseFloat(field("bsp")),
		PPWAP:            parseFloat(field("ppwap")),
		MorningWAP:       parseFloat(field("morningwap")),
		PPMax:            parseFloat(field("ppmax")),
		PPMin:            parseFloat(field("ppmin")),
		IPMax:            parseFloat(field("ipmax")),
		IPMin:            parseFloat(field("ipmin")),
		MorningTradedVol: parseFloat(field("morningtradedvol")),
		PPTradedVol:      parseFloat(field("pptradedvol")),
		IPTradedVol:      parseFloat(field("iptradedvol")),
	}, nil
}

// parseFloat is lenient: empty or unparseable price fields become 0
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
