package ingest

import (
	"iter"
	"time"

	"bfsp/ingestion/internal/models"
)

// Dates yields calendar days from start to end inclusive, ascending.
// A start after end yields nothing. The sequence is restartable and
// performs no I/O.
func Dates(start, end time.Time) iter.Seq[time.Time] {
	start = truncateDay(start)
	end = truncateDay(end)
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Yesterday returns the calendar day before now, for the daily sync mode
func Yesterday(now time.Time) time.Time {
	return truncateDay(now.AddDate(0, 0, -1))
}

// Keys yields the Cartesian product of dates, countries and market types.
// Key order carries no guarantee; every key's outcome is independent.
func Keys(dates iter.Seq[time.Time], countries []string, types []models.MarketType) iter.Seq[models.ArtifactKey] {
	return func(yield func(models.ArtifactKey) bool) {
		for d := range dates {
			for _, country := range countries {
				for _, mt := range types {
					if !yield(models.NewArtifactKey(d, country, mt)) {
						return
					}
				}
			}
		}
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
