package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bfsp/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Report renders a human-readable run report in the shape the downstream
// automation already scrapes: totals, stored counts per country/type,
// failures grouped by error kind, then the detailed failure list.
func (s *Summary) Report(mode string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SP Ingestion Report (%s)\n", mode)
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Keys processed: %d\n", s.Total())
	fmt.Fprintf(&b, "Stored:  %d (%d rows)\n", s.Stored, s.Rows)
	fmt.Fprintf(&b, "Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "Failed:  %d\n", s.Failed)
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration.Round(time.Millisecond))

	if len(s.storedByGroup) > 0 {
		b.WriteString("\nStored by country/type:\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		groups := make([]string, 0, len(s.storedByGroup))
		for g := range s.storedByGroup {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			fmt.Fprintf(&b, "  %s: %d files\n", g, s.storedByGroup[g])
		}
	}

	if len(s.Failures) > 0 {
		byKind := make(map[string]int)
		for _, f := range s.Failures {
			byKind[string(models.KindOf(f.Err))]++
		}
		b.WriteString("\nFailures by error kind:\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "  %s: %d\n", k, byKind[k])
		}

		b.WriteString("\nFailed keys:\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  %s: %v\n", f.Key, f.Err)
		}
	}

	return b.String()
}

// ReportUploader stores a rendered report under an explicit object key
type ReportUploader interface {
	PutRaw(ctx context.Context, key string, payload []byte, contentType string) error
}

// UploadReport writes the run report to reports/{mode}_{timestamp}.txt.
// Failure to upload is logged and otherwise ignored: a lost report must
// never change the run's exit code.
func UploadReport(ctx context.Context, uploader ReportUploader, mode string, s *Summary) {
	report := s.Report(mode)
	key := fmt.Sprintf("reports/%s_%s.txt", mode, time.Now().Format("20060102_150405"))

	if err := uploader.PutRaw(ctx, key, []byte(report), "text/plain"); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload run report")
		return
	}
	log.Info().Str("key", key).Msg("Run report uploaded")
}
