// Package pipeline aggregates the reviews of one book and exports the
// result as CSV, JSON lines, or both.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// Skip reasons counted in a Report.
const (
	SkipInvalidRecord    = "invalid_record"
	SkipInvalidSentiment = "invalid_sentiment"
)

// Sink receives the rows of one export. Reviews arrive in corpus order,
// followed by the failed-page manifest of each source.
type Sink interface {
	WriteReview(review models.ScoredReview) error
	WriteFailedPage(source string, page models.FailedPage) error
	Close() error
}

// Report summarises one export.
type Report struct {
	Written     int
	Unscored    int
	FailedPages int
	Skipped     map[string]int
}

// Export writes every record of set to sink in corpus order, then the
// failed pages of each source. Records that break the review invariants
// are skipped and counted; a sink error stops the export.
//
// Records of a set without sentiments are written unscored.
func Export(ctx context.Context, set models.AggregatedReviewSet, sink Sink) (Report, error) {
	report := Report{Skipped: make(map[string]int)}

	for i, review := range set.ScoredAll() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if reason := exportable(review); reason != "" {
			report.Skipped[reason]++
			slog.Warn("skipping review on export",
				slog.String("source", review.Source),
				slog.Int("index", i),
				slog.String("reason", reason),
			)
			continue
		}

		review.Author = parser.NormalizeText(review.Author)
		review.Date = parser.NormalizeText(review.Date)
		if err := sink.WriteReview(review); err != nil {
			return report, fmt.Errorf("write review %d: %w", i, err)
		}
		report.Written++
		if !review.Scored() {
			report.Unscored++
		}
	}

	for _, name := range models.SourceOrder {
		for _, page := range set.BySource[name].FailedPages {
			if err := sink.WriteFailedPage(name, page); err != nil {
				return report, fmt.Errorf("write failed page %s/%d: %w", name, page.Page, err)
			}
			report.FailedPages++
		}
	}
	return report, nil
}

func exportable(review models.ScoredReview) string {
	if err := parser.ValidateReview(&review.ReviewRecord); err != nil {
		return SkipInvalidRecord
	}
	if s := review.Sentiment; s != nil && (math.IsNaN(*s) || *s < 0 || *s > 1) {
		return SkipInvalidSentiment
	}
	return ""
}
