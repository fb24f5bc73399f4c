package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/task"
)

// Source describes how to reach and parse one review source.
type Source struct {
	Name      string
	PageURL   func(page int) string
	Extractor parser.Extractor
}

// Orchestrator fetches every page of a source concurrently and merges the
// per-page results in ascending page order.
type Orchestrator struct {
	fetcher PageFetcher
	pool    *task.Pool
	metrics *Metrics
}

// NewOrchestrator builds an orchestrator. A nil pool runs every page at once.
func NewOrchestrator(fetcher PageFetcher, pool *task.Pool, metrics *Metrics) *Orchestrator {
	if pool == nil {
		pool = task.NewPool(0)
	}
	return &Orchestrator{fetcher: fetcher, pool: pool, metrics: metrics}
}

// FetchAllPages collects the reviews of pages 1..totalPages.
//
// firstPage is the already fetched markup of page 1 and is parsed without a
// new request; a nil firstPage is fetched like any other page. Pages 2..N
// are scheduled together. A failing page never aborts its siblings: it is
// recorded in the failed-page manifest and contributes no records.
func (o *Orchestrator) FetchAllPages(ctx context.Context, src Source, firstPage []byte, totalPages int) models.SourceResult {
	if totalPages <= 0 {
		return models.SourceResult{TotalPages: 0, Records: []models.ReviewRecord{}}
	}

	futures := make([]*task.Future[[]models.ReviewRecord], 0, totalPages)
	futures = append(futures, task.Submit(o.pool, func() ([]models.ReviewRecord, error) {
		if firstPage == nil {
			return o.fetchPage(ctx, src, 1)
		}
		return o.parsePage(src, firstPage)
	}))
	for page := 2; page <= totalPages; page++ {
		page := page
		futures = append(futures, task.Submit(o.pool, func() ([]models.ReviewRecord, error) {
			return o.fetchPage(ctx, src, page)
		}))
	}

	results := task.JoinAll(futures)
	outcomes := make([]models.PageFetchOutcome, len(results))
	for i, r := range results {
		outcome := models.PageFetchOutcome{PageNumber: i + 1, Records: r.Value, Err: r.Err}
		if outcome.Failed() {
			outcome.Records = nil
			o.recordFailure(src.Name, outcome)
		} else {
			o.metrics.IncPage(src.Name, "ok")
		}
		outcomes[i] = outcome
	}

	result := MergeOutcomes(totalPages, outcomes)
	o.metrics.AddReviews(src.Name, len(result.Records))
	return result
}

// MergeOutcomes concatenates successful pages in ascending page order and
// lists the failed ones. outcomes may arrive in any order.
func MergeOutcomes(totalPages int, outcomes []models.PageFetchOutcome) models.SourceResult {
	byPage := make(map[int]models.PageFetchOutcome, len(outcomes))
	for _, outcome := range outcomes {
		byPage[outcome.PageNumber] = outcome
	}

	result := models.SourceResult{TotalPages: totalPages, Records: []models.ReviewRecord{}}
	for page := 1; page <= totalPages; page++ {
		outcome, ok := byPage[page]
		if !ok {
			continue
		}
		if outcome.Failed() {
			result.FailedPages = append(result.FailedPages, models.FailedPage{
				Page:     page,
				Category: ErrorTypeLabel(outcome.Err),
				Reason:   outcome.Err.Error(),
			})
			continue
		}
		result.Records = append(result.Records, outcome.Records...)
	}
	return result
}

func (o *Orchestrator) fetchPage(ctx context.Context, src Source, page int) ([]models.ReviewRecord, error) {
	start := time.Now()
	o.metrics.IncRequest(src.Name)
	markup, err := o.fetcher.Fetch(ctx, src.PageURL(page))
	o.metrics.ObserveDuration(src.Name, time.Since(start))
	if err != nil {
		return nil, err
	}
	return o.parsePage(src, markup)
}

func (o *Orchestrator) parsePage(src Source, markup []byte) ([]models.ReviewRecord, error) {
	records, err := src.Extractor.Extract(markup)
	if err != nil {
		return nil, classifyParse(err)
	}
	return records, nil
}

func (o *Orchestrator) recordFailure(source string, outcome models.PageFetchOutcome) {
	category := ErrorTypeLabel(outcome.Err)
	o.metrics.IncPage(source, "failed")
	o.metrics.IncError(source, category)
	slog.Warn("page failed",
		slog.String("source", source),
		slog.Int("page", outcome.PageNumber),
		slog.String("category", category),
		slog.Any("error", outcome.Err),
	)
}
