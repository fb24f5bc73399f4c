package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// StorefrontSource is the storefront review listing of one ISBN.
func StorefrontSource(cfg *config.Config, isbn string) Source {
	return Source{
		Name: models.SourceStorefront,
		PageURL: func(page int) string {
			return cfg.StorefrontURL(isbn, page)
		},
		Extractor: parser.Storefront{},
	}
}

// CatalogSource is the cataloguing site page at pageURL. A {page} or
// {page_no} placeholder in pageURL is replaced by the page number; without
// one every page resolves to pageURL itself.
func CatalogSource(pageURL string) Source {
	return Source{
		Name: models.SourceCatalog,
		PageURL: func(page int) string {
			return config.CatalogPageURL(pageURL, page)
		},
		Extractor: parser.Catalog{},
	}
}

// CatalogPageCount is ceil(expectedReviews / pageSize).
func CatalogPageCount(expectedReviews, pageSize int) int {
	if expectedReviews <= 0 || pageSize <= 0 {
		return 0
	}
	return (expectedReviews + pageSize - 1) / pageSize
}

// Runner runs the fetch-all pipeline of each source.
type Runner struct {
	cfg          *config.Config
	fetcher      PageFetcher
	orchestrator *Orchestrator
}

// NewRunner builds a runner sharing one fetcher and orchestrator.
func NewRunner(cfg *config.Config, fetcher PageFetcher, orchestrator *Orchestrator) *Runner {
	return &Runner{cfg: cfg, fetcher: fetcher, orchestrator: orchestrator}
}

// RunStorefront fetches page 1, discovers the page count from it, then
// collects every page.
func (r *Runner) RunStorefront(ctx context.Context, isbn string) (models.SourceResult, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return models.SourceResult{}, ErrBranch{Source: models.SourceStorefront, Err: errors.New("empty isbn")}
	}

	start := time.Now()
	src := StorefrontSource(r.cfg, isbn)

	r.orchestrator.metrics.IncRequest(src.Name)
	first, err := r.fetcher.Fetch(ctx, src.PageURL(1))
	r.orchestrator.metrics.ObserveDuration(src.Name, time.Since(start))
	if err != nil {
		return firstPageFailure(r.orchestrator, src.Name, err), nil
	}

	totalPages, err := parser.ResolvePages(first)
	if err != nil {
		return firstPageFailure(r.orchestrator, src.Name, err), nil
	}

	result := r.orchestrator.FetchAllPages(ctx, src, first, totalPages)
	logSummary(src.Name, result, time.Since(start))
	return result, nil
}

// RunCatalog collects the catalog reviews of pageURL. The page count comes
// from expectedReviews; zero expected reviews issues no request at all.
func (r *Runner) RunCatalog(ctx context.Context, pageURL string, expectedReviews int) (models.SourceResult, error) {
	totalPages := CatalogPageCount(expectedReviews, r.cfg.CatalogPageSize)
	if totalPages == 0 {
		return models.SourceResult{TotalPages: 0, Records: []models.ReviewRecord{}}, nil
	}

	parsed, err := url.Parse(config.CatalogPageURL(pageURL, 1))
	if err != nil || parsed.Host == "" {
		return models.SourceResult{}, ErrBranch{Source: models.SourceCatalog, Err: fmt.Errorf("invalid catalog url %q", pageURL)}
	}
	// Without a page placeholder every page is the same document: only the
	// page that is actually fetched is counted.
	if !config.HasPagePlaceholder(pageURL) {
		totalPages = 1
	}

	start := time.Now()
	src := CatalogSource(pageURL)
	result := r.orchestrator.FetchAllPages(ctx, src, nil, totalPages)
	logSummary(src.Name, result, time.Since(start))
	return result, nil
}

func firstPageFailure(o *Orchestrator, source string, err error) models.SourceResult {
	outcome := models.PageFetchOutcome{PageNumber: 1, Err: classifyParse(err)}
	o.recordFailure(source, outcome)
	return MergeOutcomes(1, []models.PageFetchOutcome{outcome})
}

func logSummary(source string, result models.SourceResult, elapsed time.Duration) {
	slog.Info("fetched reviews",
		slog.String("source", source),
		slog.Int("pages", result.TotalPages),
		slog.Int("failed_pages", len(result.FailedPages)),
		slog.Int("reviews", len(result.Records)),
		slog.Duration("duration", elapsed),
	)
}
