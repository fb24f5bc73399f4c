package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
	"github.com/aluiziolira/go-scrape-reviews/sentiment"
	"github.com/aluiziolira/go-scrape-reviews/task"
)

// SourceRunner runs the per-source branches. *scraper.Runner implements it.
type SourceRunner interface {
	RunStorefront(ctx context.Context, isbn string) (models.SourceResult, error)
	RunCatalog(ctx context.Context, pageURL string, expectedReviews int) (models.SourceResult, error)
}

// Aggregator runs both source branches concurrently, merges their records,
// and scores the merged corpus in one classifier call.
type Aggregator struct {
	runner     SourceRunner
	classifier sentiment.Classifier
	metrics    *scraper.Metrics
}

// NewAggregator builds an aggregator. metrics may be nil.
func NewAggregator(runner SourceRunner, classifier sentiment.Classifier, metrics *scraper.Metrics) *Aggregator {
	return &Aggregator{runner: runner, classifier: classifier, metrics: metrics}
}

// Aggregate collects the reviews of one book from both sources.
//
// It never fails as a whole: a failed or panicking branch contributes an
// empty result, and a failed classifier call leaves Sentiments empty while
// keeping every record. Sentiments[i] scores the i-th record of Flatten.
func (a *Aggregator) Aggregate(ctx context.Context, isbn, catalogURL string, expectedReviewCount int) models.AggregatedReviewSet {
	pool := task.NewPool(0)
	futures := []*task.Future[models.SourceResult]{
		task.Submit(pool, func() (models.SourceResult, error) {
			return a.runner.RunStorefront(ctx, isbn)
		}),
		task.Submit(pool, func() (models.SourceResult, error) {
			return a.runner.RunCatalog(ctx, catalogURL, expectedReviewCount)
		}),
	}
	branches := []string{models.SourceStorefront, models.SourceCatalog}

	set := models.AggregatedReviewSet{
		BySource:   make(map[string]models.SourceResult, len(branches)),
		Sentiments: []float64{},
	}
	for i, r := range task.JoinAll(futures) {
		set.BySource[branches[i]] = a.branchResult(branches[i], r)
	}

	texts := corpus(set)
	start := time.Now()
	scored := task.Submit(nil, func() ([]float64, error) {
		return a.classifier.Predict(ctx, texts)
	}).Wait()
	scores, err := scored.Value, scored.Err
	if err == nil {
		err = sentiment.CheckAligned(texts, scores)
	}
	a.metrics.ObserveClassifier(time.Since(start), err)
	if err != nil {
		slog.Error("sentiment classification failed",
			slog.String("isbn", isbn),
			slog.Int("texts", len(texts)),
			slog.Any("error", err),
		)
		return set
	}
	if scores != nil {
		set.Sentiments = scores
	}
	return set
}

func (a *Aggregator) branchResult(source string, r task.Result[models.SourceResult]) models.SourceResult {
	if r.Ok() {
		if r.Value.Records == nil {
			r.Value.Records = []models.ReviewRecord{}
		}
		return r.Value
	}

	attrs := []any{slog.String("source", source), slog.Any("error", r.Err)}
	var panicErr *task.PanicError
	if errors.As(r.Err, &panicErr) {
		attrs = append(attrs, slog.String("stack", string(panicErr.Stack)))
	}
	slog.Error("source branch failed", attrs...)
	a.metrics.IncSourceFailure(source)
	return models.SourceResult{Records: []models.ReviewRecord{}}
}

// corpus lists review bodies in Flatten order.
func corpus(set models.AggregatedReviewSet) []string {
	records := set.Flatten()
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Body
	}
	return texts
}

// NewAggregatorFromConfig wires a colly fetcher, a page pool, and the
// source runner described by cfg around classifier. cfg.MaxConcurrency
// bounds that one pool, shared by both sources of every Aggregate call.
func NewAggregatorFromConfig(cfg *config.Config, classifier sentiment.Classifier, metrics *scraper.Metrics) (*Aggregator, error) {
	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	orchestrator := scraper.NewOrchestrator(fetcher, task.NewPool(cfg.MaxConcurrency), metrics)
	runner := scraper.NewRunner(cfg, fetcher, orchestrator)
	return NewAggregator(runner, classifier, metrics), nil
}
