// Package server exposes review aggregation over HTTP.
package server

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
)

// Aggregator produces the merged review set of one book.
// *pipeline.Aggregator implements it.
type Aggregator interface {
	Aggregate(ctx context.Context, isbn, catalogURL string, expectedReviewCount int) models.AggregatedReviewSet
}

// Server routes review requests to an Aggregator.
type Server struct {
	mux     *chi.Mux
	agg     Aggregator
	metrics *scraper.Metrics
	cache   Cache
}

// New builds the router. The response cache is chosen by NewCache.
func New(agg Aggregator, cfg *config.Config, metrics *scraper.Metrics) *Server {
	m := chi.NewRouter()
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(Metrics(metrics))
	m.Use(Logger)
	// Innermost, so a recovered panic is still logged and counted as a 500.
	m.Use(chimw.Recoverer)

	s := &Server{mux: m, agg: agg, metrics: metrics, cache: NewCache(cfg)}

	m.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	m.Get("/v1/reviews/{isbn}", s.getReviews)
	if metrics != nil {
		m.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Close releases the response cache.
func (s *Server) Close() error {
	if c, ok := s.cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
