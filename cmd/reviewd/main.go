package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/logging"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
	"github.com/aluiziolira/go-scrape-reviews/sentiment"
	"github.com/aluiziolira/go-scrape-reviews/server"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Separate Prometheus listen address; /metrics is always served on -addr")
	flag.StringVar(&cfg.Classifier, "classifier", cfg.Classifier, "Sentiment classifier: model or remote")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Naive Bayes model file")
	flag.StringVar(&cfg.ClassifierURL, "classifier-url", cfg.ClassifierURL, "Remote classifier endpoint")
	flag.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Cached aggregates (0 disables the cache)")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Cached aggregate lifetime")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for a shared response cache (empty = in-process cache)")
	flag.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	flag.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "Page tasks in flight across all sources and requests (0 = unlimited)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	flag.Parse()

	logging.Setup(os.Stdout, cfg.Verbose)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Loaded once and shared by every request.
	classifier, err := sentiment.New(cfg.Classifier, cfg.ModelPath, cfg.ClassifierURL, cfg.ClassifierTimeout)
	if err != nil {
		slog.Error("initialising classifier", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := scraper.NewMetrics()
	agg, err := pipeline.NewAggregatorFromConfig(cfg, classifier, metrics)
	if err != nil {
		slog.Error("initialising aggregator", slog.Any("error", err))
		os.Exit(1)
	}

	api := server.New(agg, cfg, metrics)
	defer func() {
		if err := api.Close(); err != nil {
			slog.Error("closing response cache", slog.Any("error", err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.String("classifier", cfg.Classifier))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.Any("error", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
