package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/logging"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
	"github.com/aluiziolira/go-scrape-reviews/sentiment"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultCfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		return 1
	}

	isbn := flag.String("isbn", "", "ISBN of the book to harvest")
	catalogURL := flag.String("goodreads-url", "", "Catalog book page URL; may contain {page} or {page_no}")
	reviewCount := flag.Int("review-count", 0, "Expected number of catalog reviews")
	parallelism := flag.Int("parallel", defaultCfg.Parallelism, "Per-domain request parallelism (0 = unlimited)")
	maxConcurrency := flag.Int("max-concurrency", defaultCfg.MaxConcurrency, "Page tasks in flight across both sources (0 = unlimited)")
	rps := flag.Float64("rps", defaultCfg.RequestsPerSecond, "Requests per second (0 = unlimited)")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Per-page request timeout")
	classifierKind := flag.String("classifier", defaultCfg.Classifier, "Sentiment classifier: model or remote")
	modelPath := flag.String("model", defaultCfg.ModelPath, "Naive Bayes model file")
	classifierURL := flag.String("classifier-url", defaultCfg.ClassifierURL, "Remote classifier endpoint")
	outputFile := flag.String("output", defaultCfg.OutputFile, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", defaultCfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	trainFile := flag.String("train", "", "Train a model from a tab-separated text/label file and write it to -model")
	verbose := flag.Bool("v", defaultCfg.Verbose, "Enable verbose logging")

	flag.Parse()

	logging.Setup(os.Stderr, *verbose)

	cfg := defaultCfg
	cfg.Parallelism = *parallelism
	cfg.MaxConcurrency = *maxConcurrency
	cfg.RequestsPerSecond = *rps
	cfg.Timeout = *timeout
	cfg.Classifier = strings.ToLower(*classifierKind)
	cfg.ModelPath = *modelPath
	cfg.ClassifierURL = *classifierURL
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if *trainFile != "" {
		if err := trainModel(*trainFile, cfg.ModelPath); err != nil {
			slog.Error("training failed", slog.Any("error", err))
			return 1
		}
		return 0
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}
	if strings.TrimSpace(*isbn) == "" {
		slog.Error("missing -isbn")
		return 2
	}

	classifier, err := sentiment.New(cfg.Classifier, cfg.ModelPath, cfg.ClassifierURL, cfg.ClassifierTimeout)
	if err != nil {
		slog.Error("initialising classifier", slog.Any("error", err))
		return 1
	}

	metrics := scraper.NewMetrics()
	agg, err := pipeline.NewAggregatorFromConfig(cfg, classifier, metrics)
	if err != nil {
		slog.Error("initialising aggregator", slog.Any("error", err))
		return 1
	}

	sink, err := pipeline.OpenSink(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("opening output", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	slog.Info("starting harvest",
		slog.String("isbn", *isbn),
		slog.String("goodreads_url", *catalogURL),
		slog.Int("review_count", *reviewCount),
	)

	startTime := time.Now()
	set := agg.Aggregate(ctx, *isbn, *catalogURL, *reviewCount)

	report, exportErr := pipeline.Export(ctx, set, sink)
	closeErr := sink.Close()
	if exportErr != nil {
		slog.Error("export failed", slog.Any("error", exportErr))
		return 1
	}
	if closeErr != nil {
		slog.Error("closing output failed", slog.Any("error", closeErr))
		return 1
	}

	printSummary(set, report, time.Since(startTime), cfg.OutputFile)
	return 0
}

// trainModel reads "text<TAB>label" rows after a header line. Rows labelled
// positive (any case) are positive, everything else negative.
func trainModel(dataPath, modelPath string) error {
	f, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("open training data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	var samples []sentiment.Sample
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read training row: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		samples = append(samples, sentiment.Sample{
			Text:     row[0],
			Positive: strings.EqualFold(strings.TrimSpace(row[1]), "positive"),
		})
	}
	if len(samples) == 0 {
		return fmt.Errorf("no training rows in %s", dataPath)
	}

	model := sentiment.Train(samples, 2, 0.1)
	if err := model.Save(modelPath); err != nil {
		return err
	}
	slog.Info("model trained",
		slog.Int("samples", len(samples)),
		slog.Int("features", len(model.FeatureLogProb)),
		slog.String("path", modelPath),
	)
	return nil
}

func printSummary(set models.AggregatedReviewSet, report pipeline.Report, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Harvest complete")

	for _, name := range models.SourceOrder {
		result := set.BySource[name]
		fmt.Printf("  %-13s %d reviews from %d page(s)", name+":", len(result.Records), result.TotalPages)
		if len(result.FailedPages) > 0 {
			fmt.Printf(", failed pages %v", result.FailedPageNumbers())
		}
		fmt.Println()
	}

	fmt.Printf("  Total:         %d\n", set.Total())
	if set.HasSentiments() {
		fmt.Printf("  Sentiments:    %d scored\n", len(set.Sentiments))
	} else {
		fmt.Printf("  Sentiments:    unavailable, %d review(s) exported unscored\n", report.Unscored)
	}
	fmt.Printf("  Exported:      %d\n", report.Written)
	if len(report.Skipped) > 0 {
		fmt.Printf("  Skipped:       %v\n", report.Skipped)
	}
	if report.FailedPages > 0 {
		fmt.Printf("  Failed pages:  %d recorded in the output manifest\n", report.FailedPages)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}
