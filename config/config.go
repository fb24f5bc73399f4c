package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Placeholders expanded in source URL templates.
const (
	ISBNPlaceholder = "{isbn}"
	PagePlaceholder = "{page}"

	// PageNoPlaceholder is accepted in catalog URLs as an alias of PagePlaceholder.
	PageNoPlaceholder = "{page_no}"
)

// Config holds harvester configuration.
type Config struct {
	StorefrontURLTemplate string
	CatalogPageSize       int
	UserAgent             string
	Timeout               time.Duration
	Parallelism           int     // colly per-domain parallelism, 0 = unlimited
	Delay                 time.Duration
	RequestsPerSecond     float64 // 0 = unlimited
	MaxConcurrency        int     // page tasks in flight across all sources and requests, 0 = unlimited

	Classifier        string // model or remote
	ModelPath         string
	ClassifierURL     string
	ClassifierTimeout time.Duration

	HTTPAddr    string
	MetricsAddr string
	CacheSize   int
	CacheTTL    time.Duration

	// RedisAddr switches the response cache to Redis when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OutputFile   string
	OutputFormat string // csv, json, or dual

	Verbose bool
}

// DefaultConfig returns defaults matching the storefront's public review pages.
func DefaultConfig() *Config {
	return &Config{
		StorefrontURLTemplate: "http://www.amazon.in/product-reviews/{isbn}/?showViewpoints=1&pageNumber={page}",
		CatalogPageSize:       30,
		UserAgent:             "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:49.0) Gecko/20100101 Firefox/49.0",
		Timeout:               10 * time.Second,
		Parallelism:           0,
		Delay:                 0,
		RequestsPerSecond:     0,
		MaxConcurrency:        0,
		Classifier:            "model",
		ModelPath:             "data/sentiment_model.json",
		ClassifierURL:         "",
		ClassifierTimeout:     30 * time.Second,
		HTTPAddr:              ":8080",
		MetricsAddr:           "",
		CacheSize:             256,
		CacheTTL:              10 * time.Minute,
		OutputFile:            "output/reviews.csv",
		OutputFormat:          "csv",
		Verbose:               false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.StorefrontURLTemplate == "" {
		return fmt.Errorf("storefront URL template cannot be empty")
	}
	if !strings.Contains(c.StorefrontURLTemplate, ISBNPlaceholder) || !strings.Contains(c.StorefrontURLTemplate, PagePlaceholder) {
		return fmt.Errorf("storefront URL template must contain %s and %s", ISBNPlaceholder, PagePlaceholder)
	}
	parsedURL, err := url.Parse(strings.NewReplacer(ISBNPlaceholder, "x", PagePlaceholder, "1").Replace(c.StorefrontURLTemplate))
	if err != nil {
		return fmt.Errorf("invalid storefront URL template: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("storefront URL template must include a host")
	}

	if c.CatalogPageSize <= 0 {
		return fmt.Errorf("catalog page size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency cannot be negative")
	}

	switch c.Classifier {
	case "model":
		if c.ModelPath == "" {
			return fmt.Errorf("model path cannot be empty for the model classifier")
		}
	case "remote":
		if c.ClassifierURL == "" {
			return fmt.Errorf("classifier URL cannot be empty for the remote classifier")
		}
		if _, err := url.ParseRequestURI(c.ClassifierURL); err != nil {
			return fmt.Errorf("invalid classifier URL: %w", err)
		}
	default:
		return fmt.Errorf("classifier must be model or remote")
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("classifier timeout must be positive")
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis db cannot be negative")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}

// StorefrontURL expands the storefront template for one page.
func (c *Config) StorefrontURL(isbn string, page int) string {
	return strings.NewReplacer(
		ISBNPlaceholder, url.PathEscape(isbn),
		PagePlaceholder, fmt.Sprint(page),
	).Replace(c.StorefrontURLTemplate)
}

// HasPagePlaceholder reports whether a catalog URL carries a page placeholder.
func HasPagePlaceholder(pageURL string) bool {
	return strings.Contains(pageURL, PagePlaceholder) || strings.Contains(pageURL, PageNoPlaceholder)
}

// CatalogPageURL fills the page placeholders of a catalog URL.
func CatalogPageURL(pageURL string, page int) string {
	n := strconv.Itoa(page)
	return strings.NewReplacer(PagePlaceholder, n, PageNoPlaceholder, n).Replace(pageURL)
}
