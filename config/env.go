package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvFloat parses key as a float.
func EnvFloat(key string) (float64, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return f, true, nil
}

// EnvDuration parses key as a time.Duration ("750ms", "10s").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// FromEnv returns DefaultConfig overridden by REVIEWS_* variables.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()

	stringVars := map[string]*string{
		"REVIEWS_STOREFRONT_URL": &cfg.StorefrontURLTemplate,
		"REVIEWS_USER_AGENT":     &cfg.UserAgent,
		"REVIEWS_CLASSIFIER":     &cfg.Classifier,
		"REVIEWS_MODEL_PATH":     &cfg.ModelPath,
		"REVIEWS_CLASSIFIER_URL": &cfg.ClassifierURL,
		"REVIEWS_HTTP_ADDR":      &cfg.HTTPAddr,
		"REVIEWS_METRICS_ADDR":   &cfg.MetricsAddr,
		"REVIEWS_OUTPUT":         &cfg.OutputFile,
		"REVIEWS_FORMAT":         &cfg.OutputFormat,
		"REVIEWS_REDIS_ADDR":     &cfg.RedisAddr,
		"REVIEWS_REDIS_PASSWORD": &cfg.RedisPassword,
	}
	for key, dst := range stringVars {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"REVIEWS_CATALOG_PAGE_SIZE": &cfg.CatalogPageSize,
		"REVIEWS_PARALLEL":          &cfg.Parallelism,
		"REVIEWS_MAX_CONCURRENCY":   &cfg.MaxConcurrency,
		"REVIEWS_CACHE_SIZE":        &cfg.CacheSize,
		"REVIEWS_REDIS_DB":          &cfg.RedisDB,
	}
	for key, dst := range ints {
		value, ok, err := EnvInt(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"REVIEWS_TIMEOUT":            &cfg.Timeout,
		"REVIEWS_DELAY":              &cfg.Delay,
		"REVIEWS_CLASSIFIER_TIMEOUT": &cfg.ClassifierTimeout,
		"REVIEWS_CACHE_TTL":          &cfg.CacheTTL,
	}
	for key, dst := range durations {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = value
		}
	}

	rps, ok, err := EnvFloat("REVIEWS_RPS")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.RequestsPerSecond = rps
	}

	return cfg, nil
}
