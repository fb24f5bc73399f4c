package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-reviews/config"
)

const (
	ctxBodyKey   = "body"
	ctxStatusKey = "status"
)

// PageFetcher issues one read for one page URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetcher is a PageFetcher backed by a synchronous colly collector.
// Every call is a single GET with the configured timeout and user agent;
// failures are reported once and never retried.
type Fetcher struct {
	collector *colly.Collector
	limiter   *rate.Limiter
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		// The catalog source may be read from the same URL more than once.
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if cfg.Parallelism > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: cfg.Parallelism,
			Delay:       cfg.Delay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limits: %w", err)
		}
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBodyKey, r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxStatusKey, r.StatusCode)
		}
	})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Fetcher{collector: collector, limiter: limiter}, nil
}

// WithTransport swaps the HTTP transport used by the collector.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch returns the raw markup of url or a typed failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, classifyError(err, 0)
	}

	cctx := colly.NewContext()
	err := f.collector.Request(http.MethodGet, url, nil, cctx, nil)
	status, _ := cctx.GetAny(ctxStatusKey).(int)
	if err != nil {
		return nil, classifyError(err, status)
	}

	body, ok := cctx.GetAny(ctxBodyKey).([]byte)
	if !ok {
		return nil, ErrConnection{Err: errors.New("no response body")}
	}
	return body, nil
}
