package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
)

type call struct {
	isbn, url string
	count     int
}

type fakeAggregator struct {
	mu    sync.Mutex
	calls []call
	set   models.AggregatedReviewSet
	panic bool
}

func (f *fakeAggregator) Aggregate(_ context.Context, isbn, catalogURL string, count int) models.AggregatedReviewSet {
	f.mu.Lock()
	f.calls = append(f.calls, call{isbn: isbn, url: catalogURL, count: count})
	f.mu.Unlock()
	if f.panic {
		panic("aggregator exploded")
	}
	return f.set
}

func (f *fakeAggregator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleSet() models.AggregatedReviewSet {
	return models.AggregatedReviewSet{
		BySource: map[string]models.SourceResult{
			models.SourceStorefront: {
				TotalPages: 2,
				Records:    []models.ReviewRecord{{Author: "Ann", Body: "great book", Title: "Great", Rating: 5}},
			},
			models.SourceCatalog: {
				TotalPages: 1,
				Records:    []models.ReviewRecord{{Author: "Bo", Body: "bad book", Title: "bad book...", Rating: 1}},
			},
		},
		Sentiments: []float64{0.9, 0.1},
	}
}

func newTestServer(t *testing.T, agg Aggregator) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CacheSize = 8
	cfg.CacheTTL = time.Minute
	return newHTTPTestServer(t, New(agg, cfg, scraper.NewMetrics()))
}

func newHTTPTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestGetReviews(t *testing.T) {
	agg := &fakeAggregator{set: sampleSet()}
	srv := newTestServer(t, agg)

	resp, body := get(t, srv.URL+"/v1/reviews/0451524934?goodreads_url=https://catalog.test/book/show/1&review_count=42")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out ReviewsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, "0451524934", out.ISBN)
	require.Equal(t, 2, out.Total)
	require.True(t, out.Scored)
	require.Equal(t, []float64{0.9, 0.1}, out.Sentiments)
	require.Equal(t, 2, out.Sources[models.SourceStorefront].TotalPages)
	require.NotNil(t, out.Sources[models.SourceCatalog].Reviews[0].Sentiment)
	require.Equal(t, 0.1, *out.Sources[models.SourceCatalog].Reviews[0].Sentiment)
	require.Equal(t, "bad book", out.Sources[models.SourceCatalog].Reviews[0].Body)

	require.Equal(t, []call{{isbn: "0451524934", url: "https://catalog.test/book/show/1", count: 42}}, agg.calls)
}

func TestGetReviewsCachesCompleteAggregates(t *testing.T) {
	agg := &fakeAggregator{set: sampleSet()}
	srv := newTestServer(t, agg)
	url := srv.URL + "/v1/reviews/9780451524935"

	first, _ := get(t, url)
	second, _ := get(t, url)

	require.Equal(t, "miss", first.Header.Get("X-Cache"))
	require.Equal(t, "hit", second.Header.Get("X-Cache"))
	require.Equal(t, 1, agg.callCount())
}

func TestGetReviewsSkipsCacheWhenDegraded(t *testing.T) {
	set := sampleSet()
	set.Sentiments = []float64{}
	agg := &fakeAggregator{set: set}
	srv := newTestServer(t, agg)
	url := srv.URL + "/v1/reviews/9780451524935"

	get(t, url)
	resp, body := get(t, url)

	require.Equal(t, "miss", resp.Header.Get("X-Cache"))
	require.Equal(t, 2, agg.callCount())

	var out ReviewsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.False(t, out.Scored)
	require.Empty(t, out.Sentiments)
	require.Len(t, out.Sources[models.SourceStorefront].Reviews, 1)
	require.Nil(t, out.Sources[models.SourceStorefront].Reviews[0].Sentiment)
	require.NotContains(t, string(body), `"sentiment":`)
}

func TestGetReviewsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "short isbn", path: "/v1/reviews/12345"},
		{name: "letters", path: "/v1/reviews/04515ABCDE"},
		{name: "negative count", path: "/v1/reviews/0451524934?review_count=-1"},
		{name: "non numeric count", path: "/v1/reviews/0451524934?review_count=many"},
		{name: "count without url", path: "/v1/reviews/0451524934?review_count=10"},
		{name: "relative url", path: "/v1/reviews/0451524934?review_count=10&goodreads_url=/book/1"},
	}

	agg := &fakeAggregator{set: sampleSet()}
	srv := newTestServer(t, agg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
			require.Contains(t, string(body), `"status":400`)
		})
	}
	require.Equal(t, 0, agg.callCount())
}

func TestGetReviewsRecoversFromPanic(t *testing.T) {
	srv := newTestServer(t, &fakeAggregator{panic: true})

	resp, body := get(t, srv.URL+"/v1/reviews/0451524934")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.NotContains(t, string(body), "aggregator exploded")

	_, body = get(t, srv.URL+"/metrics")
	require.Regexp(t, `reviews_http_requests_total\{method="GET",route="/v1/reviews/\{isbn\}",status="500"\} 1`, string(body))
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeAggregator{set: sampleSet()})

	resp, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	get(t, srv.URL+"/v1/reviews/0451524934")
	resp, body = get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "reviews_http_requests_total"))
	require.Contains(t, string(body), `route="/v1/reviews/{isbn}"`)
}

func TestValidISBN(t *testing.T) {
	tests := map[string]bool{
		"0451524934":     true,
		"043942089X":     true,
		"978-0451524935": true,
		"9780451524935":  true,
		"97804515249X5":  false,
		"":               false,
		"12345":          false,
	}
	for isbn, want := range tests {
		require.Equal(t, want, validISBN(isbn), isbn)
	}
}
