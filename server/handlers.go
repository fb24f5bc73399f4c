package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// SourceView is the per-source part of a ReviewsResponse.
type SourceView struct {
	TotalPages  int                   `json:"total_pages"`
	FailedPages []models.FailedPage   `json:"failed_pages"`
	Reviews     []models.ScoredReview `json:"reviews"`
}

// ReviewsResponse is the body of GET /v1/reviews/{isbn}.
type ReviewsResponse struct {
	ISBN       string                `json:"isbn"`
	Total      int                   `json:"total"`
	Scored     bool                  `json:"scored"`
	Sources    map[string]SourceView `json:"sources"`
	Sentiments []float64             `json:"sentiments"`
}

// NewReviewsResponse shapes an aggregate for the wire.
func NewReviewsResponse(isbn string, set models.AggregatedReviewSet) ReviewsResponse {
	resp := ReviewsResponse{
		ISBN:       isbn,
		Total:      set.Total(),
		Scored:     set.HasSentiments(),
		Sources:    make(map[string]SourceView, len(models.SourceOrder)),
		Sentiments: set.Sentiments,
	}
	if resp.Sentiments == nil {
		resp.Sentiments = []float64{}
	}
	for _, name := range models.SourceOrder {
		result := set.BySource[name]
		failed := result.FailedPages
		if failed == nil {
			failed = []models.FailedPage{}
		}
		resp.Sources[name] = SourceView{
			TotalPages:  result.TotalPages,
			FailedPages: failed,
			Reviews:     set.Annotated(name),
		}
	}
	return resp
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		slog.Error("write problem response failed", slog.Any("error", err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response failed", slog.Any("error", err))
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// validISBN accepts ISBN-10/13 digits with optional hyphens and a trailing X.
func validISBN(isbn string) bool {
	digits := strings.ReplaceAll(isbn, "-", "")
	if len(digits) != 10 && len(digits) != 13 {
		return false
	}
	for i, r := range digits {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == 'X' || r == 'x') && i == len(digits)-1 && len(digits) == 10 {
			continue
		}
		return false
	}
	return true
}

type reviewsQuery struct {
	isbn        string
	catalogURL  string
	reviewCount int
}

func (q reviewsQuery) cacheKey() string {
	return fmt.Sprintf("%s|%s|%d", q.isbn, q.catalogURL, q.reviewCount)
}

func parseReviewsQuery(r *http.Request) (reviewsQuery, string) {
	q := reviewsQuery{
		isbn:       strings.TrimSpace(chi.URLParam(r, "isbn")),
		catalogURL: strings.TrimSpace(r.URL.Query().Get("goodreads_url")),
	}
	if !validISBN(q.isbn) {
		return q, "isbn must be an ISBN-10 or ISBN-13"
	}

	if raw := r.URL.Query().Get("review_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, "review_count must be a non-negative integer"
		}
		q.reviewCount = n
	}

	if q.reviewCount > 0 {
		if q.catalogURL == "" {
			return q, "goodreads_url is required when review_count is positive"
		}
		u, err := url.Parse(q.catalogURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return q, "goodreads_url must be an absolute http(s) URL"
		}
	}
	return q, ""
}

func (s *Server) getReviews(w http.ResponseWriter, r *http.Request) {
	q, invalid := parseReviewsQuery(r)
	if invalid != "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", invalid)
		return
	}

	key := q.cacheKey()
	if s.cache != nil {
		if set, ok := s.cache.Get(r.Context(), key); ok {
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, http.StatusOK, NewReviewsResponse(q.isbn, set))
			return
		}
	}

	set := s.agg.Aggregate(r.Context(), q.isbn, q.catalogURL, q.reviewCount)
	if r.Context().Err() != nil {
		return
	}
	// Only complete aggregates are cached.
	if s.cache != nil && complete(set) {
		s.cache.Add(r.Context(), key, set)
	}
	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, NewReviewsResponse(q.isbn, set))
}

func complete(set models.AggregatedReviewSet) bool {
	if !set.HasSentiments() {
		return false
	}
	for _, result := range set.BySource {
		if len(result.FailedPages) > 0 {
			return false
		}
	}
	return true
}
