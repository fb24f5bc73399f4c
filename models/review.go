// Package models defines data structures for the review harvester.
package models

// Source names used as keys in an AggregatedReviewSet.
const (
	SourceStorefront = "amazon"
	SourceCatalog    = "goodreads"
)

// ReviewRecord is one user review normalised from either source.
type ReviewRecord struct {
	Author string `csv:"author" json:"author,omitempty"`
	Date   string `csv:"date" json:"date"`
	Rating int    `csv:"rating" json:"rating"` // 0 when the rating markup is absent
	Body   string `csv:"body" json:"body"`
	Title  string `csv:"title" json:"title"`
}

// PageFetchOutcome is the result of fetching and parsing a single page.
// Exactly one of Records or Err is meaningful: Err != nil means the page failed.
type PageFetchOutcome struct {
	PageNumber int
	Records    []ReviewRecord
	Err        error
}

// Failed reports whether the page contributed no records because of an error.
func (o PageFetchOutcome) Failed() bool {
	return o.Err != nil
}

// FailedPage is one entry of the failed-page manifest.
type FailedPage struct {
	Page     int    `json:"page"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// SourceResult aggregates every page fetched from one source.
type SourceResult struct {
	TotalPages  int            `json:"total_pages"`
	Records     []ReviewRecord `json:"records"`
	FailedPages []FailedPage   `json:"failed_pages,omitempty"`
}

// FailedPageNumbers returns the page numbers of the failed-page manifest.
func (r SourceResult) FailedPageNumbers() []int {
	out := make([]int, 0, len(r.FailedPages))
	for _, fp := range r.FailedPages {
		out = append(out, fp.Page)
	}
	return out
}

// ScoredReview pairs a review with the sentiment score at its flattened index.
// Sentiment is nil when the set carries no scores.
type ScoredReview struct {
	Source string `csv:"source" json:"source"`
	ReviewRecord
	Sentiment *float64 `csv:"sentiment" json:"sentiment,omitempty"`
}

// Scored reports whether the review carries a sentiment score.
func (r ScoredReview) Scored() bool {
	return r.Sentiment != nil
}

// AggregatedReviewSet is the merged result for both sources.
//
// Sentiments is aligned with the flattened sequence produced by Flatten:
// every storefront record first, then every catalog record. It is empty
// when the classifier failed.
type AggregatedReviewSet struct {
	BySource   map[string]SourceResult `json:"by_source"`
	Sentiments []float64               `json:"sentiments"`
}

// SourceOrder is the fixed concatenation order used for the corpus.
var SourceOrder = []string{SourceStorefront, SourceCatalog}

// Flatten returns the records of both sources in corpus order.
func (s AggregatedReviewSet) Flatten() []ReviewRecord {
	out := make([]ReviewRecord, 0, s.Total())
	for _, name := range SourceOrder {
		out = append(out, s.BySource[name].Records...)
	}
	return out
}

// Total is the overall review count across both sources.
func (s AggregatedReviewSet) Total() int {
	total := 0
	for _, name := range SourceOrder {
		total += len(s.BySource[name].Records)
	}
	return total
}

// HasSentiments reports whether scores are available for every record.
func (s AggregatedReviewSet) HasSentiments() bool {
	return len(s.Sentiments) == s.Total()
}

// Annotated returns the records of one source paired with their scores.
// Scores are left nil when sentiments are unavailable.
func (s AggregatedReviewSet) Annotated(source string) []ScoredReview {
	offset := 0
	for _, name := range SourceOrder {
		if name == source {
			break
		}
		offset += len(s.BySource[name].Records)
	}

	records := s.BySource[source].Records
	out := make([]ScoredReview, 0, len(records))
	scored := s.HasSentiments()
	for i, r := range records {
		sr := ScoredReview{Source: source, ReviewRecord: r}
		if scored {
			score := s.Sentiments[offset+i]
			sr.Sentiment = &score
		}
		out = append(out, sr)
	}
	return out
}

// ScoredAll returns every annotated record in corpus order.
func (s AggregatedReviewSet) ScoredAll() []ScoredReview {
	out := make([]ScoredReview, 0, s.Total())
	for _, name := range SourceOrder {
		out = append(out, s.Annotated(name)...)
	}
	return out
}
