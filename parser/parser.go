// Package parser turns raw review page markup into review records.
package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

const (
	// TitleLength is the number of body characters kept in a synthesised title.
	TitleLength = 50
	// Ellipsis marks a synthesised title.
	Ellipsis = "..."
	// MaxRating is the highest star rating either source exposes.
	MaxRating = 5
)

// Extractor parses the markup of one page into review records.
//
// It returns ErrMissingContainer when the page has no review container.
// Nodes that do not match the expected review shape are skipped and
// logged; they never fail the page.
type Extractor interface {
	Extract(markup []byte) ([]models.ReviewRecord, error)
}

// NewDocument parses markup into a goquery document.
func NewDocument(markup []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, ErrMalformedMarkup{Err: err}
	}
	return doc, nil
}

// ValidateReview ensures the record honours the review invariants.
func ValidateReview(r *models.ReviewRecord) error {
	if r == nil {
		return fmt.Errorf("review is nil")
	}
	if r.Rating < 0 || r.Rating > MaxRating {
		return fmt.Errorf("rating %d out of range", r.Rating)
	}
	return nil
}

// NormalizeText collapses runs of whitespace and trims the result.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SynthesizeTitle derives a title from the first TitleLength characters of body.
func SynthesizeTitle(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if utf8.RuneCountInString(body) <= TitleLength {
		return body + Ellipsis
	}
	runes := []rune(body)
	return string(runes[:TitleLength]) + Ellipsis
}

// RatingFromStarClass converts a class list carrying an "a-star-N" token to N.
// Unknown or out of range tokens yield 0.
func RatingFromStarClass(class string) int {
	for _, token := range strings.Fields(class) {
		value, ok := strings.CutPrefix(token, "a-star-")
		if !ok {
			continue
		}
		// "a-star-4-5" style half stars round down.
		value, _, _ = strings.Cut(value, "-")
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return ClampRating(n)
	}
	return 0
}

// ClampRating forces n into the 0..MaxRating range.
func ClampRating(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxRating:
		return MaxRating
	default:
		return n
	}
}

// collect runs build over every node and keeps the records that succeed.
func collect(source string, nodes *goquery.Selection, build func(*goquery.Selection) (models.ReviewRecord, error)) []models.ReviewRecord {
	records := make([]models.ReviewRecord, 0, nodes.Length())
	nodes.Each(func(i int, node *goquery.Selection) {
		record, err := build(node)
		if err == nil {
			err = ValidateReview(&record)
		}
		if err != nil {
			slog.Warn("dropping malformed review",
				slog.String("source", source),
				slog.Int("node", i),
				slog.Any("error", err),
			)
			return
		}
		records = append(records, record)
	})
	return records
}
