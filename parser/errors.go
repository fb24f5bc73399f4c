package parser

import (
	"errors"
	"fmt"
)

// ErrMissingContainer indicates the page lacks the review container element.
// A source that blocks the scraper usually serves such a page.
var ErrMissingContainer = errors.New("parser: review container missing")

// ErrMissingField indicates a review node lacks a required child element.
type ErrMissingField struct {
	Field string
}

func (e ErrMissingField) Error() string {
	return fmt.Sprintf("parser: missing field %q", e.Field)
}

// ErrMalformedMarkup indicates the markup could not be read into a document.
type ErrMalformedMarkup struct {
	Err error
}

func (e ErrMalformedMarkup) Error() string {
	return fmt.Errorf("parser: malformed markup: %w", e.Err).Error()
}

func (e ErrMalformedMarkup) Unwrap() error {
	return e.Err
}
