package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrStatus indicates a non-success HTTP status.
type ErrStatus struct {
	Code int
	Err  error
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e ErrStatus) Unwrap() error {
	return e.Err
}

// ErrBlocked indicates a page that was served without its review container.
// The remote side blocking the scraper and a page that simply holds no
// reviews look identical here.
type ErrBlocked struct {
	Err error
}

func (e ErrBlocked) Error() string {
	return fmt.Errorf("request blocked by remote server: %w", e.Err).Error()
}

func (e ErrBlocked) Unwrap() error {
	return e.Err
}

// ErrBranch wraps an unexpected failure of a whole source branch.
type ErrBranch struct {
	Source string
	Err    error
}

func (e ErrBranch) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e ErrBranch) Unwrap() error {
	return e.Err
}

// ErrorTypeLabel maps err to a stable label for logs and metrics.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrStatus
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		default:
			return "status"
		}
	}
	var blocked ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var malformed parser.ErrMalformedMarkup
	if errors.As(err, &malformed) {
		return "malformed"
	}
	var branch ErrBranch
	if errors.As(err, &branch) {
		return "branch"
	}
	return "other"
}

// classifyError converts a transport error and status code into the typed
// fetch failures above.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && (statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices || err != nil) {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		return ErrStatus{Code: statusCode, Err: wrapped}
	}

	if err == nil {
		return nil
	}
	return ErrConnection{Err: err}
}

// classifyParse turns an extraction error into a page failure.
func classifyParse(err error) error {
	if errors.Is(err, parser.ErrMissingContainer) {
		return ErrBlocked{Err: err}
	}
	return err
}
