// Package sentiment scores review texts. Scores are the probability that a
// text is positive, in [0, 1].
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Classifier scores a batch of texts. The result has one score per input,
// in input order.
type Classifier interface {
	Predict(ctx context.Context, texts []string) ([]float64, error)
}

// ErrLengthMismatch is returned when a classifier answers with a different
// number of scores than texts it was given.
type ErrLengthMismatch struct {
	Want int
	Got  int
}

func (e ErrLengthMismatch) Error() string {
	return fmt.Sprintf("classifier returned %d scores for %d texts", e.Got, e.Want)
}

// ErrUnavailable wraps a failure to reach or decode the classifier.
type ErrUnavailable struct {
	Err error
}

func (e ErrUnavailable) Error() string {
	return fmt.Errorf("classifier unavailable: %w", e.Err).Error()
}

func (e ErrUnavailable) Unwrap() error {
	return e.Err
}

// CheckAligned verifies that scores line up with texts.
func CheckAligned(texts []string, scores []float64) error {
	if len(scores) != len(texts) {
		return ErrLengthMismatch{Want: len(texts), Got: len(scores)}
	}
	return nil
}

// Func adapts a plain function to a Classifier.
type Func func(ctx context.Context, texts []string) ([]float64, error)

// Predict implements Classifier.
func (f Func) Predict(ctx context.Context, texts []string) ([]float64, error) {
	return f(ctx, texts)
}

// Static returns the score stored for each text and Default otherwise.
type Static struct {
	Scores  map[string]float64
	Default float64
}

// Predict implements Classifier.
func (s Static) Predict(_ context.Context, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	for i, text := range texts {
		score, ok := s.Scores[text]
		if !ok {
			score = s.Default
		}
		out[i] = score
	}
	return out, nil
}

// Failing always returns Err.
type Failing struct {
	Err error
}

// Predict implements Classifier.
func (f Failing) Predict(context.Context, []string) ([]float64, error) {
	if f.Err == nil {
		return nil, ErrUnavailable{Err: errors.New("failing classifier")}
	}
	return nil, f.Err
}

// New builds the classifier selected by kind: "model" loads the naive Bayes
// model at modelPath, "remote" talks to the service at url.
func New(kind, modelPath, url string, timeout time.Duration) (Classifier, error) {
	switch kind {
	case "remote":
		r, err := NewRemote(url, timeout, 0)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "model", "":
		m, err := LoadModel(modelPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", kind)
	}
}
