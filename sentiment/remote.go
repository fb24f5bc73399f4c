package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Remote scores texts through an HTTP classification service.
//
// The request body is a JSON array of {"id", "text"} items and the service
// answers with an array of {"id", "score"} items. Scores are realigned by
// id so the service may answer in any order.
type Remote struct {
	url string
	hc  *http.Client
	rl  *rate.Limiter
}

type remoteItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type remoteScore struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// NewRemote builds a client for the service at url. rps <= 0 disables
// client-side rate limiting.
func NewRemote(url string, timeout time.Duration, rps int) (*Remote, error) {
	if url == "" {
		return nil, fmt.Errorf("classifier URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = rps
	}
	return &Remote{
		url: url,
		hc:  &http.Client{Timeout: timeout},
		rl:  rate.NewLimiter(limit, burst),
	}, nil
}

// Predict implements Classifier. An empty batch is answered without a
// request.
func (c *Remote) Predict(ctx context.Context, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return []float64{}, nil
	}
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	items := make([]remoteItem, len(texts))
	for i, text := range texts {
		items[i] = remoteItem{ID: i, Text: text}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, ErrUnavailable{Err: fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))}
	}

	var scores []remoteScore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, ErrUnavailable{Err: fmt.Errorf("decode scores: %w", err)}
	}
	if len(scores) != len(texts) {
		return nil, ErrLengthMismatch{Want: len(texts), Got: len(scores)}
	}

	out := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, s := range scores {
		if s.ID < 0 || s.ID >= len(texts) || seen[s.ID] {
			return nil, ErrUnavailable{Err: fmt.Errorf("unexpected score id %d", s.ID)}
		}
		seen[s.ID] = true
		out[s.ID] = s.Score
	}
	return out, nil
}
