package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

// Class indices of a Model.
const (
	Negative = 0
	Positive = 1
)

// Model is a two-class multinomial naive Bayes classifier over word
// n-grams. It is immutable once loaded and safe for concurrent use.
type Model struct {
	NGram          int                   `json:"ngram"`
	ClassLogPrior  [2]float64            `json:"class_log_prior"`
	FeatureLogProb map[string][2]float64 `json:"feature_log_prob"`
}

// Sample is one labelled training text.
type Sample struct {
	Text     string
	Positive bool
}

// LoadModel reads a model file written by Save.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if len(m.FeatureLogProb) == 0 {
		return nil, fmt.Errorf("model %s has no features", path)
	}
	if m.NGram < 1 {
		m.NGram = 1
	}
	return &m, nil
}

// Save writes the model as JSON.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Train fits a model with Lidstone smoothing alpha over n-grams up to ngram.
func Train(samples []Sample, ngram int, alpha float64) *Model {
	if ngram < 1 {
		ngram = 1
	}
	if alpha <= 0 {
		alpha = 1
	}

	var docs [2]float64
	var totals [2]float64
	counts := make(map[string]*[2]float64)
	for _, s := range samples {
		class := Negative
		if s.Positive {
			class = Positive
		}
		docs[class]++
		for term, n := range termCounts(s.Text, ngram) {
			c, ok := counts[term]
			if !ok {
				c = &[2]float64{}
				counts[term] = c
			}
			c[class] += n
			totals[class] += n
		}
	}

	m := &Model{NGram: ngram, FeatureLogProb: make(map[string][2]float64, len(counts))}
	all := docs[Negative] + docs[Positive]
	for class := range docs {
		// Unseen classes keep an even prior instead of -Inf.
		if all == 0 || docs[class] == 0 {
			m.ClassLogPrior[class] = math.Log(0.5)
			continue
		}
		m.ClassLogPrior[class] = math.Log(docs[class] / all)
	}

	vocab := float64(len(counts))
	for term, c := range counts {
		var lp [2]float64
		for class := range lp {
			lp[class] = math.Log((c[class] + alpha) / (totals[class] + alpha*vocab))
		}
		m.FeatureLogProb[term] = lp
	}
	return m
}

// Score returns P(positive | text). Text with no known terms scores the
// class prior.
func (m *Model) Score(text string) float64 {
	joint := m.ClassLogPrior
	for term, n := range termCounts(text, m.NGram) {
		lp, ok := m.FeatureLogProb[term]
		if !ok {
			continue
		}
		joint[Negative] += n * lp[Negative]
		joint[Positive] += n * lp[Positive]
	}
	return 1 / (1 + math.Exp(joint[Negative]-joint[Positive]))
}

// Predict implements Classifier.
func (m *Model) Predict(ctx context.Context, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.Score(text)
	}
	return out, nil
}

// Tokenize lowercases text and splits it into word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func termCounts(text string, ngram int) map[string]float64 {
	tokens := Tokenize(text)
	counts := make(map[string]float64, len(tokens))
	for n := 1; n <= ngram; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return counts
}
