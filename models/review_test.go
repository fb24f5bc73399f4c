package models

import "testing"

func twoSourceSet(sentiments []float64) AggregatedReviewSet {
	return AggregatedReviewSet{
		BySource: map[string]SourceResult{
			SourceStorefront: {Records: []ReviewRecord{{Body: "great book"}, {Body: "bad book"}}},
			SourceCatalog:    {Records: []ReviewRecord{{Body: ""}}},
		},
		Sentiments: sentiments,
	}
}

func TestAnnotatedAttachesScoresByFlattenedIndex(t *testing.T) {
	set := twoSourceSet([]float64{0.9, 0.1, 0.5})

	all := set.ScoredAll()
	want := []float64{0.9, 0.1, 0.5}
	for i, r := range all {
		if !r.Scored() || *r.Sentiment != want[i] {
			t.Fatalf("record %d (%q) sentiment = %v, want %v", i, r.Body, r.Sentiment, want[i])
		}
	}
	if catalog := set.Annotated(SourceCatalog); catalog[0].Source != SourceCatalog || *catalog[0].Sentiment != 0.5 {
		t.Fatalf("unexpected catalog annotation: %+v", catalog[0])
	}
}

func TestAnnotatedLeavesScoresNilWithoutSentiments(t *testing.T) {
	for _, sentiments := range [][]float64{nil, {}, {0.9}} {
		set := twoSourceSet(sentiments)
		if set.HasSentiments() {
			t.Fatalf("HasSentiments with %v", sentiments)
		}
		for _, r := range set.ScoredAll() {
			if r.Scored() {
				t.Fatalf("record %q scored from %v", r.Body, sentiments)
			}
		}
	}
}
