package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

func TestValidateReview(t *testing.T) {
	tests := []struct {
		name    string
		review  *models.ReviewRecord
		wantErr bool
	}{
		{name: "valid review", review: &models.ReviewRecord{Body: "fine", Rating: 4}, wantErr: false},
		{name: "empty body", review: &models.ReviewRecord{Body: "", Rating: 0}, wantErr: false},
		{name: "nil review", review: nil, wantErr: true},
		{name: "negative rating", review: &models.ReviewRecord{Rating: -1}, wantErr: true},
		{name: "rating above five", review: &models.ReviewRecord{Rating: 6}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReview(tt.review)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReview() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRatingFromStarClass(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "four stars", input: "a-icon a-icon-star a-star-4 review-rating", expected: 4},
		{name: "five stars", input: "a-icon a-icon-star a-star-5", expected: 5},
		{name: "half star rounds down", input: "a-icon a-star-3-5", expected: 3},
		{name: "out of range", input: "a-icon a-star-9", expected: 5},
		{name: "garbage token", input: "a-icon a-star-x", expected: 0},
		{name: "no token", input: "a-icon a-icon-star", expected: 0},
		{name: "empty string", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RatingFromStarClass(tt.input); got != tt.expected {
				t.Errorf("RatingFromStarClass(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSynthesizeTitle(t *testing.T) {
	long := strings.Repeat("a", 60)
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "long body truncated", input: long, expected: strings.Repeat("a", TitleLength) + Ellipsis},
		{name: "short body kept", input: "Loved it", expected: "Loved it" + Ellipsis},
		{name: "multibyte runes", input: strings.Repeat("é", 55), expected: strings.Repeat("é", TitleLength) + Ellipsis},
		{name: "empty body", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SynthesizeTitle(tt.input); got != tt.expected {
				t.Errorf("SynthesizeTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  John \n\t Smith  "); got != "John Smith" {
		t.Fatalf("NormalizeText = %q, want %q", got, "John Smith")
	}
}

func TestResolvePages(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected int
	}{
		{
			name: "pagination bar",
			markup: `<div id="cm_cr-pagination_bar"><ul>` +
				`<li class="page-button">1</li><li class="page-button">2</li><li class="page-button">7</li>` +
				`<li class="a-last">Next</li></ul></div><div id="cm_cr-review_list"></div>`,
			expected: 7,
		},
		{
			name:     "review list without pager",
			markup:   `<div id="cm_cr-review_list"><div data-hook="review" class="review"></div></div>`,
			expected: 1,
		},
		{
			name:     "neither pager nor list",
			markup:   `<html><body><p>No customer reviews</p></body></html>`,
			expected: 0,
		},
		{
			name:     "pager without numeric buttons falls back to list",
			markup:   `<div id="cm_cr-pagination_bar"><li class="page-button">...</li></div><div id="cm_cr-review_list"></div>`,
			expected: 1,
		},
		{
			name:     "thousands separator",
			markup:   `<div id="cm_cr-pagination_bar"><li class="page-button">1</li><li class="page-button">1,204</li></div>`,
			expected: 1204,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePages([]byte(tt.markup))
			if err != nil {
				t.Fatalf("ResolvePages: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ResolvePages() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestStorefrontExtract(t *testing.T) {
	markup := `<div id="cm_cr-review_list">
<div id="R1" data-hook="review" class="a-section review">
  <a data-hook="review-title" class="review-title">  Gripping read </a>
  <a data-hook="review-author">Jane Doe</a>
  <span data-hook="review-date">on 3 March 2017</span>
  <i data-hook="review-star-rating" class="a-icon a-icon-star a-star-4 review-rating"></i>
  <span data-hook="review-body">Could not put it down.</span>
</div>
<div data-hook="review-filter" class="a-section">not a review</div>
<div id="R2" data-hook="review" class="a-section review">
  <a data-hook="review-author">No Title</a>
  <span data-hook="review-body">Body without title.</span>
</div>
<div id="R3" data-hook="review" class="a-section review">
  <a data-hook="review-title">Short</a>
  <span class="a-profile-name">Profile Name</span>
  <span data-hook="review-body"></span>
</div>
</div>`

	records, err := Storefront{}.Extract([]byte(markup))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}

	first := records[0]
	if first.Title != "Gripping read" {
		t.Errorf("title=%q", first.Title)
	}
	if first.Author != "Jane Doe" {
		t.Errorf("author=%q", first.Author)
	}
	if first.Date != "3 March 2017" {
		t.Errorf("date=%q", first.Date)
	}
	if first.Rating != 4 {
		t.Errorf("rating=%d, want 4", first.Rating)
	}
	if first.Body != "Could not put it down." {
		t.Errorf("body=%q", first.Body)
	}

	second := records[1]
	if second.Author != "Profile Name" || second.Rating != 0 || second.Body != "" {
		t.Errorf("unexpected fallback record: %+v", second)
	}
}

func TestStorefrontExtractMissingContainer(t *testing.T) {
	_, err := Storefront{}.Extract([]byte(`<html><body>Robot check</body></html>`))
	if !errors.Is(err, ErrMissingContainer) {
		t.Fatalf("expected ErrMissingContainer, got %v", err)
	}
}

func catalogReview(author string, filled int, withStars bool, readable string) string {
	var b strings.Builder
	b.WriteString(`<div class="friendReviews elementListBrown"><div class="section firstReview"><div class="review">`)
	b.WriteString(`<a class="user" href="/user/1">` + author + `</a>`)
	if withStars {
		b.WriteString(`<span class="staticStars">`)
		for i := 0; i < 5; i++ {
			if i < filled {
				b.WriteString(`<span class="staticStar p10"></span>`)
			} else {
				b.WriteString(`<span class="staticStar p0"></span>`)
			}
		}
		b.WriteString(`</span>`)
	}
	b.WriteString(`<a class="reviewDate">Jan 02, 2017</a>`)
	b.WriteString(readable)
	b.WriteString(`</div></div></div>`)
	return b.String()
}

func TestCatalogStarRating(t *testing.T) {
	tests := []struct {
		name      string
		filled    int
		withStars bool
		expected  int
	}{
		{name: "three filled", filled: 3, withStars: true, expected: 3},
		{name: "none filled", filled: 0, withStars: true, expected: 0},
		{name: "all filled", filled: 5, withStars: true, expected: 5},
		{name: "missing star container", filled: 4, withStars: false, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readable := `<div class="reviewText"><span class="readable"><span>ok</span></span></div>`
			markup := `<div id="bookReviews">` + catalogReview("Reader", tt.filled, tt.withStars, readable) + `</div>`
			records, err := Catalog{}.Extract([]byte(markup))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("records=%d, want 1", len(records))
			}
			if records[0].Rating != tt.expected {
				t.Fatalf("rating=%d, want %d", records[0].Rating, tt.expected)
			}
		})
	}
}

func TestCatalogExtract(t *testing.T) {
	long := strings.Repeat("word ", 30)
	truncated := `<div class="reviewText"><span class="readable">` +
		`<span id="freeTextContainer1">Short teaser</span><a>...more</a>` +
		`<span id="freeText1" style="display:none">` + long + `</span></span></div>`
	plain := `<div class="reviewText"><span class="readable"><span id="freeTextContainer2">Plain text review</span></span></div>`
	broken := `<div class="reviewText"></div>`

	markup := `<div id="bookReviews">` +
		catalogReview("Alice", 5, true, truncated) +
		catalogReview("Bob", 2, true, plain) +
		catalogReview("Carol", 1, true, broken) +
		`<div class="friendReviews">not a review</div>` +
		`</div>`

	records, err := Catalog{}.Extract([]byte(markup))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}

	if records[0].Author != "Alice" || records[0].Rating != 5 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[0].Body != strings.TrimSpace(long) {
		t.Errorf("expected full text behind show more, got %q", records[0].Body)
	}
	if want := strings.TrimSpace(long)[:TitleLength] + Ellipsis; records[0].Title != want {
		t.Errorf("title=%q, want %q", records[0].Title, want)
	}
	if records[0].Date != "Jan 02, 2017" {
		t.Errorf("date=%q", records[0].Date)
	}

	if records[1].Body != "Plain text review" || records[1].Title != "Plain text review"+Ellipsis {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestCatalogExtractMissingContainer(t *testing.T) {
	_, err := Catalog{}.Extract([]byte(`<html><body><div class="friendReviews elementListBrown"></div></body></html>`))
	if !errors.Is(err, ErrMissingContainer) {
		t.Fatalf("expected ErrMissingContainer, got %v", err)
	}
}
