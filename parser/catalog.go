package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// Catalog markup hooks.
const (
	catalogListSelector   = "div#bookReviews"
	catalogReviewSelector = "div.friendReviews.elementListBrown"
	catalogStarSelector   = "span.staticStars span.staticStar"
	catalogFilledStar     = "p10"
	catalogStarCount      = 5
)

// Catalog extracts reviews from the cataloguing site's book page.
type Catalog struct{}

// Extract implements Extractor.
func (Catalog) Extract(markup []byte) ([]models.ReviewRecord, error) {
	doc, err := NewDocument(markup)
	if err != nil {
		return nil, err
	}
	return Catalog{}.ExtractDocument(doc)
}

// ExtractDocument extracts reviews from an already parsed page.
func (Catalog) ExtractDocument(doc *goquery.Document) ([]models.ReviewRecord, error) {
	list := doc.Find(catalogListSelector).First()
	if list.Length() == 0 {
		return nil, ErrMissingContainer
	}
	return collect(models.SourceCatalog, list.Find(catalogReviewSelector), buildCatalogReview), nil
}

func buildCatalogReview(node *goquery.Selection) (models.ReviewRecord, error) {
	review := node.Find("div.review").First()
	if review.Length() == 0 {
		return models.ReviewRecord{}, ErrMissingField{Field: "review"}
	}

	body, ok := readableText(review)
	if !ok {
		return models.ReviewRecord{}, ErrMissingField{Field: "readable"}
	}

	return models.ReviewRecord{
		Author: NormalizeText(review.Find("a.user").First().Text()),
		Date:   NormalizeText(review.Find("a.reviewDate").First().Text()),
		Rating: CountFilledStars(review),
		Body:   body,
		Title:  SynthesizeTitle(body),
	}, nil
}

// readableText returns the review text. Long reviews carry a truncated span
// plus a hidden span holding the full text behind a "show more" link; the
// hidden one wins when present.
func readableText(review *goquery.Selection) (string, bool) {
	readable := review.Find("div.reviewText span.readable").First()
	if readable.Length() == 0 {
		return "", false
	}

	spans := readable.ChildrenFiltered("span")
	if full := spans.Filter("[style*='display:none'], [style*='display: none']").Last(); full.Length() > 0 {
		return strings.TrimSpace(full.Text()), true
	}
	if spans.Length() > 0 {
		return strings.TrimSpace(spans.Last().Text()), true
	}
	return strings.TrimSpace(readable.Text()), true
}

// CountFilledStars counts the filled star indicators under node. A missing
// star container counts as zero.
func CountFilledStars(node *goquery.Selection) int {
	filled := 0
	node.Find(catalogStarSelector).Each(func(i int, star *goquery.Selection) {
		if i < catalogStarCount && star.HasClass(catalogFilledStar) {
			filled++
		}
	})
	return filled
}
