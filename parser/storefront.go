package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// Storefront markup hooks.
const (
	storefrontListSelector   = "div#cm_cr-review_list"
	storefrontPagerSelector  = "div#cm_cr-pagination_bar"
	storefrontButtonSelector = "li.page-button"
	storefrontReviewSelector = "[data-hook='review'].review"
)

// Storefront extracts reviews from storefront review pages.
type Storefront struct{}

// Extract implements Extractor.
func (Storefront) Extract(markup []byte) ([]models.ReviewRecord, error) {
	doc, err := NewDocument(markup)
	if err != nil {
		return nil, err
	}
	return Storefront{}.ExtractDocument(doc)
}

// ExtractDocument extracts reviews from an already parsed page.
func (Storefront) ExtractDocument(doc *goquery.Document) ([]models.ReviewRecord, error) {
	list := doc.Find(storefrontListSelector).First()
	if list.Length() == 0 {
		return nil, ErrMissingContainer
	}
	nodes := list.ChildrenFiltered(storefrontReviewSelector)
	return collect(models.SourceStorefront, nodes, buildStorefrontReview), nil
}

func buildStorefrontReview(node *goquery.Selection) (models.ReviewRecord, error) {
	title := node.Find("[data-hook='review-title']").First()
	if title.Length() == 0 {
		return models.ReviewRecord{}, ErrMissingField{Field: "review-title"}
	}
	body := node.Find("[data-hook='review-body']").First()
	if body.Length() == 0 {
		return models.ReviewRecord{}, ErrMissingField{Field: "review-body"}
	}

	author := NormalizeText(node.Find("[data-hook='review-author']").First().Text())
	if author == "" {
		author = NormalizeText(node.Find("span.a-profile-name").First().Text())
	}

	date := NormalizeText(node.Find("[data-hook='review-date']").First().Text())
	date = strings.TrimPrefix(date, "on ")

	class, _ := node.Find("i[data-hook='review-star-rating']").First().Attr("class")

	return models.ReviewRecord{
		Title:  NormalizeText(title.Text()),
		Author: author,
		Date:   date,
		Rating: RatingFromStarClass(class),
		Body:   strings.TrimSpace(body.Text()),
	}, nil
}
