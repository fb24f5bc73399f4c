package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResolvePages reports how many review pages the storefront holds, reading
// the pagination bar of the first page.
//
// A pager yields its last page number. Without a pager a review list still
// means one page of reviews; with neither there are no reviews at all.
func ResolvePages(markup []byte) (int, error) {
	doc, err := NewDocument(markup)
	if err != nil {
		return 0, err
	}
	return ResolveDocument(doc), nil
}

// ResolveDocument is ResolvePages over a parsed document.
func ResolveDocument(doc *goquery.Document) int {
	if pager := doc.Find(storefrontPagerSelector).First(); pager.Length() > 0 {
		if n, ok := lastPageToken(pager.Find(storefrontButtonSelector)); ok {
			return n
		}
	}
	if doc.Find(storefrontListSelector).Length() > 0 {
		return 1
	}
	return 0
}

func lastPageToken(buttons *goquery.Selection) (int, bool) {
	for i := buttons.Length() - 1; i >= 0; i-- {
		text := strings.TrimSpace(buttons.Eq(i).Text())
		n, err := strconv.Atoi(strings.ReplaceAll(text, ",", ""))
		if err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}
