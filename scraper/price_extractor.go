package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Price patterns. Search pages use the thousands-aware form, store pages the short one.
var (
	SearchPricePattern = regexp.MustCompile(`\$\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)
	StorePricePattern  = regexp.MustCompile(`\$\d+(?:\.\d{2})?`)
)

var plainAmount = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)

// ExtractPrice finds a price literal in fragment. The sub-element matched by
// priceSelector is tried first, then the fragment's full text. The literal is
// returned as matched, trimmed.
func ExtractPrice(fragment *goquery.Selection, priceSelector string, pattern *regexp.Regexp) (string, bool) {
	if fragment == nil || fragment.Length() == 0 {
		return "", false
	}

	if priceSelector != "" {
		if price, ok := SelectorPrice(fragment, priceSelector, pattern); ok {
			return price, true
		}
	}

	return FirstPrice(fragment.Text(), pattern)
}

// SelectorPrice scans the elements matched by selector in document order
func SelectorPrice(fragment *goquery.Selection, selector string, pattern *regexp.Regexp) (string, bool) {
	var found string
	fragment.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if price, ok := FirstPrice(elementText(el), pattern); ok {
			found = price
			return false
		}
		return true
	})
	return found, found != ""
}

// FirstPrice returns the first match of pattern in text
func FirstPrice(text string, pattern *regexp.Regexp) (string, bool) {
	m := pattern.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

// elementText returns the content attribute for <meta> elements and the text otherwise
func elementText(el *goquery.Selection) string {
	if goquery.NodeName(el) == "meta" {
		content, _ := el.Attr("content")
		content = strings.TrimSpace(content)
		// itemprop=price carries a bare amount
		if plainAmount.MatchString(content) {
			return "$" + content
		}
		return content
	}
	return strings.TrimSpace(el.Text())
}
