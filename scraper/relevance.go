package scraper

import (
	"strings"
	"unicode/utf8"
)

// DefaultExcludedSources are rejected unless the caller supplies its own list
var DefaultExcludedSources = []string{
	"succulentsonline.com.au",
	"wikipedia.org",
	"wikimedia.org",
	"inaturalist.org",
	"flickr.com",
	"pinterst.com",
}

// RelevanceFilter decides whether a block of text plausibly offers the
// queried plant for sale.
type RelevanceFilter struct {
	irrelevantTerms []string
	priceIndicators []string
	maxIrrelevant   int
	shortText       int
}

// NewRelevanceFilter creates a filter with the built-in term lists
func NewRelevanceFilter() *RelevanceFilter {
	return &RelevanceFilter{
		irrelevantTerms: []string{
			"wikipedia",
			"images",
			"pictures",
			"how to grow",
			"care guide",
			"plant care",
			"identification",
			"poison",
			"toxic",
			"nursery locations",
			"store hours",
			"contact us",
			"about us",
		},
		priceIndicators: []string{"$", "price", "cost", "buy", "purchase", "shop", "sale"},
		maxIrrelevant:   2,
		shortText:       100,
	}
}

// SignificantWords returns the lower-cased query tokens longer than two characters
func SignificantWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

// CountMatches returns how many of words occur in text
func CountMatches(words []string, text string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// IsRelevant reports whether text describes query
func (rf *RelevanceFilter) IsRelevant(query, text string, excluded []string) bool {
	text = strings.ToLower(text)

	if isExcluded(text, excluded) {
		return false
	}

	words := SignificantWords(query)
	matched := CountMatches(words, text)
	if len(words) >= 3 {
		// ceil(2n/3)
		if matched < (2*len(words)+2)/3 {
			return false
		}
	} else if matched < len(words) {
		return false
	}

	if CountMatches(rf.irrelevantTerms, text) > rf.maxIrrelevant {
		return false
	}

	if utf8.RuneCountInString(text) < rf.shortText && CountMatches(rf.priceIndicators, text) == 0 {
		return false
	}

	return true
}

// IsListingRelevant is the looser marketplace rule: at least half of the
// significant words appear in the listing text.
func (rf *RelevanceFilter) IsListingRelevant(query, text string, excluded []string) bool {
	text = strings.ToLower(text)
	if isExcluded(text, excluded) {
		return false
	}
	words := SignificantWords(query)
	return 2*CountMatches(words, text) >= len(words)
}

func isExcluded(lowerText string, excluded []string) bool {
	for _, site := range excluded {
		site = strings.ToLower(strings.TrimSpace(site))
		if site != "" && strings.Contains(lowerText, site) {
			return true
		}
	}
	return false
}
