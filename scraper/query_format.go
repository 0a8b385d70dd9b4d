package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	botanicalName     = regexp.MustCompile(`\b[A-Z][a-z]+ [a-z]+\b`)
	careParenthetical = regexp.MustCompile(`\([^)]*(?:care|grow|water|sun|shade|indoor|outdoor)[^)]*\)`)
)

// CleanPlantName normalises a raw plant name for searching
func CleanPlantName(name string) string {
	clean := collapseSpace(name)

	lower := strings.ToLower(clean)
	for _, prefix := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, prefix) {
			clean = clean[len(prefix):]
			lower = lower[len(prefix):]
		}
	}

	clean = careParenthetical.ReplaceAllString(clean, "")
	return collapseSpace(clean)
}

// FormatSearchTerm builds the escaped search engine query for a plant.
// Botanical names (Genus species) get price terms only; common names also get "plant".
func FormatSearchTerm(name string) string {
	clean := strings.TrimSpace(name)

	var terms string
	if botanicalName.MatchString(clean) {
		terms = clean + " price buy australia"
	} else {
		terms = clean + " plant price australia buy"
	}
	return url.QueryEscape(terms)
}
