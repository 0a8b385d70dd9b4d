package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Category is the coarse classification of a price source
type Category string

const (
	CategoryRetailer     Category = "retailer"
	CategoryMarketplace  Category = "marketplace"
	CategorySearchEngine Category = "search-engine"
	CategorySpecialty    Category = "specialty"
	CategoryOther        Category = "other"
)

// Sentinel prices. A candidate carrying one of these is a status marker, not a quote.
const (
	PriceNotFound      = "Not found"
	PriceNoResults     = "No results"
	PriceError         = "Error"
	PriceNotAvailable  = "N/A"
	PricePausedCaptcha = "Paused for CAPTCHA"
	PriceCaptcha       = "CAPTCHA detected"
)

const (
	SourceNothingFound = "No price found from any source"
	SourceSearchEngine = "Google"
)

var sentinelPrices = map[string]bool{
	PriceNotFound:      true,
	PriceNoResults:     true,
	PriceError:         true,
	PriceNotAvailable:  true,
	PricePausedCaptcha: true,
	PriceCaptcha:       true,
}

var (
	wholeDollarPattern = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)$`)
	oneCentDigit       = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)\.\d$`)
	longCents          = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{3,}$`)
)

// Keywords used to infer a category from free source text.
var (
	retailerKeywords    = []string{"bunnings", "flower power", "garden express", "the plant people", "garden world"}
	marketplaceKeywords = []string{"ebay", "amazon", "etsy"}
	searchKeywords      = []string{"google", "shopping"}
	specialtyKeywords   = []string{
		"plantary", "plant farm", "little succers", "plants in a box", "seed world",
		"succulent garden", "collectors corner", "huge cactus", "hello succulents",
	}
)

// SearchCandidate is one price observation for a query
type SearchCandidate struct {
	Query          string    `json:"query"`
	Price          string    `json:"price"`
	Source         string    `json:"source"`
	Category       Category  `json:"category"`
	RelevanceScore int       `json:"relevance_score"`
	ObservedAt     time.Time `json:"observed_at"`
}

// NewSearchCandidate builds a candidate with a canonical price. An empty
// category is inferred from the source text.
func NewSearchCandidate(query, price, source string, category Category, score int) SearchCandidate {
	if category == "" {
		category = InferCategory(source)
	}
	if score < 0 {
		score = 0
	}
	return SearchCandidate{
		Query:          query,
		Price:          CanonicalizePrice(price),
		Source:         source,
		Category:       category,
		RelevanceScore: score,
		ObservedAt:     time.Now(),
	}
}

// NotFoundCandidate is the single sentinel returned when nothing qualifies
func NotFoundCandidate(query string) SearchCandidate {
	return NewSearchCandidate(query, PriceNotFound, SourceNothingFound, CategoryOther, 0)
}

// IsSentinel reports whether the candidate is a status marker
func (c SearchCandidate) IsSentinel() bool {
	return IsSentinelPrice(c.Price)
}

// IsPriorityMarketplace reports whether the candidate is an eBay or Amazon listing
func (c SearchCandidate) IsPriorityMarketplace() bool {
	if c.Category != CategoryMarketplace {
		return false
	}
	source := strings.ToLower(c.Source)
	return strings.Contains(source, "ebay") || strings.Contains(source, "amazon")
}

// IsSentinelPrice reports whether price is one of the status markers
func IsSentinelPrice(price string) bool {
	return sentinelPrices[strings.TrimSpace(price)]
}

// CanonicalizePrice trims the literal, adds the leading $ and brings the
// amount to exactly two decimals. Sentinels pass through untouched.
func CanonicalizePrice(raw string) string {
	price := strings.TrimSpace(raw)
	if price == "" || IsSentinelPrice(price) {
		return price
	}
	if !strings.HasPrefix(price, "$") {
		price = "$" + price
	}

	amount := price[1:]
	switch {
	case wholeDollarPattern.MatchString(amount):
		price += ".00"
	case oneCentDigit.MatchString(amount):
		price += "0"
	case longCents.MatchString(amount):
		if v, err := strconv.ParseFloat(strings.ReplaceAll(amount, ",", ""), 64); err == nil {
			price = fmt.Sprintf("$%.2f", v)
		}
	}
	return price
}

// InferCategory classifies a source from its text
func InferCategory(source string) Category {
	s := strings.ToLower(source)
	switch {
	case containsAny(s, retailerKeywords):
		return CategoryRetailer
	case containsAny(s, marketplaceKeywords):
		return CategoryMarketplace
	case containsAny(s, searchKeywords):
		return CategorySearchEngine
	case containsAny(s, specialtyKeywords):
		return CategorySpecialty
	default:
		return CategoryOther
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
