package scraper

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"plantprice/models"
)

// Encoding controls how a query is placed into a URL template
type Encoding string

const (
	EncodePlus      Encoding = "+"
	EncodePercent20 Encoding = "%20"
	// EncodeNone means the caller already escaped the query
	EncodeNone Encoding = "none"
)

// Strategy names the fetch routine that consumes a descriptor
type Strategy string

const (
	StrategySearch     Strategy = "search"
	StrategyBestMatch  Strategy = "best-match"
	StrategyFirstMatch Strategy = "first-match"
	StrategyListing    Strategy = "listing"
)

const queryPlaceholder = "{query}"

// SourceDescriptor is the static configuration of one queryable source
type SourceDescriptor struct {
	Name              string          `json:"name"`
	Category          models.Category `json:"category"`
	Strategy          Strategy        `json:"strategy"`
	URLTemplate       string          `json:"url_template"`
	Encoding          Encoding        `json:"encoding"`
	PricePattern      *regexp.Regexp  `json:"price_pattern"`
	PrimarySelector   string          `json:"primary_selector"`
	FallbackSelectors []string        `json:"fallback_selectors,omitempty"`
	PriceSelector     string          `json:"price_selector,omitempty"`
	TitleSelector     string          `json:"title_selector,omitempty"`
	LinkSelector      string          `json:"link_selector,omitempty"`
	MaxContainers     int             `json:"max_containers"`
	Referer           string          `json:"referer,omitempty"`
	Timeout           time.Duration   `json:"timeout,omitempty"`
}

// BuildURL places query into the URL template
func (d SourceDescriptor) BuildURL(query string) string {
	var term string
	switch d.Encoding {
	case EncodeNone:
		term = query
	case EncodePercent20:
		term = strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	default:
		term = url.QueryEscape(query)
	}
	return strings.ReplaceAll(d.URLTemplate, queryPlaceholder, term)
}

// Domain returns the host of the template without a leading www.
func (d SourceDescriptor) Domain() string {
	return hostOf(strings.ReplaceAll(d.URLTemplate, queryPlaceholder, ""))
}

// Absolutize resolves href against the source's scheme and host
func (d SourceDescriptor) Absolutize(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(strings.ReplaceAll(d.URLTemplate, queryPlaceholder, ""))
	if err != nil || base.Host == "" {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return base.Scheme + ":" + href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base.Scheme + "://" + base.Host + href
}

// Excluded reports whether the source name or domain matches an excluded site
func (d SourceDescriptor) Excluded(excluded []string) bool {
	return isExcluded(strings.ToLower(d.Name+" "+d.Domain()), excluded)
}

// SelectorChain returns the primary selector followed by the fallbacks
func (d SourceDescriptor) SelectorChain() []string {
	chain := make([]string, 0, 1+len(d.FallbackSelectors))
	if d.PrimarySelector != "" {
		chain = append(chain, d.PrimarySelector)
	}
	return append(chain, d.FallbackSelectors...)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

const (
	retailerTitleSelector = `h2, h3, h4, a[class*="title"], div[class*="title"]`
	marketplaceAccept     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8"
)

// SearchEngineSource is the general search engine. Its query is pre-escaped by FormatSearchTerm.
var SearchEngineSource = SourceDescriptor{
	Name:              models.SourceSearchEngine,
	Category:          models.CategorySearchEngine,
	Strategy:          StrategySearch,
	URLTemplate:       "https://www.google.com.au/search?q={query}&gl=au&hl=en&num=30",
	Encoding:          EncodeNone,
	PricePattern:      SearchPricePattern,
	PrimarySelector:   "div#search div.g",
	FallbackSelectors: []string{"div#rso > div", "div.MjjYud"},
	MaxContainers:     10,
}

// RetailerSources are direct garden retailers. Each contributes its best match.
var RetailerSources = []SourceDescriptor{
	{
		Name:              "Bunnings",
		URLTemplate:       "https://www.bunnings.com.au/search/products?q={query}&category=Plants",
		Encoding:          EncodePercent20,
		PrimarySelector:   "article.product",
		FallbackSelectors: []string{"div.product-list article", "div[data-product-card]"},
	},
	{
		Name:              "Flower Power",
		URLTemplate:       "https://www.flowerpower.com.au/search?q={query}",
		PrimarySelector:   "div.product-item-info",
		FallbackSelectors: []string{"li.product-item"},
	},
	{
		Name:              "Garden Express",
		URLTemplate:       "https://www.gardenexpress.com.au/search/{query}",
		Encoding:          EncodePercent20,
		PrimarySelector:   "div.product-item",
		FallbackSelectors: []string{"div.product-grid div"},
	},
	{
		Name:              "The Plant People",
		URLTemplate:       "https://www.theplantpeople.com.au/search?q={query}",
		PrimarySelector:   "div.product",
		FallbackSelectors: []string{"div.product-grid-item"},
	},
	{
		Name:              "Garden World",
		URLTemplate:       "https://www.gardenworld.com.au/?s={query}&post_type=product",
		PrimarySelector:   "li.product",
		FallbackSelectors: []string{"ul.products li"},
	},
}

// SpecialtySources are specialty nurseries, consulted when results are thin
var SpecialtySources = []SourceDescriptor{
	{Name: "Plantary", URLTemplate: "https://plantary.com.au/search?q={query}", PrimarySelector: "div.product-grid-item"},
	{Name: "Plant Farm", URLTemplate: "https://www.plant-farm.com.au/search?type=product&q={query}", PrimarySelector: "div.product-item"},
	{Name: "Little Succers", URLTemplate: "https://littlesuccers.com.au/search?q={query}", PrimarySelector: "div.product-details"},
	{Name: "Plants in a Box", URLTemplate: "https://plantsinabox.com.au/search?q={query}", PrimarySelector: "div.productitem"},
	{Name: "Seed World", URLTemplate: "https://seedworld.com.au/search?q={query}", PrimarySelector: "div.product"},
	{Name: "The Succulent Garden", URLTemplate: "https://thesucculentgarden.com.au/search?q={query}", PrimarySelector: "div.grid-product"},
	{Name: "Collectors Corner", URLTemplate: "https://collectorscorner.com.au/search?q={query}", PrimarySelector: "div.product-item"},
	{Name: "Huge Cactus", URLTemplate: "https://hugecactus.com.au/search?q={query}", PrimarySelector: "div.product-item"},
	{
		Name:            "Hello Succulents",
		URLTemplate:     "https://hellosucculents.com.au/?s={query}&post_type=product",
		PrimarySelector: "li.product",
		PriceSelector:   "span.woocommerce-Price-amount",
	},
}

var (
	ebaySource = SourceDescriptor{
		Name:            "eBay Australia",
		URLTemplate:     "https://www.ebay.com.au/sch/i.html?_nkw={query}+plant&_sacat=0",
		PrimarySelector: "li.s-item",
		TitleSelector:   "div.s-item__title",
		PriceSelector:   "span.s-item__price",
		LinkSelector:    "a.s-item__link",
		Referer:         "https://www.ebay.com.au/",
	}
	amazonSource = SourceDescriptor{
		Name:            "Amazon Australia",
		URLTemplate:     "https://www.amazon.com.au/s?k={query}+plant",
		PrimarySelector: "div.s-result-item[data-component-type='s-search-result']",
		TitleSelector:   "h2 a span",
		PriceSelector:   "span.a-price-whole",
		LinkSelector:    "h2 a.a-link-normal",
		Referer:         "https://www.amazon.com.au/",
	}
	etsySource = SourceDescriptor{
		Name:            "Etsy",
		URLTemplate:     "https://www.etsy.com/au/search?q={query}+plant",
		PrimarySelector: "div.wt-grid__item-xs-6",
		TitleSelector:   "h3",
		PriceSelector:   "span.currency-value",
		LinkSelector:    "a.listing-link",
		Referer:         "https://www.etsy.com/",
	}
)

// MarketplaceSources returns the marketplaces in query order. Prioritized
// order puts eBay and Amazon ahead of Etsy.
func MarketplaceSources(prioritize bool) []SourceDescriptor {
	if prioritize {
		return []SourceDescriptor{ebaySource, amazonSource, etsySource}
	}
	return []SourceDescriptor{etsySource, ebaySource, amazonSource}
}

// MarketplaceLimit is the number of listings accepted per marketplace
func MarketplaceLimit(prioritize bool) int {
	if prioritize {
		return 2
	}
	return 1
}

func init() {
	for i := range RetailerSources {
		d := &RetailerSources[i]
		d.Category = models.CategoryRetailer
		d.Strategy = StrategyBestMatch
		d.PricePattern = StorePricePattern
		d.TitleSelector = retailerTitleSelector
		d.MaxContainers = 5
		if d.Encoding == "" {
			d.Encoding = EncodePlus
		}
	}
	for i := range SpecialtySources {
		d := &SpecialtySources[i]
		d.Category = models.CategorySpecialty
		d.Strategy = StrategyFirstMatch
		d.PricePattern = StorePricePattern
		d.MaxContainers = 3
		d.Encoding = EncodePlus
		if d.PriceSelector == "" {
			d.PriceSelector = "span.price"
		}
	}
	for _, d := range []*SourceDescriptor{&ebaySource, &amazonSource, &etsySource} {
		d.Category = models.CategoryMarketplace
		d.Strategy = StrategyListing
		d.PricePattern = StorePricePattern
		d.MaxContainers = 10
		d.Encoding = EncodePlus
		d.Timeout = 15 * time.Second
	}
}

// AllSources lists every descriptor in the order a query consults them
func AllSources() []SourceDescriptor {
	all := []SourceDescriptor{SearchEngineSource}
	all = append(all, RetailerSources...)
	all = append(all, MarketplaceSources(true)...)
	return append(all, SpecialtySources...)
}
