package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"plantprice/models"
)

// Fetcher runs the descriptor-driven store fetches: retailers, specialty
// nurseries and marketplaces.
type Fetcher struct {
	relevance *RelevanceFilter
	pacer     Pacer
	delay     DelayWindow

	// MarketplaceTimeout overrides the descriptor timeout when set
	MarketplaceTimeout time.Duration
}

// NewFetcher creates a fetcher that waits delay before every request
func NewFetcher(relevance *RelevanceFilter, pacer Pacer, delay DelayWindow) *Fetcher {
	if relevance == nil {
		relevance = NewRelevanceFilter()
	}
	if pacer == nil {
		pacer = RandomPacer{}
	}
	return &Fetcher{
		relevance: relevance,
		pacer:     pacer,
		delay:     delay,
	}
}

// FetchRetailer returns the best scoring priced container of one retailer.
// Score is title word matches weighted twice plus body word matches.
func (f *Fetcher) FetchRetailer(ctx context.Context, t Transport, query string, d SourceDescriptor, excluded []string) []models.SearchCandidate {
	if d.Excluded(excluded) {
		return nil
	}
	doc, searchURL := f.load(ctx, t, query, d, "")
	if doc == nil {
		return nil
	}

	words := SignificantWords(query)
	found := false
	var best models.SearchCandidate

	containers(doc, d).Each(func(_ int, c *goquery.Selection) {
		text := strings.ToLower(c.Text())
		if isExcluded(text, excluded) {
			return
		}
		price, ok := ExtractPrice(c, d.PriceSelector, d.PricePattern)
		if !ok {
			return
		}

		title := collapseSpace(c.Find(d.TitleSelector).First().Text())
		score := 2*CountMatches(words, strings.ToLower(title)) + CountMatches(words, text)
		if found && score <= best.RelevanceScore {
			return
		}

		if title == "" {
			title = "Product from " + d.Name
		}
		link := productLink(c, d, searchURL)
		source := fmt.Sprintf("%s - %s... - %s", d.Name, truncate(title, 30), link)
		best = models.NewSearchCandidate(query, price, source, d.Category, score)
		found = true
	})

	if !found {
		log.Printf("⚠️ No priced product on %s", d.Name)
		return nil
	}
	log.Printf("✅ Found %s product: %s", d.Name, best.Price)
	return []models.SearchCandidate{best}
}

// FetchSpecialty returns the first relevant priced container of one nursery
func (f *Fetcher) FetchSpecialty(ctx context.Context, t Transport, query string, d SourceDescriptor, excluded []string) []models.SearchCandidate {
	if d.Excluded(excluded) {
		return nil
	}
	doc, _ := f.load(ctx, t, query, d, "")
	if doc == nil {
		return nil
	}

	words := SignificantWords(query)
	var out []models.SearchCandidate

	containers(doc, d).EachWithBreak(func(_ int, c *goquery.Selection) bool {
		text := c.Text()
		if !f.relevance.IsRelevant(query, text, excluded) {
			return true
		}
		price, ok := ExtractPrice(c, d.PriceSelector, d.PricePattern)
		if !ok {
			return true
		}

		// no product link: label the source instead of pointing at the search page
		source := d.Name + " listing"
		if link := productLink(c, d, ""); link != "" {
			source = fmt.Sprintf("%s - %s", d.Name, link)
		}
		score := CountMatches(words, strings.ToLower(text))
		out = append(out, models.NewSearchCandidate(query, price, source, d.Category, score))
		log.Printf("✅ Found %s product with price: %s", d.Name, price)
		return false
	})
	return out
}

// FetchMarketplaces queries every marketplace in priority order. Prioritized
// runs order eBay and Amazon first and accept two listings per marketplace.
func (f *Fetcher) FetchMarketplaces(ctx context.Context, t Transport, query string, prioritize bool, excluded []string) []models.SearchCandidate {
	limit := MarketplaceLimit(prioritize)

	var out []models.SearchCandidate
	for _, d := range MarketplaceSources(prioritize) {
		if ctx.Err() != nil {
			break
		}
		if f.MarketplaceTimeout > 0 {
			d.Timeout = f.MarketplaceTimeout
		}
		out = append(out, f.fetchListings(ctx, t, query, d, limit, excluded)...)
	}
	return out
}

func (f *Fetcher) fetchListings(ctx context.Context, t Transport, query string, d SourceDescriptor, limit int, excluded []string) []models.SearchCandidate {
	if d.Excluded(excluded) {
		return nil
	}
	doc, searchURL := f.load(ctx, t, query, d, marketplaceAccept)
	if doc == nil {
		return nil
	}

	words := SignificantWords(query)
	var out []models.SearchCandidate

	containers(doc, d).EachWithBreak(func(_ int, c *goquery.Selection) bool {
		title := collapseSpace(c.Find(d.TitleSelector).First().Text())
		text := title
		if text == "" {
			text = collapseSpace(c.Text())
		}
		if !f.relevance.IsListingRelevant(query, text, excluded) {
			return true
		}

		price, ok := ExtractPrice(c, d.PriceSelector, d.PricePattern)
		if !ok {
			return true
		}

		label := title
		if label == "" {
			label = truncate(text, 50)
		}
		source := fmt.Sprintf("%s - %s... - %s", d.Name, truncate(label, 30), productLink(c, d, searchURL))
		score := CountMatches(words, strings.ToLower(text))
		out = append(out, models.NewSearchCandidate(query, price, source, d.Category, score))
		log.Printf("✅ Found %s product: %s - %s", d.Name, truncate(label, 40), price)

		return len(out) < limit
	})
	return out
}

// load fetches and parses a descriptor's search page. Failures are logged and yield nil.
func (f *Fetcher) load(ctx context.Context, t Transport, query string, d SourceDescriptor, accept string) (*goquery.Document, string) {
	searchURL := d.BuildURL(query)
	log.Printf("🔍 Checking %s...", d.Name)

	if err := f.pacer.Wait(ctx, f.delay); err != nil {
		return nil, searchURL
	}

	page, err := t.Fetch(ctx, Request{URL: searchURL, Referer: d.Referer, Accept: accept, Timeout: d.Timeout})
	if err != nil {
		log.Printf("❌ Error searching %s: %v", d.Name, err)
		return nil, searchURL
	}
	if !page.OK() {
		log.Printf("⚠️ %s returned status %d", d.Name, page.StatusCode)
		return nil, searchURL
	}

	doc, err := page.Document()
	if err != nil {
		log.Printf("❌ Error parsing %s: %v", d.Name, err)
		return nil, searchURL
	}
	return doc, searchURL
}

// containers applies the selector chain and keeps the first MaxContainers matches
func containers(doc *goquery.Document, d SourceDescriptor) *goquery.Selection {
	var sel *goquery.Selection
	for _, s := range d.SelectorChain() {
		sel = doc.Find(s)
		if sel.Length() > 0 {
			break
		}
	}
	if sel == nil {
		return doc.Selection.Slice(0, 0)
	}
	log.Printf("📝 Found %d products on %s", sel.Length(), d.Name)
	if d.MaxContainers > 0 && sel.Length() > d.MaxContainers {
		sel = sel.Slice(0, d.MaxContainers)
	}
	return sel
}

// productLink returns the absolute product URL of a container, or fallback
func productLink(c *goquery.Selection, d SourceDescriptor, fallback string) string {
	var link *goquery.Selection
	if d.LinkSelector != "" {
		link = c.Find(d.LinkSelector).First()
	}
	if link == nil || link.Length() == 0 {
		link = c.Find("a[href]").First()
	}
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return fallback
	}
	return d.Absolutize(href)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
