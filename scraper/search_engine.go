package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"plantprice/models"
)

const searchMinResults = 3

// Containers for each fallback stage of the search page
var (
	shoppingSelectors = []string{
		"div.sh-dlr__list-result",
		"div.commercial-unit-desktop-top",
		"div.pla-unit",
		"div[data-docid]",
		"div.mnr-c.pla-unit",
	}
	organicSelectors = []string{
		"div.g",
		"div.tF2Cxc",
		"div[data-hveid]",
		"div.yuRUbf",
		"div#search div[data-ved]",
	}
	organicMetaSelector = `div.VwiC3b, span.aCOpRe, div[role="heading"] + div, div.IsZvec`
	snippetSelectors    = []string{
		"div.kp-wholepage",
		"div.ifM9O",
		"div.V3FYCf",
		"div.ULSxyf",
		"div.hlcw0c",
	}
	metaTagSelectors = []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="keywords"]`,
		`meta[property="og:title"]`,
	}
	metaTextSelectors = []string{
		"div.s",
		"span.st",
		"div.VwiC3b",
		`div[data-content-feature="1"]`,
		"div.IsZvec",
	}
)

const (
	shoppingLimit = 5
	organicLimit  = 10
	snippetWindow = 50
)

// SearchEngineFetcher queries the general search engine and runs the
// fallback chain: shopping, organic, snippets, meta tags, then product pages.
type SearchEngineFetcher struct {
	descriptor SourceDescriptor
	relevance  *RelevanceFilter
	captcha    *CaptchaDetector
	products   *ProductPageFetcher
	pacer      Pacer
	pacing     Pacing
}

// NewSearchEngineFetcher creates a search engine fetcher
func NewSearchEngineFetcher(relevance *RelevanceFilter, captcha *CaptchaDetector, pacer Pacer, pacing Pacing) *SearchEngineFetcher {
	if relevance == nil {
		relevance = NewRelevanceFilter()
	}
	if captcha == nil {
		captcha = NewCaptchaDetector(nil, nil)
	}
	if pacer == nil {
		pacer = RandomPacer{}
	}
	return &SearchEngineFetcher{
		descriptor: SearchEngineSource,
		relevance:  relevance,
		captcha:    captcha,
		products:   NewProductPageFetcher(SearchPricePattern, pacer, pacing.Source),
		pacer:      pacer,
		pacing:     pacing,
	}
}

// Fetch searches for query. A verification challenge is returned as a
// *CaptchaError; every other failure is logged and yields no candidates.
func (s *SearchEngineFetcher) Fetch(ctx context.Context, sess *Session, query string, excluded []string) ([]models.SearchCandidate, error) {
	searchURL := s.descriptor.BuildURL(FormatSearchTerm(query))

	window := s.pacing.Search
	if sess.Method == models.MethodBrowser {
		window = s.pacing.Browser
	}
	if err := s.pacer.Wait(ctx, window); err != nil {
		return nil, err
	}

	log.Printf("🔍 Searching %s for: %s", s.descriptor.Name, query)
	page, err := sess.Search().Fetch(ctx, Request{URL: searchURL, WaitSelector: "#search"})
	if err != nil {
		log.Printf("❌ Search failed: %v", err)
		return nil, nil
	}

	if captcha, reason := s.captcha.Detect(page); captcha {
		log.Printf("🧩 CAPTCHA detected on search page (%s)", reason)
		return nil, &CaptchaError{Query: query, URL: searchURL, Reason: reason}
	}
	if !page.OK() {
		log.Printf("⚠️ Search failed with status code %d (%s)", page.StatusCode, s.captcha.BlockType(page))
		return nil, nil
	}

	doc, err := page.Document()
	if err != nil {
		log.Printf("❌ Error parsing search page: %v", err)
		return nil, nil
	}

	found := models.NewQueryResultSet(query)
	found.AddAll(s.primaryResults(doc, query, excluded))

	if found.Len() < searchMinResults {
		log.Println("📝 Extracting prices from shopping results...")
		found.AddAll(s.shoppingResults(doc, query, excluded))
		log.Println("📝 Extracting prices from organic results...")
		found.AddAll(s.organicResults(doc, query, excluded))
		log.Println("📝 Extracting prices from featured snippets...")
		found.AddAll(s.featuredSnippets(doc, query, excluded))
		log.Println("📝 Extracting prices from meta descriptions...")
		found.AddAll(s.metaResults(doc, query, excluded))
	}

	if found.Len() < searchMinResults {
		log.Println("📝 Not enough results, checking product pages...")
		for _, productURL := range productURLs(doc, searchMinResults, excluded) {
			if found.Len() >= searchMinResults || ctx.Err() != nil {
				break
			}
			found.AddAll(s.products.Fetch(ctx, sess.Direct(), query, productURL))
		}
	}

	log.Printf("✅ %s yielded %d candidates for %s", s.descriptor.Name, found.Len(), query)
	return found.Candidates(), nil
}

// primaryResults scans the descriptor's result containers
func (s *SearchEngineFetcher) primaryResults(doc *goquery.Document, query string, excluded []string) []models.SearchCandidate {
	var out []models.SearchCandidate
	containers(doc, s.descriptor).Each(func(_ int, c *goquery.Selection) {
		if !s.relevance.IsRelevant(query, c.Text(), excluded) {
			return
		}
		price, ok := ExtractPrice(c, s.descriptor.PriceSelector, s.descriptor.PricePattern)
		if !ok {
			return
		}
		out = append(out, s.candidate(query, price, linkSource(c.Find("a[href]").First(), "Organic Result")))
	})
	return out
}

func (s *SearchEngineFetcher) shoppingResults(doc *goquery.Document, query string, excluded []string) []models.SearchCandidate {
	var out []models.SearchCandidate
	for _, sel := range shoppingSelectors {
		matches := doc.Find(sel)
		matches.Slice(0, min(shoppingLimit, matches.Length())).Each(func(_ int, c *goquery.Selection) {
			text := c.Text()
			if !s.relevance.IsRelevant(query, text, excluded) {
				return
			}
			price, ok := FirstPrice(text, s.descriptor.PricePattern)
			if !ok {
				return
			}
			out = append(out, s.candidate(query, price, linkSource(c.Find("a").First(), "Google Shopping")))
		})
	}
	return out
}

// organicResults prefers a price in the title, then the meta description, then the full text
func (s *SearchEngineFetcher) organicResults(doc *goquery.Document, query string, excluded []string) []models.SearchCandidate {
	var out []models.SearchCandidate
	for _, sel := range organicSelectors {
		matches := doc.Find(sel)
		matches.Slice(0, min(organicLimit, matches.Length())).Each(func(_ int, c *goquery.Selection) {
			title := c.Find("h3").First().Text()
			meta := c.Find(organicMetaSelector).First().Text()
			if !s.relevance.IsRelevant(query, title+" "+meta, excluded) {
				return
			}

			var price, where string
			var ok bool
			if price, ok = FirstPrice(title, s.descriptor.PricePattern); ok {
				where = "title"
			} else if price, ok = FirstPrice(meta, s.descriptor.PricePattern); ok {
				where = "meta description"
			} else if price, ok = FirstPrice(c.Text(), s.descriptor.PricePattern); ok {
				where = "result text"
			} else {
				return
			}

			source := linkSource(c.Find("a").First(), "Organic Result")
			log.Printf("📝 Organic price %s found in %s: %s", price, where, source)
			out = append(out, s.candidate(query, price, source))
		})
	}
	return out
}

// featuredSnippets takes every price in a snippet with the surrounding text as context
func (s *SearchEngineFetcher) featuredSnippets(doc *goquery.Document, query string, excluded []string) []models.SearchCandidate {
	var out []models.SearchCandidate
	for _, sel := range snippetSelectors {
		doc.Find(sel).Each(func(_ int, c *goquery.Selection) {
			text := c.Text()
			if !s.relevance.IsRelevant(query, text, excluded) {
				return
			}
			for _, loc := range s.descriptor.PricePattern.FindAllStringIndex(text, -1) {
				start := max(0, loc[0]-snippetWindow)
				end := min(len(text), loc[0]+snippetWindow)
				around := strings.ToValidUTF8(text[start:end], "")
				around = strings.TrimSpace(strings.ReplaceAll(around, "\n", " "))
				source := fmt.Sprintf("Featured Snippet: %s...", around)
				out = append(out, s.candidate(query, text[loc[0]:loc[1]], source))
			}
		})
	}
	return out
}

// metaResults reads the page meta tags, then meta-description-like result blocks
func (s *SearchEngineFetcher) metaResults(doc *goquery.Document, query string, excluded []string) []models.SearchCandidate {
	var out []models.SearchCandidate

	for _, sel := range metaTagSelectors {
		tag := doc.Find(sel).First()
		content, ok := tag.Attr("content")
		if !ok || !s.relevance.IsRelevant(query, content, excluded) {
			continue
		}
		price, ok := FirstPrice(content, s.descriptor.PricePattern)
		if !ok {
			continue
		}
		tagName, ok := tag.Attr("name")
		if !ok {
			tagName, _ = tag.Attr("property")
		}
		source := fmt.Sprintf("Meta %s: %s...", tagName, truncate(content, 50))
		out = append(out, s.candidate(query, price, source))
	}

	for _, sel := range metaTextSelectors {
		doc.Find(sel).Each(func(_ int, m *goquery.Selection) {
			text := m.Text()
			if !s.relevance.IsRelevant(query, text, excluded) {
				return
			}
			price, ok := FirstPrice(text, s.descriptor.PricePattern)
			if !ok {
				return
			}

			source := "Meta description"
			parent := m.Parent()
			for i := 0; i < 3 && parent.Length() > 0; i++ {
				link := parent.Find(`a[href^="http"]`).First()
				if href, ok := link.Attr("href"); ok {
					if domain := hostOf(href); domain != "" {
						source = fmt.Sprintf("%s Meta: %s...", domain, truncate(collapseSpace(text), 40))
					}
					break
				}
				parent = parent.Parent()
			}
			out = append(out, s.candidate(query, price, source))
		})
	}
	return out
}

func (s *SearchEngineFetcher) candidate(query, price, source string) models.SearchCandidate {
	return models.NewSearchCandidate(query, price, source, models.CategorySearchEngine, CountMatches(SignificantWords(query), strings.ToLower(source)))
}

// productURLs lists up to n outbound result links, redirect links first
func productURLs(doc *goquery.Document, n int, excluded []string) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) bool {
		if u == "" || seen[u] || isExcluded(strings.ToLower(u), excluded) {
			return len(urls) < n
		}
		seen[u] = true
		urls = append(urls, u)
		return len(urls) < n
	}

	doc.Find(`a[href*="/url?q="]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "webcache") {
			return true
		}
		return add(unwrapRedirect(href))
	})
	if len(urls) < n {
		doc.Find(`div.g a[href^="http"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return add(href)
		})
	}
	return urls
}

// linkSource formats "domain - url" for a result link, or fallback
func linkSource(link *goquery.Selection, fallback string) string {
	href, ok := link.Attr("href")
	if !ok {
		return fallback
	}
	target := unwrapRedirect(href)
	domain := hostOf(target)
	if domain == "" {
		return fallback
	}
	return fmt.Sprintf("%s - %s", domain, target)
}

// unwrapRedirect extracts the target of a /url?q= redirect link
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "/url?") {
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			return href
		}
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	target := u.Query().Get("q")
	if !strings.HasPrefix(target, "http") {
		return ""
	}
	return target
}
