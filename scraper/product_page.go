package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"plantprice/models"
)

// Common price selectors across e-commerce product pages
var productPriceSelectors = []string{
	"span.price", "div.price", "span.product-price",
	`span[itemprop="price"]`, `meta[itemprop="price"]`,
	"span.amount", `span[class*="price"]`,
	"p.price", `div[class*="price"]`, "span.current-price",
	"div.productPrice", "span.sales-price",
	".product-info-price", ".price-box",
}

var productTitleSelectors = []string{"h1", "h1.product-title", `h1[itemprop="name"]`, ".product-title"}

var jsonAmount = regexp.MustCompile(`^\d+(?:,\d{3})*(?:\.\d+)?$`)

// ProductPageFetcher reads a price directly from a product page
type ProductPageFetcher struct {
	pattern *regexp.Regexp
	pacer   Pacer
	delay   DelayWindow
}

// NewProductPageFetcher creates a product page fetcher
func NewProductPageFetcher(pattern *regexp.Regexp, pacer Pacer, delay DelayWindow) *ProductPageFetcher {
	if pattern == nil {
		pattern = SearchPricePattern
	}
	if pacer == nil {
		pacer = RandomPacer{}
	}
	return &ProductPageFetcher{pattern: pattern, pacer: pacer, delay: delay}
}

// Fetch loads pageURL and tries the price selectors, then structured product data
func (p *ProductPageFetcher) Fetch(ctx context.Context, t Transport, query, pageURL string) []models.SearchCandidate {
	log.Printf("🔍 Checking product page: %s", pageURL)

	if err := p.pacer.Wait(ctx, p.delay); err != nil {
		return nil
	}

	page, err := t.Fetch(ctx, Request{URL: pageURL})
	if err != nil {
		log.Printf("❌ Error scraping product page: %v", err)
		return nil
	}
	if !page.OK() {
		log.Printf("⚠️ Product page returned status %d: %s", page.StatusCode, pageURL)
		return nil
	}
	doc, err := page.Document()
	if err != nil {
		log.Printf("❌ Error parsing product page: %v", err)
		return nil
	}

	domain := hostOf(pageURL)
	if domain == "" {
		domain = "Product page"
	}

	for _, sel := range productPriceSelectors {
		price, ok := SelectorPrice(doc.Selection, sel, p.pattern)
		if !ok {
			continue
		}
		source := fmt.Sprintf("%s - %s", domain, pageURL)
		if title := productTitle(doc); title != "" {
			source = fmt.Sprintf("Product: %s... - %s", truncate(title, 30), pageURL)
		}
		log.Printf("✅ Product page price: %s", price)
		return []models.SearchCandidate{
			models.NewSearchCandidate(query, price, source, models.CategorySearchEngine, 0),
		}
	}

	if price, name, ok := ExtractJSONLDPrice(doc); ok {
		source := fmt.Sprintf("%s - %s... - %s", domain, truncate(name, 30), pageURL)
		log.Printf("✅ Structured data price: %s", price)
		return []models.SearchCandidate{
			models.NewSearchCandidate(query, price, source, models.CategorySearchEngine, 0),
		}
	}

	return nil
}

func productTitle(doc *goquery.Document) string {
	for _, sel := range productTitleSelectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			return collapseSpace(el.Text())
		}
	}
	return ""
}

// ExtractJSONLDPrice reads a product price from application/ld+json blocks.
// Malformed blocks are skipped.
func ExtractJSONLDPrice(doc *goquery.Document) (price, name string, ok bool) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			log.Printf("⚠️ Error parsing JSON-LD: %v", err)
			return true
		}
		price, name, ok = extractPriceFromJSON(data)
		return !ok
	})
	return price, name, ok
}

// extractPriceFromJSON looks for offers.price, then a top-level price, then
// searches nested objects such as @graph.
func extractPriceFromJSON(data interface{}) (string, string, bool) {
	switch v := data.(type) {
	case map[string]interface{}:
		name, _ := v["name"].(string)

		if price, ok := offerPrice(v["offers"]); ok {
			return price, name, true
		}
		if price, ok := jsonPrice(v["price"]); ok {
			return price, name, true
		}

		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if price, nested, ok := extractPriceFromJSON(v[k]); ok {
				if nested == "" {
					nested = name
				}
				return price, nested, true
			}
		}

	case []interface{}:
		for _, item := range v {
			if price, name, ok := extractPriceFromJSON(item); ok {
				return price, name, true
			}
		}
	}
	return "", "", false
}

func offerPrice(offers interface{}) (string, bool) {
	switch o := offers.(type) {
	case map[string]interface{}:
		for _, field := range []string{"price", "lowPrice"} {
			if price, ok := jsonPrice(o[field]); ok {
				return price, true
			}
		}
	case []interface{}:
		for _, item := range o {
			if price, ok := offerPrice(item); ok {
				return price, true
			}
		}
	}
	return "", false
}

// jsonPrice converts a JSON number or numeric string to a two-decimal $ literal
func jsonPrice(value interface{}) (string, bool) {
	var amount float64
	switch v := value.(type) {
	case float64:
		amount = v
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(v), "$")
		if !jsonAmount.MatchString(s) {
			return "", false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return "", false
		}
		amount = f
	default:
		return "", false
	}
	if amount <= 0 {
		return "", false
	}
	return fmt.Sprintf("$%.2f", amount), true
}
