package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Request describes one page fetch
type Request struct {
	URL     string
	Referer string
	Accept  string
	Timeout time.Duration

	// WaitSelector is awaited by the browser transport after load, best effort
	WaitSelector string
}

// Page is a fetched document
type Page struct {
	URL        string
	StatusCode int
	Title      string
	HTML       string

	doc *goquery.Document
}

// Transport fetches pages. Implementations must be safe to call from one
// goroutine at a time; the batch loop never fetches concurrently.
type Transport interface {
	Fetch(ctx context.Context, req Request) (*Page, error)
}

// OK reports a 2xx status
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Document parses the page HTML once and caches the result
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.URL, err)
	}
	p.doc = doc
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return doc, nil
}
