package scraper_test

import (
	"context"
	"strings"
	"sync"

	"plantprice/models"
	"plantprice/scraper"
)

type route struct {
	match  string
	status int
	html   string
}

// fakeTransport serves canned HTML for any URL containing a registered substring
type fakeTransport struct {
	mu       sync.Mutex
	routes   []route
	requests []scraper.Request
}

func (f *fakeTransport) handle(match, html string) *fakeTransport {
	f.routes = append(f.routes, route{match: match, status: 200, html: html})
	return f
}

func (f *fakeTransport) handleStatus(match string, status int, html string) *fakeTransport {
	f.routes = append(f.routes, route{match: match, status: status, html: html})
	return f
}

func (f *fakeTransport) Fetch(_ context.Context, req scraper.Request) (*scraper.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	for _, r := range f.routes {
		if strings.Contains(req.URL, r.match) {
			return &scraper.Page{URL: req.URL, StatusCode: r.status, HTML: r.html}, nil
		}
	}
	return &scraper.Page{URL: req.URL, StatusCode: 404, HTML: "<html><body>not found</body></html>"}, nil
}

func (f *fakeTransport) fetched(match string) []scraper.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []scraper.Request
	for _, r := range f.requests {
		if strings.Contains(r.URL, match) {
			out = append(out, r)
		}
	}
	return out
}

func bySource(cs []models.SearchCandidate, source string) (models.SearchCandidate, bool) {
	for _, c := range cs {
		if c.Source == source {
			return c, true
		}
	}
	return models.SearchCandidate{}, false
}

func withPrefix(cs []models.SearchCandidate, prefix string) []models.SearchCandidate {
	var out []models.SearchCandidate
	for _, c := range cs {
		if strings.HasPrefix(c.Source, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func retailer(name string) scraper.SourceDescriptor {
	for _, d := range scraper.RetailerSources {
		if d.Name == name {
			return d
		}
	}
	panic("unknown retailer " + name)
}

func specialty(name string) scraper.SourceDescriptor {
	for _, d := range scraper.SpecialtySources {
		if d.Name == name {
			return d
		}
	}
	panic("unknown nursery " + name)
}
