package scraper

import (
	"errors"
	"fmt"
	"io"
	"log"

	"plantprice/models"
)

// Session owns the transports used by one batch. The browser, when the
// browser method is selected, lives until Close.
type Session struct {
	Method models.Method

	direct  Transport
	search  Transport
	closers []io.Closer
}

// NewSession bundles transports for a batch. search may be nil, in which
// case the direct transport also serves the search engine.
func NewSession(method models.Method, direct, search Transport, closers ...io.Closer) *Session {
	if search == nil {
		search = direct
	}
	return &Session{
		Method:  method,
		direct:  direct,
		search:  search,
		closers: closers,
	}
}

// Direct returns the HTTP transport used for stores and product pages
func (s *Session) Direct() Transport {
	return s.direct
}

// Search returns the transport used for the search engine
func (s *Session) Search() Transport {
	return s.search
}

// Close releases every held resource. Safe to call more than once.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// SessionFactory opens sessions from transport configuration
type SessionFactory struct {
	HTTP    HTTPTransportConfig
	Browser BrowserConfig
}

// Open creates a session for method. The browser is launched lazily on the first search fetch.
func (f *SessionFactory) Open(method models.Method) (*Session, error) {
	direct := NewHTTPTransport(f.HTTP)

	switch method {
	case models.MethodBrowser:
		browser := NewBrowserTransport(f.Browser)
		log.Printf("🔄 Opened browser session")
		return NewSession(method, direct, browser, browser), nil
	case models.MethodDirectHTTP, "":
		log.Printf("🔄 Opened direct HTTP session")
		return NewSession(models.MethodDirectHTTP, direct, nil), nil
	default:
		return nil, fmt.Errorf("unknown scrape method %q", method)
	}
}
