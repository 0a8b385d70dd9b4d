package scraper

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the headless browser transport
type BrowserConfig struct {
	Bin         string
	Headless    bool
	PageTimeout time.Duration
}

// BrowserTransport fetches pages through a Chromium instance driven by rod.
// The browser is launched on first use and kept until Close.
type BrowserTransport struct {
	cfg BrowserConfig

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserTransport creates a browser transport; nothing is launched yet
func NewBrowserTransport(cfg BrowserConfig) *BrowserTransport {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	return &BrowserTransport{cfg: cfg}
}

func (t *BrowserTransport) connect() (*rod.Browser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browser != nil {
		return t.browser, nil
	}

	l := launcher.New().
		Headless(t.cfg.Headless).
		NoSandbox(true).
		Leakless(false)

	bin := t.cfg.Bin
	if bin == "" {
		// system Chromium in Docker, auto-detect locally
		if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
			bin = "/usr/bin/chromium-browser"
		}
	}
	if bin != "" {
		l = l.Bin(bin)
		log.Printf("🌐 Using browser binary: %s", bin)
	} else {
		log.Printf("🌐 Using auto-detected Chromium")
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	t.launcher = l
	t.browser = browser
	log.Printf("✅ Browser started at: %s", u)
	return browser, nil
}

// Fetch opens a stealth tab, navigates and returns the rendered HTML
func (t *BrowserTransport) Fetch(ctx context.Context, req Request) (*Page, error) {
	browser, err := t.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.cfg.PageTimeout
	}
	p := page.Context(ctx).Timeout(timeout)

	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: RandomUserAgent()}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if req.WaitSelector != "" {
		if _, err := p.Timeout(10 * time.Second).Element(req.WaitSelector); err != nil {
			log.Printf("⚠️ %s not present on %s", req.WaitSelector, req.URL)
		}
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	result := &Page{URL: req.URL, StatusCode: 200, HTML: html}
	if info, err := p.Info(); err == nil {
		result.URL = info.URL
		result.Title = info.Title
	}
	return result, nil
}

// Close shuts the browser down if it was started
func (t *BrowserTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.browser == nil {
		return nil
	}
	err := t.browser.Close()
	t.launcher.Kill()
	t.browser = nil
	t.launcher = nil
	log.Println("🛑 Browser closed")
	return err
}
