package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrCaptcha matches any *CaptchaError with errors.Is
var ErrCaptcha = errors.New("captcha detected")

// CaptchaError signals that a fetch hit a verification challenge
type CaptchaError struct {
	Query  string
	URL    string
	Reason string
}

func (e *CaptchaError) Error() string {
	return fmt.Sprintf("captcha detected for %q at %s: %s", e.Query, e.URL, e.Reason)
}

// Is makes errors.Is(err, ErrCaptcha) hold
func (e *CaptchaError) Is(target error) bool {
	return target == ErrCaptcha
}

// Block types reported by BlockType
const (
	BlockNone      = "none"
	BlockCaptcha   = "captcha"
	BlockHTTPError = "http_error"
	BlockBotWall   = "bot_wall"
)

// CaptchaDetector detects verification challenges. Selectors are matched
// against the parsed page, phrases against the title and visible body text.
// Single-word phrases are too common in page copy and only match the title.
type CaptchaDetector struct {
	selectors     []string
	titlePhrases  []string
	phrases       []string
	blockPatterns []*regexp.Regexp
}

// NewCaptchaDetector creates a detector with the built-in indicators plus any extras
func NewCaptchaDetector(extraPhrases, extraSelectors []string) *CaptchaDetector {
	cd := &CaptchaDetector{
		selectors: []string{
			`form[action*="CaptchaRedirect"]`,
			`input#captcha`,
			`div:containsOwn("unusual traffic")`,
			`div:containsOwn("verify you are a human")`,
			`div#recaptcha`,
			`iframe[src*="recaptcha"]`,
			`h1:containsOwn("Before you continue")`,
		},
		titlePhrases: []string{
			"verify",
			"robot",
		},
		phrases: []string{
			"captcha",
			"unusual traffic",
			"verify you're a human",
			"security check",
			"automated query",
		},
		blockPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)403 forbidden`),
			regexp.MustCompile(`(?i)429 too many requests`),
			regexp.MustCompile(`(?i)503 service unavailable`),
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)rate limit`),
		},
	}

	for _, p := range extraPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			cd.phrases = append(cd.phrases, p)
		}
	}
	for _, s := range extraSelectors {
		if s = strings.TrimSpace(s); s != "" {
			cd.selectors = append(cd.selectors, s)
		}
	}
	return cd
}

// Detect checks page for a challenge and returns the indicator that fired
func (cd *CaptchaDetector) Detect(page *Page) (bool, string) {
	doc, err := page.Document()
	if err != nil {
		return false, ""
	}

	for _, sel := range cd.selectors {
		// invalid selectors match nothing
		if doc.Find(sel).Length() > 0 {
			return true, "selector " + sel
		}
	}

	title := strings.ToLower(page.Title)
	for _, list := range [][]string{cd.titlePhrases, cd.phrases} {
		for _, phrase := range list {
			if strings.Contains(title, phrase) {
				return true, "title contains " + phrase
			}
		}
	}

	body := strings.ToLower(visibleText(doc.Find("body")))
	for _, phrase := range cd.phrases {
		if strings.Contains(body, phrase) {
			return true, "page contains " + phrase
		}
	}

	return false, ""
}

// BlockType classifies a page for logging
func (cd *CaptchaDetector) BlockType(page *Page) string {
	if captcha, _ := cd.Detect(page); captcha {
		return BlockCaptcha
	}

	content := page.Title
	if doc, err := page.Document(); err == nil {
		content += " " + visibleText(doc.Find("body"))
	}
	for _, pattern := range cd.blockPatterns {
		if pattern.MatchString(content) {
			return BlockBotWall
		}
	}

	if !page.OK() {
		return BlockHTTPError
	}
	return BlockNone
}

// visibleText returns the text of sel without script, style and noscript contents
func visibleText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return clone.Text()
}
