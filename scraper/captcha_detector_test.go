package scraper_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"plantprice/scraper"
)

func page(status int, html string) *scraper.Page {
	return &scraper.Page{URL: "https://www.google.com.au/search?q=jade", StatusCode: status, HTML: html}
}

func TestCaptchaDetector_Detect(t *testing.T) {
	t.Parallel()

	detector := scraper.NewCaptchaDetector([]string{"Please slide to continue"}, []string{"div#px-captcha"})

	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "captcha redirect form",
			html: `<html><body><form action="https://www.google.com/sorry/CaptchaRedirect"></form></body></html>`,
			want: true,
		},
		{
			name: "recaptcha iframe",
			html: `<html><body><iframe src="https://www.google.com/recaptcha/api2/anchor"></iframe></body></html>`,
			want: true,
		},
		{
			name: "unusual traffic phrase",
			html: `<html><body><p>Our systems have detected unusual traffic from your computer network.</p></body></html>`,
			want: true,
		},
		{
			name: "phrase in title",
			html: `<html><head><title>Security Check</title></head><body></body></html>`,
			want: true,
		},
		{
			name: "configured phrase",
			html: `<html><body><p>Please slide to continue</p></body></html>`,
			want: true,
		},
		{
			name: "configured selector",
			html: `<html><body><div id="px-captcha"></div></body></html>`,
			want: true,
		},
		{
			name: "robot check in title",
			html: `<html><head><title>Are you a robot?</title></head><body></body></html>`,
			want: true,
		},
		{
			name: "inline script mentioning verify",
			html: `<html><head><title>jade plant - Search</title></head><body><div class="g"><h3>Jade Plant $19.99</h3></div><script>window.verifyToken=1;var captchaLoaded=false;</script><style>.robot{}</style></body></html>`,
			want: false,
		},
		{
			name: "single word phrase in page copy",
			html: `<html><body><div class="g">Verify stock with your local store. Robot lawn mowers also available.</div></body></html>`,
			want: false,
		},
		{
			name: "ordinary results page",
			html: `<html><head><title>jade plant - Search</title></head><body><div id="search"><div class="g">Jade Plant $12.98</div></div></body></html>`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, reason := detector.Detect(page(200, tt.html))
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestCaptchaDetector_BlockType(t *testing.T) {
	t.Parallel()

	detector := scraper.NewCaptchaDetector(nil, nil)

	assert.Equal(t, scraper.BlockCaptcha, detector.BlockType(page(200, `<body>unusual traffic</body>`)))
	assert.Equal(t, scraper.BlockBotWall, detector.BlockType(page(403, `<body>Access Denied</body>`)))
	assert.Equal(t, scraper.BlockHTTPError, detector.BlockType(page(500, `<body>oops</body>`)))
	assert.Equal(t, scraper.BlockNone, detector.BlockType(page(200, `<body>jade plant</body>`)))
}

func TestCaptchaError(t *testing.T) {
	t.Parallel()

	var err error = &scraper.CaptchaError{Query: "jade", URL: "https://example.com", Reason: "selector"}
	wrapped := fmt.Errorf("search: %w", err)

	assert.True(t, errors.Is(wrapped, scraper.ErrCaptcha))
	assert.False(t, errors.Is(errors.New("other"), scraper.ErrCaptcha))
	assert.Contains(t, err.Error(), "jade")
}
