package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"plantprice/config"
	"plantprice/models"
	"plantprice/scraper"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SCRAPE_METHOD", "PAUSE_ON_CAPTCHA", "EXCLUDED_SOURCES", "RESULT_COUNT", "SEARCH_DELAY_MIN", "SEARCH_DELAY_MAX", "RESULT_SELECTION"} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, models.MethodDirectHTTP, cfg.Method)
	assert.True(t, cfg.PauseOnCaptcha)
	assert.Equal(t, scraper.DefaultExcludedSources, cfg.ExcludedSources)
	assert.Equal(t, models.DefaultResultCount, cfg.ResultCount)
	assert.Equal(t, scraper.DefaultPacing(), cfg.Pacing)
	assert.Equal(t, models.SelectionDiverse, cfg.Selection)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCRAPE_METHOD", "browser")
	t.Setenv("PAUSE_ON_CAPTCHA", "false")
	t.Setenv("EXCLUDED_SOURCES", " ebay , ,etsy")
	t.Setenv("RESULT_COUNT", "-1")
	t.Setenv("SEARCH_DELAY_MIN", "4s")
	t.Setenv("SEARCH_DELAY_MAX", "2s")
	t.Setenv("REQUEST_TIMEOUT", "not a duration")
	t.Setenv("RESULT_SELECTION", "in-order")

	cfg := config.Load()

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, models.MethodBrowser, cfg.Method)
	assert.False(t, cfg.PauseOnCaptcha)
	assert.Equal(t, []string{"ebay", "etsy"}, cfg.ExcludedSources)
	assert.Equal(t, models.DefaultResultCount, cfg.ResultCount)
	assert.Equal(t, scraper.DelayWindow{Min: 2 * time.Second, Max: 4 * time.Second}, cfg.Pacing.Search)
	assert.Equal(t, scraper.DefaultHTTPTransportConfig().Timeout, cfg.HTTP.Timeout)
	assert.Equal(t, models.SelectionInOrder, cfg.Selection)
}

func TestLoad_InvalidMethod(t *testing.T) {
	t.Setenv("SCRAPE_METHOD", "carrier-pigeon")

	assert.Equal(t, models.MethodDirectHTTP, config.Load().Method)
}

func TestLoad_InvalidSelection(t *testing.T) {
	t.Setenv("RESULT_SELECTION", "cheapest")

	assert.Equal(t, models.SelectionDiverse, config.Load().Selection)
}
