package scraper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprice/models"
	"plantprice/scraper"
)

func TestProductPageFetcher_Fetch(t *testing.T) {
	t.Parallel()

	const pageURL = "https://shop.example.com/jade-plant"
	jsonLD := `<script type="application/ld+json">{"@type":"Product","name":"Jade Plant","offers":{"price":"31.996"}}</script>`

	t.Run("price selectors win over structured data", func(t *testing.T) {
		t.Parallel()

		transport := (&fakeTransport{}).handle("shop.example.com",
			`<html><head>`+jsonLD+`</head><body><h1>Jade Plant</h1><span class="price">$24.50</span></body></html>`)
		p := scraper.NewProductPageFetcher(scraper.SearchPricePattern, scraper.NoPacer{}, scraper.DelayWindow{})

		got := p.Fetch(context.Background(), transport, "jade plant", pageURL)

		require.Len(t, got, 1)
		assert.Equal(t, "$24.50", got[0].Price)
		assert.Equal(t, models.CategorySearchEngine, got[0].Category)
		assert.Contains(t, got[0].Source, pageURL)
	})

	t.Run("structured data when no selector matches", func(t *testing.T) {
		t.Parallel()

		transport := (&fakeTransport{}).handle("shop.example.com",
			`<html><head>`+jsonLD+`</head><body><h1>Jade Plant</h1></body></html>`)
		p := scraper.NewProductPageFetcher(scraper.SearchPricePattern, scraper.NoPacer{}, scraper.DelayWindow{})

		got := p.Fetch(context.Background(), transport, "jade plant", pageURL)

		require.Len(t, got, 1)
		assert.Equal(t, "$32.00", got[0].Price)
		assert.Equal(t, "shop.example.com - Jade Plant... - "+pageURL, got[0].Source)
	})

	t.Run("error status yields nothing", func(t *testing.T) {
		t.Parallel()

		transport := (&fakeTransport{}).handleStatus("shop.example.com", 503, "<html></html>")
		p := scraper.NewProductPageFetcher(scraper.SearchPricePattern, scraper.NoPacer{}, scraper.DelayWindow{})

		assert.Empty(t, p.Fetch(context.Background(), transport, "jade plant", pageURL))
	})
}
