package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"plantprice/models"
)

func TestCanonicalizePrice(t *testing.T) {
	t.Parallel()

	t.Run("canonical prices are unchanged", func(t *testing.T) {
		t.Parallel()

		for _, price := range []string{"$10.00", "$0.99", "$1,299.50", "$24.95"} {
			once := models.CanonicalizePrice(price)
			assert.Equal(t, price, once)
			assert.Equal(t, once, models.CanonicalizePrice(once))
		}
	})

	t.Run("whole dollars get cents", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "$10.00", models.CanonicalizePrice("$10"))
		assert.Equal(t, "$10.00", models.CanonicalizePrice("10"))
		assert.Equal(t, "$1,250.00", models.CanonicalizePrice("$1,250"))
	})

	t.Run("single cent digit is padded", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "$12.50", models.CanonicalizePrice("12.5"))
	})

	t.Run("extra decimals are rounded to cents", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "$25.00", models.CanonicalizePrice("$24.996"))
		assert.Equal(t, "$24.99", models.CanonicalizePrice("24.9912"))
		assert.Equal(t, "$1299.50", models.CanonicalizePrice("$1,299.504"))

		c := models.NewSearchCandidate("jade", "24.996", "Bunnings - https://www.bunnings.com.au/jade", "", 0)
		assert.Equal(t, "$25.00", c.Price)
	})

	t.Run("whitespace is trimmed", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "$7.95", models.CanonicalizePrice("  $7.95 "))
	})

	t.Run("sentinels pass through", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{models.PriceNotFound, models.PriceError, models.PriceCaptcha, models.PriceNotAvailable} {
			assert.Equal(t, s, models.CanonicalizePrice(s))
		}
	})
}

func TestNewSearchCandidate(t *testing.T) {
	t.Parallel()

	t.Run("infers category when empty", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			source string
			want   models.Category
		}{
			{"Bunnings - Jade Plant... - https://www.bunnings.com.au/jade", models.CategoryRetailer},
			{"eBay - Jade 10cm pot - https://www.ebay.com.au/itm/1", models.CategoryMarketplace},
			{"Google Shopping", models.CategorySearchEngine},
			{"Plantary - https://plantary.com.au/jade", models.CategorySpecialty},
			{"somewhere else", models.CategoryOther},
		}
		for _, tt := range tests {
			c := models.NewSearchCandidate("jade", "$5", tt.source, "", 0)
			assert.Equal(t, tt.want, c.Category, tt.source)
		}
	})

	t.Run("negative score is clamped", func(t *testing.T) {
		t.Parallel()

		c := models.NewSearchCandidate("jade", "$5", "x", models.CategoryOther, -3)
		assert.Equal(t, 0, c.RelevanceScore)
		assert.Equal(t, "$5.00", c.Price)
	})

	t.Run("priority marketplace needs ebay or amazon", func(t *testing.T) {
		t.Parallel()

		assert.True(t, models.NewSearchCandidate("q", "$1", "eBay - x", models.CategoryMarketplace, 0).IsPriorityMarketplace())
		assert.True(t, models.NewSearchCandidate("q", "$1", "Amazon - x", models.CategoryMarketplace, 0).IsPriorityMarketplace())
		assert.False(t, models.NewSearchCandidate("q", "$1", "Etsy - x", models.CategoryMarketplace, 0).IsPriorityMarketplace())
		assert.False(t, models.NewSearchCandidate("q", "$1", "eBay - x", models.CategoryOther, 0).IsPriorityMarketplace())
	})
}
