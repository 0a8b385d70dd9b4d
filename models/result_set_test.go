package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprice/models"
)

func TestQueryResultSet(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate sources", func(t *testing.T) {
		t.Parallel()

		set := models.NewQueryResultSet("jade")
		assert.True(t, set.Add(candidate("one", models.CategoryRetailer)))
		assert.False(t, set.Add(candidate("one", models.CategoryMarketplace)))
		assert.Equal(t, 1, set.AddAll([]models.SearchCandidate{
			candidate("one", models.CategoryOther),
			candidate("two", models.CategoryOther),
		}))
		assert.Equal(t, 2, set.Len())
	})

	t.Run("stats ignore sentinels", func(t *testing.T) {
		t.Parallel()

		set := models.NewQueryResultSet("jade")
		set.Add(models.NewSearchCandidate("jade", "$10", "a", models.CategoryRetailer, 0))
		set.Add(models.NewSearchCandidate("jade", "$1,000.50", "b", models.CategoryRetailer, 0))
		set.Add(models.NewSearchCandidate("jade", models.PriceNotFound, "c", models.CategoryOther, 0))

		stats := set.Stats()
		assert.Equal(t, 3, stats.Count)
		assert.Equal(t, "$10.00", stats.Min)
		assert.Equal(t, "$1000.50", stats.Max)
		assert.Equal(t, "$505.25", stats.Avg)
	})

	t.Run("empty stats are not available", func(t *testing.T) {
		t.Parallel()

		stats := models.NewQueryResultSet("jade").Stats()
		assert.Equal(t, models.PriceNotAvailable, stats.Min)
		assert.Equal(t, models.PriceNotAvailable, stats.Avg)
	})

	t.Run("enough results needs a retailer and a marketplace", func(t *testing.T) {
		t.Parallel()

		set := models.NewQueryResultSet("jade")
		set.Add(candidate("a", models.CategoryRetailer))
		set.Add(candidate("b", models.CategorySearchEngine))
		set.Add(candidate("c", models.CategorySpecialty))
		assert.False(t, set.HasEnoughResults())

		set.Add(candidate("eBay - d", models.CategoryMarketplace))
		assert.True(t, set.HasEnoughResults())
	})
}

func TestNewPlantResult(t *testing.T) {
	t.Parallel()

	t.Run("empty set yields not found sentinel", func(t *testing.T) {
		t.Parallel()

		r := models.NewPlantResult(1, models.NewQueryResultSet("jade"), 3)
		assert.Equal(t, models.PlantStatusNotFound, r.Status)
		require.Len(t, r.Results, 1)
		assert.Equal(t, models.PriceNotFound, r.Results[0].Price)
		assert.Equal(t, models.SourceNothingFound, r.Results[0].Source)
	})

	t.Run("captcha skipped set is labelled", func(t *testing.T) {
		t.Parallel()

		set := models.NewQueryResultSet("jade")
		set.CaptchaSkipped = true
		r := models.NewPlantResult(1, set, 3)
		assert.Equal(t, models.PlantStatusCaptchaSkipped, r.Status)
		require.Len(t, r.Results, 1)
		assert.Equal(t, models.PriceCaptcha, r.Results[0].Price)
		assert.Equal(t, models.SourceSearchEngine, r.Results[0].Source)
	})

	t.Run("error result carries the message", func(t *testing.T) {
		t.Parallel()

		r := models.NewErrorPlantResult(2, "jade", errors.New("boom"))
		assert.Equal(t, models.PlantStatusError, r.Status)
		assert.Equal(t, "boom", r.Error)
		assert.Equal(t, models.PriceError, r.Results[0].Price)
		assert.Equal(t, "Error: boom", r.Results[0].Source)
	})

	t.Run("slots beyond results are not available", func(t *testing.T) {
		t.Parallel()

		set := models.NewQueryResultSet("jade")
		set.Add(models.NewSearchCandidate("jade", "$12", "Bunnings - Jade... - https://www.bunnings.com.au/p/1", models.CategoryRetailer, 2))
		r := models.NewPlantResult(1, set, 3)

		price, source := r.Slot(1)
		assert.Equal(t, "$12.00", price)
		assert.Equal(t, "https://www.bunnings.com.au/p/1", source)

		price, source = r.Slot(2)
		assert.Equal(t, models.PriceNotAvailable, price)
		assert.Equal(t, models.PriceNotAvailable, source)
	})
}

func TestExtractURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source string
		want   string
	}{
		{"eBay - Jade - https://www.ebay.com.au/itm/1", "https://www.ebay.com.au/itm/1"},
		{"see http://example.com/x).", "http://example.com/x"},
		{"plantary.com.au Meta: jade...", "https://www.plantary.com.au"},
		{"Featured Snippet: jade for $5...", ""},
		{"Google Shopping", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.ExtractURL(tt.source), tt.source)
	}
}

func TestBatchLifecycle(t *testing.T) {
	t.Parallel()

	b := models.NewBatch([]string{"a", "b"}, models.MethodDirectHTTP, nil, true)
	assert.Equal(t, models.BatchStatusIdle, b.Status)
	assert.Equal(t, 2, b.Total)

	b.Start()
	assert.True(t, b.IsActive())
	b.UpdateProgress(1, "one done")
	assert.Equal(t, 50, b.Percent())

	b.PauseForCaptcha("captcha")
	assert.True(t, b.IsActive())
	b.Resume()
	assert.Equal(t, models.BatchStatusRunning, b.Status)

	clone := b.Clone()
	clone.Queries[0] = "changed"
	assert.Equal(t, "a", b.Queries[0])

	b.Complete()
	assert.False(t, b.IsActive())
	assert.Equal(t, 2, b.Processed)
	assert.NotNil(t, b.FinishedAt)
}
