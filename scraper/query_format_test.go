package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"plantprice/scraper"
)

func TestCleanPlantName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Jade   Plant ", "Jade Plant"},
		{"The Money Tree", "Money Tree"},
		{"a Fiddle Leaf Fig", "Fiddle Leaf Fig"},
		{"Monstera (easy care indoor)", "Monstera"},
		{"Aloe (Aloe vera)", "Aloe (Aloe vera)"},
		{"Theobroma cacao", "Theobroma cacao"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scraper.CleanPlantName(tt.in), tt.in)
	}
}

func TestFormatSearchTerm(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Crassula+ovata+price+buy+australia", scraper.FormatSearchTerm("Crassula ovata"))
	assert.Equal(t, "jade+plant+plant+price+australia+buy", scraper.FormatSearchTerm("jade plant"))
	assert.Equal(t, "Bird%27s+Nest+Fern+plant+price+australia+buy", scraper.FormatSearchTerm("Bird's Nest Fern"))
}
