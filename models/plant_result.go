package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PlantStatus describes how processing of one item ended
type PlantStatus string

const (
	PlantStatusFound          PlantStatus = "found"
	PlantStatusNotFound       PlantStatus = "not_found"
	PlantStatusCaptchaSkipped PlantStatus = "captcha_skipped"
	PlantStatusError          PlantStatus = "error"
)

var (
	urlInSource    = regexp.MustCompile(`https?://[^\s]+`)
	trailingPunct  = regexp.MustCompile(`[.,;:)]+$`)
	domainInSource = regexp.MustCompile(`[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
	knownTLD       = regexp.MustCompile(`\.(com|net|org|edu|gov|au|co|io)$`)
)

// PlantResult is the final per-item output handed to the caller
type PlantResult struct {
	Position    int               `json:"position"`
	Plant       string            `json:"plant"`
	Status      PlantStatus       `json:"status"`
	Results     []SearchCandidate `json:"results"`
	Stats       PriceStats        `json:"stats"`
	Error       string            `json:"error,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// NewPlantResult selects the top count candidates of set with the diverse policy
func NewPlantResult(position int, set *QueryResultSet, count int) PlantResult {
	return NewPlantResultBy(position, set, count, SelectionDiverse)
}

// NewPlantResultBy selects the top count candidates of set with sel. An empty
// selection becomes a single sentinel.
func NewPlantResultBy(position int, set *QueryResultSet, count int, sel Selection) PlantResult {
	result := PlantResult{
		Position:    position,
		Plant:       set.Query,
		Status:      PlantStatusFound,
		Results:     set.TopBy(sel, count),
		Stats:       set.Stats(),
		ProcessedAt: time.Now(),
	}

	if len(result.Results) == 0 {
		if set.CaptchaSkipped {
			result.Status = PlantStatusCaptchaSkipped
			result.Results = []SearchCandidate{
				NewSearchCandidate(set.Query, PriceCaptcha, SourceSearchEngine, CategorySearchEngine, 0),
			}
		} else {
			result.Status = PlantStatusNotFound
			result.Results = []SearchCandidate{NotFoundCandidate(set.Query)}
		}
	}
	return result
}

// NewErrorPlantResult records an item whose processing failed
func NewErrorPlantResult(position int, plant string, err error) PlantResult {
	return PlantResult{
		Position: position,
		Plant:    plant,
		Status:   PlantStatusError,
		Results: []SearchCandidate{
			NewSearchCandidate(plant, PriceError, fmt.Sprintf("Error: %v", err), CategoryOther, 0),
		},
		Stats:       PriceStats{Min: PriceNotAvailable, Max: PriceNotAvailable, Avg: PriceNotAvailable},
		Error:       err.Error(),
		ProcessedAt: time.Now(),
	}
}

// Slot returns price and source for the 1-based result slot, N/A when empty
func (r PlantResult) Slot(i int) (string, string) {
	if i < 1 || i > len(r.Results) {
		return PriceNotAvailable, PriceNotAvailable
	}
	c := r.Results[i-1]
	if url := ExtractURL(c.Source); url != "" {
		return c.Price, url
	}
	return c.Price, c.Source
}

// ExtractURL pulls a URL out of a composite source string. Bare domains with a
// known TLD are promoted to https://www. URLs. Returns "" when nothing fits.
func ExtractURL(source string) string {
	source = strings.TrimSpace(strings.TrimPrefix(source, "🔗"))
	if m := urlInSource.FindString(source); m != "" {
		return trailingPunct.ReplaceAllString(m, "")
	}
	if m := domainInSource.FindString(source); m != "" && knownTLD.MatchString(m) {
		return "https://www." + m
	}
	return ""
}
