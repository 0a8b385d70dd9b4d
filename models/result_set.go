package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numericPrice = regexp.MustCompile(`^\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)$`)

// QueryResultSet accumulates candidates for one query in insertion order.
// A candidate whose source is already present is rejected.
type QueryResultSet struct {
	Query          string
	CaptchaSkipped bool

	candidates []SearchCandidate
	sources    map[string]bool
}

// PriceStats summarises the numeric prices of a result set
type PriceStats struct {
	Count int    `json:"count"`
	Min   string `json:"min"`
	Max   string `json:"max"`
	Avg   string `json:"avg"`
}

// NewQueryResultSet creates an empty result set for query
func NewQueryResultSet(query string) *QueryResultSet {
	return &QueryResultSet{
		Query:   query,
		sources: make(map[string]bool),
	}
}

// Add inserts c unless its source is already present
func (s *QueryResultSet) Add(c SearchCandidate) bool {
	if s.sources[c.Source] {
		return false
	}
	s.sources[c.Source] = true
	s.candidates = append(s.candidates, c)
	return true
}

// AddAll inserts every candidate and returns how many were accepted
func (s *QueryResultSet) AddAll(cs []SearchCandidate) int {
	added := 0
	for _, c := range cs {
		if s.Add(c) {
			added++
		}
	}
	return added
}

// Len returns the number of accumulated candidates
func (s *QueryResultSet) Len() int {
	return len(s.candidates)
}

// Candidates returns a copy of the accumulated candidates
func (s *QueryResultSet) Candidates() []SearchCandidate {
	out := make([]SearchCandidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Top returns the diversity-prioritized top n
func (s *QueryResultSet) Top(n int) []SearchCandidate {
	return Assemble(s.candidates, n)
}

// TopBy returns the top n under the given selection policy
func (s *QueryResultSet) TopBy(sel Selection, n int) []SearchCandidate {
	return sel.Select(s.candidates, n)
}

// HasEnoughResults reports whether at least three candidates exist and both a
// retailer and a marketplace are among them.
func (s *QueryResultSet) HasEnoughResults() bool {
	if len(s.candidates) < 3 {
		return false
	}
	var retailer, marketplace bool
	for _, c := range s.candidates {
		switch c.Category {
		case CategoryRetailer:
			retailer = true
		case CategoryMarketplace:
			marketplace = true
		}
	}
	return retailer && marketplace
}

// Stats computes min, max and average over the numeric prices
func (s *QueryResultSet) Stats() PriceStats {
	stats := PriceStats{
		Count: len(s.candidates),
		Min:   PriceNotAvailable,
		Max:   PriceNotAvailable,
		Avg:   PriceNotAvailable,
	}

	var values []float64
	for _, c := range s.candidates {
		if v, ok := ParsePriceValue(c.Price); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return stats
	}

	lo, hi, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}

	stats.Min = fmt.Sprintf("$%.2f", lo)
	stats.Max = fmt.Sprintf("$%.2f", hi)
	stats.Avg = fmt.Sprintf("$%.2f", sum/float64(len(values)))
	return stats
}

// ParsePriceValue converts a canonical price like "$1,299.00" to a number
func ParsePriceValue(price string) (float64, bool) {
	if IsSentinelPrice(price) {
		return 0, false
	}
	m := numericPrice.FindStringSubmatch(strings.TrimSpace(price))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
