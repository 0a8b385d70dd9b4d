package models

// DefaultResultCount is the number of results kept per item
const DefaultResultCount = 3

// Selection names the policy that picks an item's top results
type Selection string

const (
	// SelectionDiverse favours category diversity (Assemble)
	SelectionDiverse Selection = "diverse"
	// SelectionInOrder keeps the first distinct sources found (AssembleInOrder)
	SelectionInOrder Selection = "in-order"
)

// Valid reports whether s is a known policy
func (s Selection) Valid() bool {
	return s == SelectionDiverse || s == SelectionInOrder
}

// Select applies the policy. Unknown values use the diverse policy.
func (s Selection) Select(candidates []SearchCandidate, count int) []SearchCandidate {
	if s == SelectionInOrder {
		return AssembleInOrder(candidates, count)
	}
	return Assemble(candidates, count)
}

// Assemble picks up to count candidates favouring category diversity:
// one retailer, one search-engine result and one eBay/Amazon listing first,
// then specialty, other marketplaces, other, and finally anything left in
// arrival order. A source string is never selected twice.
func Assemble(candidates []SearchCandidate, count int) []SearchCandidate {
	if count <= 0 {
		return []SearchCandidate{}
	}
	if len(candidates) <= count {
		out := make([]SearchCandidate, len(candidates))
		copy(out, candidates)
		return out
	}

	var retailers, search, specialty, priorityMarket, otherMarket, other []SearchCandidate
	for _, c := range candidates {
		switch c.Category {
		case CategoryRetailer:
			retailers = append(retailers, c)
		case CategorySearchEngine:
			search = append(search, c)
		case CategorySpecialty:
			specialty = append(specialty, c)
		case CategoryMarketplace:
			if c.IsPriorityMarketplace() {
				priorityMarket = append(priorityMarket, c)
			} else {
				otherMarket = append(otherMarket, c)
			}
		default:
			other = append(other, c)
		}
	}

	picker := newPicker(count)
	picker.drawOne(retailers)
	picker.drawOne(search)
	picker.drawOne(priorityMarket)
	picker.drawAll(specialty)
	picker.drawAll(otherMarket)
	picker.drawAll(other)
	picker.drawAll(candidates)

	return picker.selected
}

// AssembleInOrder is the degraded policy: the first count distinct sources
// in discovery order.
func AssembleInOrder(candidates []SearchCandidate, count int) []SearchCandidate {
	picker := newPicker(count)
	picker.drawAll(candidates)
	return picker.selected
}

type picker struct {
	count    int
	selected []SearchCandidate
	seen     map[string]bool
}

func newPicker(count int) *picker {
	if count < 0 {
		count = 0
	}
	return &picker{
		count:    count,
		selected: make([]SearchCandidate, 0, count),
		seen:     make(map[string]bool),
	}
}

func (p *picker) full() bool {
	return len(p.selected) >= p.count
}

func (p *picker) take(c SearchCandidate) bool {
	if p.full() || p.seen[c.Source] {
		return false
	}
	p.seen[c.Source] = true
	p.selected = append(p.selected, c)
	return true
}

// drawOne takes the first candidate of pool whose source is new
func (p *picker) drawOne(pool []SearchCandidate) {
	for _, c := range pool {
		if p.full() {
			return
		}
		if p.take(c) {
			return
		}
	}
}

func (p *picker) drawAll(pool []SearchCandidate) {
	for _, c := range pool {
		if p.full() {
			return
		}
		p.take(c)
	}
}
