package storage

import (
	"fmt"
	"strings"

	"plantprice/models"
)

// AllColumns is the full export layout, one row per plant
var AllColumns = []string{"plant", "price1", "source1", "price2", "source2", "price3", "source3"}

// ParseColumns validates a comma separated column subset. Empty means all columns.
func ParseColumns(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return AllColumns, nil
	}

	known := make(map[string]bool, len(AllColumns))
	for _, c := range AllColumns {
		known[c] = true
	}

	var columns []string
	for _, c := range strings.Split(spec, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if !known[c] {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		columns = append(columns, c)
	}
	if len(columns) == 0 {
		return AllColumns, nil
	}
	return columns, nil
}

// Rows renders results as table rows in the order of columns
func Rows(results []models.PlantResult, columns []string) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := make([]string, 0, len(columns))
		for _, c := range columns {
			row = append(row, cell(r, c))
		}
		rows = append(rows, row)
	}
	return rows
}

func cell(r models.PlantResult, column string) string {
	if column == "plant" {
		return r.Plant
	}

	// priceN / sourceN
	slot := int(column[len(column)-1] - '0')
	price, source := r.Slot(slot)
	if strings.HasPrefix(column, "price") {
		return price
	}
	return source
}
