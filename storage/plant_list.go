package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"plantprice/scraper"
)

// ReadPlantList reads one plant name per line from path
func ReadPlantList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plant list: %w", err)
	}
	defer file.Close()

	return ParsePlantList(file)
}

// ParsePlantList skips blank lines and # comments and cleans each name
func ParsePlantList(r io.Reader) ([]string, error) {
	var plants []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name := scraper.CleanPlantName(line); name != "" {
			plants = append(plants, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plant list: %w", err)
	}
	return plants, nil
}
