package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"plantprice/models"
)

type CSVWriter struct {
	filename string
}

func NewCSVWriter(filename string) *CSVWriter {
	return &CSVWriter{filename: filename}
}

// WriteResults writes the report to the writer's file
func (w *CSVWriter) WriteResults(results []models.PlantResult, columns []string) error {
	file, err := os.Create(w.filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, results, columns)
}

// WriteCSV writes a header row and one row per plant
func WriteCSV(out io.Writer, results []models.PlantResult, columns []string) error {
	if len(columns) == 0 {
		columns = AllColumns
	}

	writer := csv.NewWriter(out)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range Rows(results, columns) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
