package storage

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gingfrederik/docx"

	"plantprice/models"
)

// WriteDOCX renders the report as a Word document and copies it to out
func WriteDOCX(out io.Writer, title string, results []models.PlantResult, columns []string) error {
	if len(columns) == 0 {
		columns = AllColumns
	}

	f := docx.NewFile()

	run := f.AddParagraph().AddText(title)
	run.Size(20)
	run = f.AddParagraph().AddText(fmt.Sprintf("Generated %s | %d plants", time.Now().Format("2006-01-02 15:04"), len(results)))
	run.Size(10)
	run.Color("808080")
	f.AddParagraph() // Spacer

	for i, row := range Rows(results, columns) {
		r := results[i]

		run = f.AddParagraph().AddText(r.Plant)
		run.Size(16)

		run = f.AddParagraph().AddText(fmt.Sprintf("Status: %s | Min: %s | Max: %s | Avg: %s", r.Status, r.Stats.Min, r.Stats.Max, r.Stats.Avg))
		run.Size(10)
		run.Color("808080")

		for j, c := range columns {
			if c == "plant" {
				continue
			}
			run = f.AddParagraph().AddText(fmt.Sprintf("%s: %s", c, row[j]))
			if strings.HasPrefix(c, "source") && strings.HasPrefix(row[j], "http") {
				run.Color("0000FF")
			}
		}
		f.AddParagraph().AddText("--------------------------------------------------")
	}

	tmp, err := os.CreateTemp("", "plantprice-*.docx")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	saved, err := os.Open(path)
	if err != nil {
		return err
	}
	defer saved.Close()

	_, err = io.Copy(out, saved)
	return err
}
