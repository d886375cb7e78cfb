package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
)

// CSVParser handles CSV files. Each data row becomes one line of
// "header: value" pairs; the header row itself is not emitted.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &document.Document{Title: titleFromFilename(filename)}
	if len(records) < 2 {
		return doc, nil
	}

	headers := records[0]
	var w lineWriter
	for _, row := range records[1:] {
		parts := make([]string, 0, len(row))
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if j < len(headers) && headers[j] != "" {
				parts = append(parts, headers[j]+": "+cell)
			} else {
				parts = append(parts, cell)
			}
		}
		w.add(strings.Join(parts, ", "))
	}
	doc.Pages = w.pages()
	return doc, nil
}
