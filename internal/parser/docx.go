package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Paragraphs become lines and table rows
// become "cell | cell" lines, all on a single page. A paragraph styled
// Title names the document.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	d, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := &document.Document{Title: titleFromFilename(filename)}
	titled := false
	var w lineWriter
	for _, item := range d.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			text := paragraphText(v)
			if !titled && text != "" && hasStyle(v, "Title") {
				doc.Title = text
				titled = true
			}
			for _, line := range strings.Split(text, "\n") {
				w.add(line)
			}
		case *docx.Table:
			addTable(&w, v)
		}
	}
	doc.Pages = w.pages()
	return doc, nil
}

func hasStyle(para *docx.Paragraph, style string) bool {
	props := para.Properties
	return props != nil && props.Style != nil && strings.EqualFold(props.Style.Val, style)
}

// paragraphText flattens runs and hyperlinks. Tabs become spaces and
// explicit breaks become newlines.
func paragraphText(para *docx.Paragraph) string {
	var sb strings.Builder
	writeRun := func(run *docx.Run) {
		for _, c := range run.Children {
			switch x := c.(type) {
			case *docx.Text:
				sb.WriteString(x.Text)
			case *docx.Tab:
				sb.WriteByte(' ')
			case *docx.BarterRabbet:
				sb.WriteByte('\n')
			}
		}
	}
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(c)
		case *docx.Hyperlink:
			if c.Run.InstrText != "" {
				sb.WriteString(c.Run.InstrText)
			} else {
				writeRun(&c.Run)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func addTable(w *lineWriter, tbl *docx.Table) {
	for _, row := range tbl.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if t := collapse(paragraphText(para)); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
			for _, nested := range cell.Tables {
				addTable(w, nested)
			}
		}
		w.add(strings.Join(cells, " | "))
	}
}
