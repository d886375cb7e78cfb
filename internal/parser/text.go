package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
)

// TextParser handles plain text files. Lines are kept as-is, blank lines
// included, so numbered headings stay on their own line.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc := &document.Document{Title: titleFromFilename(filename)}
	if len(lines) > 0 {
		doc.Pages = []string{strings.Join(lines, "\n")}
	}
	return doc, nil
}
