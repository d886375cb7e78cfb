// Package parser converts uploaded files into page-level text.
package parser

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
)

// ErrUnsupported is returned by ForFile for extensions with no parser.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Options tunes parser behavior.
type Options struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails
	// or finds no text.
	FallbackPdftotext bool
}

// byExtension maps a lowercased extension to its parser constructor.
var byExtension = map[string]func(Options) Parser{
	".txt":      func(Options) Parser { return &TextParser{} },
	".md":       func(Options) Parser { return &MarkdownParser{} },
	".markdown": func(Options) Parser { return &MarkdownParser{} },
	".csv":      func(Options) Parser { return &CSVParser{} },
	".html":     func(Options) Parser { return &HTMLParser{} },
	".htm":      func(Options) Parser { return &HTMLParser{} },
	".docx":     func(Options) Parser { return &DOCXParser{} },
	".pdf": func(o Options) Parser {
		return &PDFParser{FallbackPdftotext: o.FallbackPdftotext}
	},
}

// Extensions returns the accepted extensions in sorted order.
func Extensions() []string {
	return slices.Sorted(maps.Keys(byExtension))
}

func extOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ForFile returns the parser registered for the file's extension.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := extOf(filename)
	newParser, ok := byExtension[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	return newParser(opts), nil
}

// IsSupportedExtension reports whether ForFile accepts filename.
func IsSupportedExtension(filename string) bool {
	_, ok := byExtension[extOf(filename)]
	return ok
}

// ParseFile picks a parser by extension and runs it.
func ParseFile(r io.Reader, filename string, opts Options) (*document.Document, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// collapse squeezes runs of whitespace to single spaces and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lineWriter accumulates non-empty lines of a single-page document.
type lineWriter struct {
	lines []string
}

func (w *lineWriter) add(line string) {
	if line = strings.TrimSpace(line); line != "" {
		w.lines = append(w.lines, line)
	}
}

func (w *lineWriter) pages() []string {
	if len(w.lines) == 0 {
		return nil
	}
	return []string{strings.Join(w.lines, "\n")}
}
