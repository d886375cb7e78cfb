package parser

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/scholarly/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

const (
	pdftotextTimeout = 60 * time.Second

	// wordGap is the horizontal gap, as a fraction of the font size, read
	// as a space between glyphs.
	wordGap = 0.15
)

// PDFParser handles PDF files. Lines are rebuilt from glyph positions so
// headings keep their own lines; pdftotext is the optional fallback.
type PDFParser struct {
	FallbackPdftotext bool
}

// Parse returns one entry per PDF page, in page order. Pages that fail to
// decode come back empty so page numbering is preserved.
func (p *PDFParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	doc := &document.Document{Title: titleFromFilename(filename)}
	pages, title, err := readPDF(data)
	if title != "" {
		doc.Title = title
	}
	if p.FallbackPdftotext && (err != nil || !hasText(pages)) {
		fallback, ferr := pdftotext(data)
		switch {
		case ferr == nil:
			pages, err = fallback, nil
		case err == nil:
			err = ferr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	doc.Pages = pages
	return doc, nil
}

// readPDF extracts page text and the Info dictionary title.
func readPDF(data []byte) (pages []string, title string, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, title, err = nil, "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", err
	}
	title = strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())

	n := reader.NumPage()
	pages = make([]string, n)
	for i := range n {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		pages[i] = pageText(page)
	}
	return pages, title, nil
}

// pageText rebuilds lines from positioned glyphs. Row grouping and then the
// plain text stream are used when the page yields no glyphs.
func pageText(page pdflib.Page) string {
	if lines := glyphLines(pageGlyphs(page)); len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	if rows, err := page.GetTextByRow(); err == nil {
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			var sb strings.Builder
			for _, t := range row.Content {
				sb.WriteString(t.S)
			}
			if line := collapse(sb.String()); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// pageGlyphs returns nil for pages whose content stream the reader rejects.
func pageGlyphs(page pdflib.Page) (glyphs []pdflib.Text) {
	defer func() {
		if recover() != nil {
			glyphs = nil
		}
	}()
	return page.Content().Text
}

// glyphRow is the glyphs sharing one baseline.
type glyphRow struct {
	y      float64
	glyphs []pdflib.Text
}

// glyphLines groups glyphs whose baselines lie within half a font size of
// each other, orders rows top to bottom and renders each as one line.
func glyphLines(glyphs []pdflib.Text) []string {
	var rows []*glyphRow
	for _, g := range glyphs {
		var row *glyphRow
		for _, r := range rows {
			if math.Abs(r.y-g.Y) <= baselineTolerance(g) {
				row = r
				break
			}
		}
		if row == nil {
			row = &glyphRow{y: g.Y}
			rows = append(rows, row)
		}
		row.glyphs = append(row.glyphs, g)
	}
	// PDF y grows upward.
	slices.SortStableFunc(rows, func(a, b *glyphRow) int { return cmp.Compare(b.y, a.y) })

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if line := r.text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func baselineTolerance(g pdflib.Text) float64 {
	return max(math.Abs(g.FontSize)/2, 2)
}

// text renders the row left to right. Without glyph widths the content
// stream order is kept and no gaps can be measured.
func (r *glyphRow) text() string {
	measured := !slices.ContainsFunc(r.glyphs, func(g pdflib.Text) bool {
		return g.W <= 0 && strings.TrimSpace(g.S) != ""
	})
	if measured {
		slices.SortStableFunc(r.glyphs, func(a, b pdflib.Text) int { return cmp.Compare(a.X, b.X) })
	}

	var sb strings.Builder
	for i, g := range r.glyphs {
		if measured && i > 0 {
			prev := r.glyphs[i-1]
			if g.X-(prev.X+prev.W) > wordGap*math.Abs(prev.FontSize) {
				sb.WriteByte(' ')
			}
		}
		for _, ch := range g.S {
			switch {
			case unicode.IsSpace(ch):
				sb.WriteByte(' ')
			case unicode.IsControl(ch), ch == utf8.RuneError:
			default:
				sb.WriteRune(ch)
			}
		}
	}
	return collapse(sb.String())
}

// pdftotext runs poppler's pdftotext on a request-scoped temp copy of data.
func pdftotext(data []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "scholarly-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, fmt.Errorf("write temp file: %w", werr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pdftotextTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	// Every page ends with a form feed.
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}

func hasText(pages []string) bool {
	return (&document.Document{Pages: pages}).HasText()
}
