package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Heading markers are
// stripped so "## 2 Methods" arrives as the line "2 Methods".
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	root := goldmark.New().Parser().Parse(text.NewReader(src))

	doc := &document.Document{Title: titleFromFilename(filename)}
	var (
		w        lineWriter
		titleSet bool
	)
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			heading := collapse(mdText(node, src))
			if node.Level == 1 && !titleSet && heading != "" {
				doc.Title, titleSet = heading, true
			}
			w.add(heading)
		case *ast.Paragraph, *ast.TextBlock:
			for _, line := range strings.Split(mdText(node, src), "\n") {
				w.add(collapse(line))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := range lines.Len() {
				seg := lines.At(i)
				w.add(string(seg.Value(src)))
			}
		case *ast.HTMLBlock:
		default:
			return ast.WalkContinue, nil
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	doc.Pages = w.pages()
	return doc, nil
}

// mdText flattens the inline content under n. Soft breaks become spaces
// and hard breaks newlines.
func mdText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			switch {
			case t.HardLineBreak():
				sb.WriteByte('\n')
			case t.SoftLineBreak():
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
