package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. Block elements become lines of a single
// page, table rows become "cell | cell" lines, and page chrome is skipped.
type HTMLParser struct{}

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Nav: true, atom.Header: true, atom.Footer: true, atom.Aside: true,
}

var lineElements = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Li: true, atom.Dt: true, atom.Dd: true,
	atom.Blockquote: true, atom.Pre: true, atom.Figcaption: true, atom.Caption: true,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &document.Document{Title: titleFromFilename(filename)}
	if t := first(root, atom.Title); t != nil {
		if title := inlineText(t); title != "" {
			doc.Title = title
		}
	}

	start := root
	if body := first(root, atom.Body); body != nil {
		start = body
	}
	var w lineWriter
	walkBlocks(&w, start)
	doc.Pages = w.pages()
	return doc, nil
}

func walkBlocks(w *lineWriter, n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case skippedElements[n.DataAtom]:
			return
		case n.DataAtom == atom.Tr:
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
					cells = append(cells, inlineText(c))
				}
			}
			w.add(strings.Join(cells, " | "))
			return
		case lineElements[n.DataAtom]:
			for _, line := range strings.Split(blockText(n), "\n") {
				w.add(line)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkBlocks(w, c)
	}
}

// blockText gathers the text beneath n. <br> starts a new line; other
// whitespace collapses to single spaces.
func blockText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(strings.Map(func(r rune) rune {
				if r == '\n' || r == '\r' {
					return ' '
				}
				return r
			}, n.Data))
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte('\n')
		case n.Type == html.ElementNode && skippedElements[n.DataAtom]:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	lines := strings.Split(sb.String(), "\n")
	for i, l := range lines {
		lines[i] = collapse(l)
	}
	return strings.Join(lines, "\n")
}

func inlineText(n *html.Node) string {
	return collapse(blockText(n))
}

// first returns the first element under n with tag a, depth first.
func first(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, a); found != nil {
			return found
		}
	}
	return nil
}
