package document

import "strings"

// AbstractTitle names the implicit section that collects text before the first heading.
const AbstractTitle = "Abstract"

// Document is the text extracted from a single upload.
type Document struct {
	Title string   // From metadata or filename
	Pages []string // Page-level text in reading order
}

// Text joins the pages into one newline-separated string.
func (d *Document) Text() string {
	return Join(d.Pages)
}

// HasText reports whether any page carries non-whitespace text.
func (d *Document) HasText() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// WordCount counts whitespace-delimited words across all pages.
func (d *Document) WordCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(strings.Fields(p))
	}
	return n
}

// Join concatenates page texts with a newline between each page.
func Join(pages []string) string {
	return strings.Join(pages, "\n")
}

// Section is a titled, contiguous span of document text.
type Section struct {
	Title string
	Body  string
}

// Empty reports whether the body has no text after trimming.
func (s Section) Empty() bool {
	return strings.TrimSpace(s.Body) == ""
}
