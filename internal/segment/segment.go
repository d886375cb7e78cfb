// Package segment splits extracted document text into numbered sections.
package segment

import (
	"regexp"
	"strings"

	"github.com/dgallion1/scholarly/internal/document"
)

// headingRe matches numbered headings such as "2 Methods" or "3.1.4 Related Work".
var headingRe = regexp.MustCompile(`^\d+(\.\d+)*\s+[A-Z][A-Za-z\s]*$`)

// IsHeading reports whether a trimmed line is a section heading.
func IsHeading(line string) bool {
	if line == "" {
		return false
	}
	return headingRe.MatchString(line)
}

// Extract scans text line by line and groups lines under the most recent heading.
// Content before the first heading is collected under document.AbstractTitle.
//
// A heading that recurs verbatim resets the lines stored under that title, so only
// the body after its last occurrence survives. The section keeps the position of
// the first occurrence. Sections with no lines at all are dropped; sections whose
// lines are all blank are kept with an empty body.
func Extract(text string) []document.Section {
	current := document.AbstractTitle
	order := []string{current}
	lines := map[string][]string{current: {}}

	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if IsHeading(line) {
			current = line
			if _, seen := lines[current]; !seen {
				order = append(order, current)
			}
			lines[current] = []string{}
			continue
		}
		lines[current] = append(lines[current], line)
	}

	sections := make([]document.Section, 0, len(order))
	for _, title := range order {
		body := lines[title]
		if len(body) == 0 {
			continue
		}
		sections = append(sections, document.Section{
			Title: title,
			Body:  strings.TrimSpace(strings.Join(body, " ")),
		})
	}
	return sections
}

// ExtractDocument runs Extract over the joined pages of d.
func ExtractDocument(d *document.Document) []document.Section {
	return Extract(d.Text())
}

// lineBreaks folds every line boundary onto "\n": CRLF, CR, form feed,
// vertical tab, the file/group/record separators, NEL, and the Unicode line
// and paragraph separators.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n", "\r", "\n", "\f", "\n", "\v", "\n",
	"\x1c", "\n", "\x1d", "\n", "\x1e", "\n",
	"\u0085", "\n", "\u2028", "\n", "\u2029", "\n",
)

// splitLines breaks text on any line boundary. A trailing newline does not
// produce an extra empty line, but empty input yields one empty line.
func splitLines(text string) []string {
	text = lineBreaks.Replace(text)
	if text == "" {
		return []string{""}
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
