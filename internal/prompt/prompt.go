// Package prompt holds the instruction templates sent to generation services.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSectionQuery is used when the caller supplies no query for a summary.
const DefaultSectionQuery = "Summarize this section."

const sectionSummaryTemplate = `You are an intelligent summarization assistant for academic research papers.

You are given the **section titled**: "%s"

Your job is to:
- Summarize this **entire section** clearly and concisely.
- Organize it into structured Markdown:
  - Begin with the **Section Title**.
  - Use relevant **subheadings** (e.g., Background, Methods, Findings, Insights).
  - List key points as **bullet points**.
- Maintain a crisp academic style (~150-250 words total).
- Do NOT copy verbatim from the text.
- Incorporate the user query context if applicable.
- Return only the clean, Markdown-formatted structured summary.

### User Query:
%s

### Section Text:
`

// SectionSummary builds the per-section summarization prompt. The title appears
// once near the top, the query follows, and the body comes last and unmodified.
func SectionSummary(title, query, body string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultSectionQuery
	}
	return fmt.Sprintf(sectionSummaryTemplate, title, query) + body
}

const humanizeTemplate = `
Rewrite the following text so it reads like it was written by a human. Keep the original meaning and all technical information intact, but make the tone smoother, more natural, and more engaging. Avoid robotic phrasing. The rewritten version should sound professional, authentic, and easy to read, as if written by a skilled human writer.

Original Text:
%s

Humanized Version:
`

// Humanize builds the rewrite-as-human prompt.
func Humanize(text string) string {
	return fmt.Sprintf(humanizeTemplate, text)
}

// CodexMode selects what the code assistant does with the submitted snippet.
type CodexMode string

const (
	ModeDebug    CodexMode = "debug"
	ModeComplete CodexMode = "complete"
	ModeExplain  CodexMode = "explain"
)

// ErrUnknownMode is returned for a codex mode outside debug, complete and explain.
var ErrUnknownMode = errors.New("unknown codex mode")

var codexTemplates = map[CodexMode]string{
	ModeDebug:    "Debug this code and explain the issue:\n%s",
	ModeComplete: "Complete the following code:\n%s",
	ModeExplain:  "Explain what this code does in simple terms:\n%s",
}

// Codex builds the code-assistant prompt for mode.
func Codex(mode CodexMode, code string) (string, error) {
	tmpl, ok := codexTemplates[mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return fmt.Sprintf(tmpl, code), nil
}

const literatureReviewTemplate = `
You are a literature review expert. Given the research query below, generate a concise, well-structured, and academic-style literature review by synthesizing insights from the top 3-5 most relevant papers.

### Instructions:
- Begin with a **short summary paragraph** that directly answers the query.
- Structure the literature review using the following **general thematic sections**:

  1. **Overview**
  2. **Methodologies and Approaches**
  3. **Key Findings and Contributions**
  4. **Datasets and Evaluation**
  5. **Comparative Analysis**
  6. **Challenges and Limitations**
  7. **Future Directions**

- For each section:
  - Summarize relevant insights across multiple papers.
  - Include citations in APA format (e.g., Ma et al., 2024).
  - Use bullet points where appropriate.
  - Keep the tone academic but readable.

- List each referenced paper under the appropriate section (if relevant) using:
  - Title or short topic
  - Year
  - One-sentence key contribution

### Formatting Guidelines:
- Use **Markdown syntax** (## for section titles, ** for emphasis, - for bullets).
- Keep paragraphs concise and organized.
- Do not copy from real papers; simulate a realistic, human-like synthesis.

### Research Query:
"%s"

Respond only with clean, formatted Markdown. Do not include extra commentary.
`

// LiteratureReview builds the literature-review prompt for a research query.
func LiteratureReview(query string) string {
	return strings.TrimSpace(fmt.Sprintf(literatureReviewTemplate, query))
}
