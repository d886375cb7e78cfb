// Package chunker bounds section text before it is handed to a generation service.
package chunker

import "strings"

// DefaultMaxWords is the word ceiling applied to a section when none is configured.
const DefaultMaxWords = 800

// CountWords returns the number of whitespace-delimited words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Truncate caps text at maxWords words. Text within the limit is returned as-is;
// longer text is cut to its first maxWords words rejoined with single spaces.
// The cut is not sentence-aware. A non-positive maxWords disables the cap.
func Truncate(text string, maxWords int) string {
	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}

// Bounded is the result of bounding a single section.
type Bounded struct {
	Text      string
	Words     int  // Word count after bounding
	Truncated bool // Whether words were dropped
}

// Bound applies Truncate and reports what happened, for logging and metrics.
func Bound(text string, maxWords int) Bounded {
	before := CountWords(text)
	out := Truncate(text, maxWords)
	if maxWords > 0 && before > maxWords {
		return Bounded{Text: out, Words: maxWords, Truncated: true}
	}
	return Bounded{Text: out, Words: before}
}
