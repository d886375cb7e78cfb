package chunker

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates how many model tokens text will cost. It takes
// the larger of a word-based and a character-based guess so that dense text
// (URLs, formulas, code) is not undercounted. Only logs and spans use it.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	byWords := CountWords(text) * 4 / 3
	byChars := utf8.RuneCountInString(text) / 4
	return max(byWords, byChars, 1)
}
