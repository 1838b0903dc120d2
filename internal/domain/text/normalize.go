// Package text canonicalizes post and keyword text before matching.
package text

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// whitespace covers ASCII controls plus Unicode separators and BOM.
	whitespace = regexp.MustCompile(`[\t\n\v\f\r\p{Z}\x{FEFF}]+`)
	// nonWord keeps [0-9A-Za-z_], whitespace and '#'.
	nonWord = regexp.MustCompile(`[^\w\s#]`)
)

// Normalize lowercases, trims, collapses whitespace runs to one space,
// then strips every character that is not a word character, whitespace or '#'.
// The steps run in that order, so stripping can leave edge or doubled spaces.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// cases.Caser is stateful, a fresh one per call keeps Normalize safe for concurrent use.
	lower := cases.Lower(language.Und).String(s)
	trimmed := strings.TrimSpace(lower)
	collapsed := whitespace.ReplaceAllString(trimmed, " ")
	return nonWord.ReplaceAllString(collapsed, "")
}

// Distance returns the Levenshtein edit distance between a and b with unit costs.
// Inputs are expected to be normalized (ASCII), where byte and character distance agree.
func Distance(a, b string) int {
	return smetrics.WagnerFischer(a, b, 1, 1, 1)
}
