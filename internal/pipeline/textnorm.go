package pipeline

import "regexp"

var (
	pageMarkerRe = regexp.MustCompile(`Page \d+ of \d+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	lowerDigitRe = regexp.MustCompile(`[a-z](\d)`)
	upperDigitRe = regexp.MustCompile(`[A-Z](\d)`)
)

// NormalizeText cleans extracted statement text before it is sent for
// extraction. Steps run in a fixed order:
//
//  1. "Page N of M" markers are removed.
//  2. Whitespace runs collapse to a single space.
//  3. A letter directly before a digit is treated as an OCR misread: a
//     lowercase letter becomes "1" and an uppercase letter becomes "0".
//
// Each replacement is a single left-to-right pass. Text with no markers,
// no repeated whitespace and no letter-digit adjacency comes back unchanged.
func NormalizeText(text string) string {
	text = pageMarkerRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = lowerDigitRe.ReplaceAllString(text, "1$1")
	text = upperDigitRe.ReplaceAllString(text, "0$1")
	return text
}
