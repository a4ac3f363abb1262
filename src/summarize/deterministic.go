// Package summarize reduces flattened text to a bounded summary, either through
// a model capability or through the deterministic sentence-aware fallback.
package summarize

import (
	"strings"
	"unicode/utf8"
)

// sentenceDelimiter separates candidate sentences for the greedy pass.
const sentenceDelimiter = ". "

// Deterministic trims text and keeps as many leading whole sentences as fit
// within maxChars characters. When not even the first sentence fits, it hard
// truncates at maxChars and drops the trailing partial word.
//
// Lengths are counted in runes. Deterministic never fails and performs no I/O.
func Deterministic(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if text == "" || maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	var (
		kept   []string
		length int
	)
	for _, fragment := range strings.Split(text, sentenceDelimiter) {
		piece := strings.TrimSpace(fragment)
		if !strings.HasSuffix(piece, ".") {
			piece += "."
		}
		n := utf8.RuneCountInString(piece)
		if length+n+1 > maxChars {
			break
		}
		kept = append(kept, piece)
		length += n + 1
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}
	return hardTruncate(text, maxChars)
}

// hardTruncate returns the first maxChars runes of text cut back to the last
// space. A prefix without any space is returned whole.
func hardTruncate(text string, maxChars int) string {
	prefix := text
	count := 0
	for i := range text {
		if count == maxChars {
			prefix = text[:i]
			break
		}
		count++
	}
	if idx := strings.LastIndexByte(prefix, ' '); idx > 0 {
		prefix = prefix[:idx]
	}
	return strings.TrimRightFunc(prefix, isSpace)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
