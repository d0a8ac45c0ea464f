package indexer

import (
	"strings"
	"unicode"
)

// keptPunctuation is the CJK punctuation that survives cleaning.
const keptPunctuation = "。，！？、"

// Clean normalizes transcript text for chunking: characters other than word
// characters, whitespace, CJK ideographs and keptPunctuation are dropped, then
// whitespace runs collapse to one space and the ends are trimmed.
// Dropping before collapsing keeps Clean idempotent.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if !keepRune(r) {
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

func keepRune(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
		return true
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case strings.ContainsRune(keptPunctuation, r):
		return true
	}
	return false
}
