package embedding

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize cleans text before embedding: whitespace runs collapse to one
// space, the literal sequence ". ," is removed, ".." and ". ." collapse to
// ".", newlines are dropped, and the result is trimmed.
//
// The rules are applied until the text stops changing, so
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	for {
		next := normalizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	s = strings.ReplaceAll(s, ". ,", "")
	s = strings.ReplaceAll(s, "..", ".")
	s = strings.ReplaceAll(s, ". .", ".")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
