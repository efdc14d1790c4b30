package stopcond

import (
	"regexp"
	"strings"
)

var itemMarker = regexp.MustCompile(`^\s*(?:\d{1,3}[.)]|[-*•·])\s*`)

// Enumerating reports whether the last line of text is an open list item:
// it starts with a numbered or bulleted marker and its body has not reached
// a sentence end yet.
func Enumerating(text string, d SentenceDetector) bool {
	line := text
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		line = text[i+1:]
	}
	loc := itemMarker.FindStringIndex(line)
	if loc == nil {
		return false
	}
	return !d.EndsSentence(line[loc[1]:])
}
