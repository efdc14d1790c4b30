package stopcond

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// SentenceDetector decides whether text currently ends a sentence.
type SentenceDetector interface {
	EndsSentence(text string) bool
}

const (
	terminalPunct = ".!?…。！？"
	closers       = "\"'”’)]}」』》"
)

// Punctuation ends a sentence on terminal punctuation, optionally followed
// by closing quotes or brackets.
type Punctuation struct{}

func (Punctuation) EndsSentence(text string) bool {
	r := lastSignificantRune(text)
	return r != utf8.RuneError && strings.ContainsRune(terminalPunct, r)
}

func lastSignificantRune(text string) rune {
	t := strings.TrimRightFunc(text, unicode.IsSpace)
	t = strings.TrimRight(t, closers)
	if t == "" {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeLastRuneInString(t)
	return r
}

// Korean extends Punctuation with common sentence-final endings
// (합니다, 해요, 그렇죠, 할까).
type Korean struct{}

var koreanEndings = []rune{'다', '요', '죠', '까'}

func (Korean) EndsSentence(text string) bool {
	if (Punctuation{}).EndsSentence(text) {
		return true
	}
	r := lastSignificantRune(text)
	for _, e := range koreanEndings {
		if r == e {
			return true
		}
	}
	return false
}

// ForLocale picks a detector for a BCP 47 tag. Unknown or invalid tags get
// Punctuation.
func ForLocale(tag string) SentenceDetector {
	t, err := language.Parse(tag)
	if err != nil {
		return Punctuation{}
	}
	base, _ := t.Base()
	switch base.String() {
	case "ko":
		return Korean{}
	default:
		return Punctuation{}
	}
}
