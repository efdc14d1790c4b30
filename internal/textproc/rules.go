package textproc

import (
	"regexp"
	"strings"
)

// Scope selects the filtering stage a rule participates in.
type Scope uint8

const (
	// ScopeFragment rules run on each fragment as it arrives.
	ScopeFragment Scope = 1 << iota
	// ScopeAccumulated rules run on the trailing window of output.
	ScopeAccumulated

	ScopeBoth = ScopeFragment | ScopeAccumulated
)

// Rule is one entry of the declarative filter table. When Func is set it
// computes the replacement for each match and Replace is ignored.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
	Func    func(match string) string
	Scope   Scope
}

// Marker describes a control marker shape for holdback. A marker is Open,
// then up to MaxBody bytes accepted by Body, then Close. Markers with an
// empty Close are plain literals.
type Marker struct {
	Open    string
	Body    func(b byte) bool
	MaxBody int
	Close   string
}

// couldComplete reports whether s is a proper prefix of some string of this
// marker's shape.
func (m Marker) couldComplete(s string) bool {
	if len(s) < len(m.Open) {
		return strings.HasPrefix(m.Open, s)
	}
	if m.Close == "" || !strings.HasPrefix(s, m.Open) {
		return false
	}
	rest := s[len(m.Open):]
	n := 0
	for n < len(rest) && n < m.MaxBody && m.Body(rest[n]) {
		n++
	}
	tail := rest[n:]
	return len(tail) < len(m.Close) && strings.HasPrefix(m.Close, tail)
}

func (m Marker) maxLen() int { return len(m.Open) + m.MaxBody + len(m.Close) }

// Literal control markers of the Llama 3 and ChatML vocabularies.
var literalMarkers = []string{
	"<|begin_of_text|>",
	"<|end_of_text|>",
	"<|start_header_id|>",
	"<|end_header_id|>",
	"<|eot_id|>",
	"<|eom_id|>",
	"<|python_tag|>",
	"<|finetune_right_pad_id|>",
	"<|im_start|>",
	"<|im_end|>",
	"<|endoftext|>",
}

func isRoleByte(b byte) bool {
	return b == '_' || b == ' ' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// DefaultMarkers are the marker shapes held back while incomplete.
func DefaultMarkers() []Marker {
	ms := []Marker{
		{Open: "<|start_header_id|>", Body: isRoleByte, MaxBody: 32, Close: "<|end_header_id|>"},
		{Open: "<|im_start|>", Body: isRoleByte, MaxBody: 16, Close: "\n"},
		{Open: "<|reserved_special_token_", Body: isDigit, MaxBody: 4, Close: "|>"},
	}
	for _, lit := range literalMarkers {
		ms = append(ms, Marker{Open: lit})
	}
	return ms
}

func markerNames() string {
	names := make([]string, 0, len(literalMarkers))
	for _, lit := range literalMarkers {
		names = append(names, regexp.QuoteMeta(strings.TrimSuffix(strings.TrimPrefix(lit, "<|"), "|>")))
	}
	return strings.Join(names, "|")
}

func quoteAll(lits []string) string {
	q := make([]string, len(lits))
	for i, l := range lits {
		q[i] = regexp.QuoteMeta(l)
	}
	return strings.Join(q, "|")
}

// DefaultRules is the structural filter table. Order matters: family rules
// run before the literals they contain.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "role_header", Scope: ScopeBoth,
			Pattern: regexp.MustCompile(`<\|start_header_id\|>[A-Za-z_ ]{0,32}<\|end_header_id\|>(?:\n\n?)?`)},
		{Name: "chatml_header", Scope: ScopeBoth,
			Pattern: regexp.MustCompile(`<\|im_start\|>[A-Za-z_ ]{0,16}\n`)},
		{Name: "reserved_token", Scope: ScopeBoth,
			Pattern: regexp.MustCompile(`<\|reserved_special_token_\d{1,4}\|>`)},
		{Name: "control_literal", Scope: ScopeBoth,
			Pattern: regexp.MustCompile(quoteAll(literalMarkers))},
		{Name: "missing_open", Scope: ScopeAccumulated,
			Pattern: regexp.MustCompile(`\|?(?:` + markerNames() + `|reserved_special_token_\d{1,4})\|>`)},
		{Name: "missing_close", Scope: ScopeAccumulated,
			Pattern: regexp.MustCompile(`<(?:\|[A-Za-z0-9_]*\|?)?$`)},
		{Name: "split_artifact", Scope: ScopeFragment,
			Pattern: regexp.MustCompile(`^(?:<\|?|\|>?|>)$`)},
	}
}

// PunctuationRules normalize chatty punctuation runs. They are opt-in.
func PunctuationRules() []Rule {
	return []Rule{
		{Name: "tilde", Scope: ScopeBoth, Pattern: regexp.MustCompile(`~+`), Replace: "."},
		{Name: "bang_run", Scope: ScopeBoth, Pattern: regexp.MustCompile(`!{2,}`), Replace: "!"},
		{Name: "question_run", Scope: ScopeBoth, Pattern: regexp.MustCompile(`\?{2,}`), Replace: "?"},
		{Name: "dot_run", Scope: ScopeBoth, Pattern: regexp.MustCompile(`\.{2,}`), Func: collapseDots},
		{Name: "emoticon", Scope: ScopeBoth, Pattern: regexp.MustCompile(`\^\^+|ㅋㅋ+|ㅎㅎ+`)},
	}
}

// collapseDots turns a run of dots into one, except a three-dot ellipsis.
func collapseDots(run string) string {
	if len(run) == 3 {
		return run
	}
	return "."
}
