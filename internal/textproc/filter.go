package textproc

// maxFixpointPasses bounds rule re-application; every pass that changes the
// text shortens it, so this is never reached in practice.
const maxFixpointPasses = 16

// Filter removes control markup from generated text.
type Filter struct {
	rules   []Rule
	markers []Marker
	window  int
}

// Options configure a Filter.
type Options struct {
	// NormalizePunctuation adds PunctuationRules to the table.
	NormalizePunctuation bool
	// Extra rules run after the built-in table.
	Extra []Rule
}

// NewFilter builds a filter from the default table plus opts.
func NewFilter(opts Options) *Filter {
	f := &Filter{rules: DefaultRules(), markers: DefaultMarkers()}
	if opts.NormalizePunctuation {
		f.rules = append(f.rules, PunctuationRules()...)
	}
	f.rules = append(f.rules, opts.Extra...)
	for _, m := range f.markers {
		f.window = max(f.window, m.maxLen())
	}
	return f
}

var defaultFilter = NewFilter(Options{})

// FilterFragment applies fragment-scope rules with the default table.
func FilterFragment(text string) string { return defaultFilter.FilterFragment(text) }

// FilterAccumulated applies accumulated-scope rules with the default table.
func FilterAccumulated(text string) string { return defaultFilter.FilterAccumulated(text) }

// FilterFragment strips complete markers and split artifacts from one fragment.
func (f *Filter) FilterFragment(text string) string { return f.apply(text, ScopeFragment) }

// FilterAccumulated strips complete, missing-open and unterminated trailing
// markers. The result is a fixpoint, so applying it twice changes nothing.
func (f *Filter) FilterAccumulated(text string) string { return f.apply(text, ScopeAccumulated) }

func (f *Filter) apply(text string, scope Scope) string {
	for range maxFixpointPasses {
		prev := text
		for _, r := range f.rules {
			if r.Scope&scope == 0 || text == "" {
				continue
			}
			if r.Func != nil {
				text = r.Pattern.ReplaceAllStringFunc(text, r.Func)
			} else {
				text = r.Pattern.ReplaceAllLiteralString(text, r.Replace)
			}
		}
		if text == prev {
			break
		}
	}
	return text
}

// Window is the longest marker length; Stream never holds more than this.
func (f *Filter) Window() int { return f.window }

// Stream filters a fragment sequence, holding back any tail that could still
// grow into a marker. Only the held tail is rescanned on each push.
type Stream struct {
	f       *Filter
	pending string
}

// NewStream starts a filtered stream.
func (f *Filter) NewStream() *Stream { return &Stream{f: f} }

func isOpeningArtifact(s string) bool { return s == "<" || s == "<|" }

// Push accepts one fragment and returns the text that is now safe to show.
func (s *Stream) Push(frag string) string {
	if frag == "" {
		return ""
	}
	// With a marker prefix held, the fragment may be its continuation, so
	// fragment rules (which drop bare "|>") must not see it in isolation.
	if s.pending == "" && !isOpeningArtifact(frag) {
		frag = s.f.FilterFragment(frag)
	}
	s.pending += frag
	h := s.holdIndex()
	out := s.f.FilterAccumulated(s.pending[:h])
	s.pending = s.pending[h:]
	return out
}

// Flush releases what is still held, minus any unterminated marker.
func (s *Stream) Flush() string {
	out := s.f.FilterAccumulated(s.pending)
	s.pending = ""
	return out
}

// Pending returns the held tail.
func (s *Stream) Pending() string { return s.pending }

// holdIndex returns the earliest offset whose suffix could still complete a
// marker, or len(pending).
func (s *Stream) holdIndex() int {
	start := max(0, len(s.pending)-s.f.window)
	for i := start; i < len(s.pending); i++ {
		if s.pending[i] != '<' {
			continue
		}
		tail := s.pending[i:]
		for _, m := range s.f.markers {
			if m.couldComplete(tail) {
				return i
			}
		}
	}
	return len(s.pending)
}
