package stopcond

import "strings"

// Matcher finds stop strings in streamed text. Text that could be the start
// of a stop string is held back until it either completes the stop string or
// diverges from it, so a stop string is never partially delivered.
type Matcher struct {
	stops []string
	held  string
}

// NewMatcher ignores empty stop strings.
func NewMatcher(stops []string) *Matcher {
	m := &Matcher{}
	for _, s := range stops {
		if s != "" {
			m.stops = append(m.stops, s)
		}
	}
	return m
}

// Scan appends text and returns what may be delivered now. When a stop
// string is found, matched is true and emit ends right before it; the stop
// string and everything after it are discarded.
func (m *Matcher) Scan(text string) (emit string, matched bool) {
	buf := m.held + text
	if len(m.stops) == 0 {
		m.held = ""
		return buf, false
	}
	if idx := m.find(buf); idx >= 0 {
		m.held = ""
		return buf[:idx], true
	}
	h := m.partialSuffix(buf)
	m.held = buf[len(buf)-h:]
	return buf[:len(buf)-h], false
}

// Hold withholds text without matching it. A later Scan examines it
// together with the new text.
func (m *Matcher) Hold(text string) { m.held += text }

// Release returns and clears the held text.
func (m *Matcher) Release() string {
	out := m.held
	m.held = ""
	return out
}

// Held returns text withheld as a possible stop-string prefix.
func (m *Matcher) Held() string { return m.held }

func (m *Matcher) find(s string) int {
	best := -1
	for _, stop := range m.stops {
		if i := strings.Index(s, stop); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of any stop string.
func (m *Matcher) partialSuffix(s string) int {
	longest := 0
	for _, stop := range m.stops {
		for n := min(len(stop)-1, len(s)); n > longest; n-- {
			if strings.HasSuffix(s, stop[:n]) {
				longest = n
				break
			}
		}
	}
	return longest
}
