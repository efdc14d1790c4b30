// Package stopcond decides when generation should stop.
//
// Signals, in priority order: the terminal token (handled by the caller
// before any text exists), a minimum token floor, an open list item, stop
// strings, a sentence limit, output guards, and the token budget with a
// capped grace extension for output that does not look finished.
package stopcond

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Decision is the outcome of one evaluation step.
type Decision int

const (
	Continue Decision = iota
	Stop
	// Grace continues past the token budget, consuming one extra token.
	Grace
)

func (d Decision) String() string {
	switch d {
	case Stop:
		return "stop"
	case Grace:
		return "grace"
	default:
		return "continue"
	}
}

// Reason explains a Stop decision.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonStopString    Reason = "stop_string"
	ReasonMaxTokens     Reason = "max_tokens"
	ReasonSentenceLimit Reason = "sentence_limit"
	ReasonMaxChars      Reason = "max_chars"
	ReasonPunctStreak   Reason = "punct_streak"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultMinTokens              = 3
	DefaultMaxExtraTokens         = 32
	DefaultEnumerationExtraTokens = 32
)

// Config tunes the evaluator.
type Config struct {
	// MinTokens is the floor below which only the terminal token stops.
	MinTokens int
	// MaxTokens is the nominal budget; zero means unbounded.
	MaxTokens int
	// MaxExtraTokens caps the grace extension past MaxTokens.
	MaxExtraTokens int
	// EnumerationExtraTokens is added to the grace cap while a list item is open.
	EnumerationExtraTokens int
	// MaxSentences stops after that many complete sentences; zero disables.
	MaxSentences int
	// MaxChars stops once the generated text reaches that many runes; zero
	// disables.
	MaxChars int
	// MaxPunctStreak stops after that many consecutive fragments made only of
	// whitespace and .!? once sentence punctuation has appeared; zero
	// disables.
	MaxPunctStreak int
	Detector       SentenceDetector
}

// WithDefaults fills unset fields. Negative MinTokens, MaxExtraTokens or
// EnumerationExtraTokens mean zero.
func (c Config) WithDefaults() Config {
	if c.MinTokens == 0 {
		c.MinTokens = DefaultMinTokens
	}
	if c.MinTokens < 0 {
		c.MinTokens = 0
	}
	if c.MaxExtraTokens == 0 {
		c.MaxExtraTokens = DefaultMaxExtraTokens
	}
	if c.MaxExtraTokens < 0 {
		c.MaxExtraTokens = 0
	}
	if c.EnumerationExtraTokens == 0 {
		c.EnumerationExtraTokens = DefaultEnumerationExtraTokens
	}
	if c.EnumerationExtraTokens < 0 {
		c.EnumerationExtraTokens = 0
	}
	if c.Detector == nil {
		c.Detector = Punctuation{}
	}
	return c
}

// State is the evaluator's view of the request. Boolean flags never regress.
type State struct {
	TerminalSeen     bool
	StopMatched      bool
	SentenceComplete bool
	EnumerationOpen  bool
	Generated        int
	ExtraUsed        int
	Sentences        int
	Chars            int
	PunctStreak      int
	Reason           Reason
}

// Evaluator tracks StopState across steps of one request.
type Evaluator struct {
	cfg      Config
	st       State
	prevEnds bool
	endSeen  bool
}

// New returns an evaluator; cfg is completed with WithDefaults.
func New(cfg Config) *Evaluator { return &Evaluator{cfg: cfg.WithDefaults()} }

// Config returns the effective configuration.
func (e *Evaluator) Config() Config { return e.cfg }

// State returns a copy of the current state.
func (e *Evaluator) State() State { return e.st }

// Terminal records that the terminal token was sampled.
func (e *Evaluator) Terminal() { e.st.TerminalSeen = true }

// BelowFloor reports whether generated is under the minimum token floor.
func (e *Evaluator) BelowFloor(generated int) bool { return generated < e.cfg.MinTokens }

// Enumerating reports whether text ends in an open list item.
func (e *Evaluator) Enumerating(text string) bool { return Enumerating(text, e.cfg.Detector) }

// StopStringsActive reports whether stop strings should be matched for text
// after generated tokens. They are ignored below the floor and while a list
// item is open.
func (e *Evaluator) StopStringsActive(generated int, text string) bool {
	return !e.BelowFloor(generated) && !e.Enumerating(text)
}

// Fragment records one piece of generated text for the output guards. It is
// called once per token, before Step.
func (e *Evaluator) Fragment(piece string) {
	if piece == "" {
		return
	}
	e.st.Chars += utf8.RuneCountInString(piece)
	if punctOnly(piece) {
		e.st.PunctStreak++
	} else {
		e.st.PunctStreak = 0
	}
	if strings.ContainsAny(piece, ".!?") {
		e.endSeen = true
	}
}

func punctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !strings.ContainsRune(".!?", r) {
			return false
		}
	}
	return true
}

// Step evaluates the state after generated tokens have produced text.
// stopMatched reports a stop string hit found by the caller's Matcher.
func (e *Evaluator) Step(generated int, text string, stopMatched bool) Decision {
	e.st.Generated = generated
	enum := Enumerating(text, e.cfg.Detector)
	ends := e.cfg.Detector.EndsSentence(text) && !enum
	e.st.EnumerationOpen = enum
	if ends {
		e.st.SentenceComplete = true
		if !e.prevEnds {
			e.st.Sentences++
		}
	}
	e.prevEnds = ends

	if generated < e.cfg.MinTokens {
		return Continue
	}
	if stopMatched && !enum {
		e.st.StopMatched = true
		return e.stop(ReasonStopString)
	}
	if e.cfg.MaxSentences > 0 && ends && e.st.Sentences >= e.cfg.MaxSentences {
		return e.stop(ReasonSentenceLimit)
	}
	if e.cfg.MaxPunctStreak > 0 && e.endSeen && e.st.PunctStreak >= e.cfg.MaxPunctStreak {
		return e.stop(ReasonPunctStreak)
	}
	if e.cfg.MaxChars > 0 && e.st.Chars >= e.cfg.MaxChars {
		return e.stop(ReasonMaxChars)
	}
	if e.cfg.MaxTokens > 0 && generated >= e.cfg.MaxTokens {
		if ends {
			return e.stop(ReasonMaxTokens)
		}
		budget := e.cfg.MaxExtraTokens
		if enum {
			budget += e.cfg.EnumerationExtraTokens
		}
		if e.st.ExtraUsed >= budget {
			return e.stop(ReasonMaxTokens)
		}
		e.st.ExtraUsed++
		return Grace
	}
	return Continue
}

func (e *Evaluator) stop(r Reason) Decision {
	e.st.Reason = r
	return Stop
}
