package controller

import (
	"time"

	"streamd/internal/sampling"
	"streamd/internal/stopcond"
)

// Request is one generation. It is not modified once generation starts.
type Request struct {
	Prompt string
	Params sampling.Params
	// Stop strings end generation when found; order carries no meaning.
	Stop []string
	// StopPolicy overrides the session's stop settings field by field;
	// zero fields keep the session value. MaxTokens always comes from Params.
	StopPolicy stopcond.Config
	// Reset clears engine memory under the same lease before the prompt is
	// tokenized, so the prompt starts a fresh conversation.
	Reset bool
}

// FinishReason says why a generation ended.
type FinishReason string

const (
	FinishTerminal         FinishReason = "terminal"
	FinishStopString       FinishReason = "stop_string"
	FinishMaxTokens        FinishReason = "max_tokens"
	FinishSentenceLimit    FinishReason = "sentence_limit"
	FinishMaxChars         FinishReason = "max_chars"
	FinishPunctStreak      FinishReason = "punct_streak"
	FinishContextExhausted FinishReason = "context_exhausted"
	FinishCancelled        FinishReason = "cancelled"
)

// Result summarizes a finished generation.
type Result struct {
	Text            string
	FinishReason    FinishReason
	PromptTokens    int
	GeneratedTokens int
	// ExtraTokens were generated past MaxTokens under the grace budget.
	ExtraTokens int
	// Position is the session's committed token count afterwards.
	Position   int
	QueueWait  time.Duration
	PromptEval time.Duration
	Duration   time.Duration
}

func finishFor(r stopcond.Reason) FinishReason {
	switch r {
	case stopcond.ReasonStopString:
		return FinishStopString
	case stopcond.ReasonSentenceLimit:
		return FinishSentenceLimit
	case stopcond.ReasonMaxChars:
		return FinishMaxChars
	case stopcond.ReasonPunctStreak:
		return FinishPunctStreak
	default:
		return FinishMaxTokens
	}
}

func mergeStop(base, over stopcond.Config) stopcond.Config {
	if over.MinTokens != 0 {
		base.MinTokens = over.MinTokens
	}
	if over.MaxExtraTokens != 0 {
		base.MaxExtraTokens = over.MaxExtraTokens
	}
	if over.EnumerationExtraTokens != 0 {
		base.EnumerationExtraTokens = over.EnumerationExtraTokens
	}
	if over.MaxSentences != 0 {
		base.MaxSentences = over.MaxSentences
	}
	if over.MaxChars != 0 {
		base.MaxChars = over.MaxChars
	}
	if over.MaxPunctStreak != 0 {
		base.MaxPunctStreak = over.MaxPunctStreak
	}
	if over.Detector != nil {
		base.Detector = over.Detector
	}
	return base
}
