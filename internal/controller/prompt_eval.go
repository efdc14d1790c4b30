package controller

import (
	"context"
	"errors"
	"fmt"

	"streamd/internal/engine"
)

// evalPrompt commits tokens in chunks of at most the engine batch size.
// Only the final token of the final chunk requests logits. The whole prompt
// is checked against the context window before anything is submitted.
func (s *Session) evalPrompt(ctx context.Context, tokens []engine.Token) error {
	ctxSize, batch := s.eng.ContextSize(), s.eng.BatchSize()
	if batch <= 0 {
		batch = len(tokens)
	}
	pos := s.Position()
	if pos+len(tokens) > ctxSize {
		return newError(ContextOverflow, "prompt",
			fmt.Errorf("position %d + %d prompt tokens exceeds context %d", pos, len(tokens), ctxSize))
	}
	for start := 0; start < len(tokens); start += batch {
		if s.stopRequested(ctx) {
			return newError(Cancelled, "prompt", context.Cause(ctx))
		}
		end := min(start+batch, len(tokens))
		if err := s.eng.Evaluate(tokens[start:end], pos, end == len(tokens)); err != nil {
			return decodeError("prompt", err)
		}
		pos += end - start
		s.pos.Store(int64(pos))
	}
	return nil
}

func decodeError(op string, err error) *Error {
	if errors.Is(err, engine.ErrBatchInit) {
		return newError(BatchInitFailed, op, err)
	}
	return newError(EngineDecodeFailed, op, err)
}
