package manager

import (
	"context"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"streamd/internal/controller"
	"streamd/pkg/types"
)

// ndjsonSink writes controller output as NDJSON lines. The controller calls
// it from a single goroutine, so it needs no locking. A failed write cancels
// the generation.
type ndjsonSink struct {
	w       io.Writer
	flush   func()
	cancel  context.CancelFunc
	id      string
	model   string
	text    strings.Builder
	started bool
	err     error
}

func newNDJSONSink(w io.Writer, flush func(), cancel context.CancelFunc) *ndjsonSink {
	return &ndjsonSink{w: w, flush: flush, cancel: cancel}
}

func (s *ndjsonSink) OnFragment(text string) {
	s.text.WriteString(text)
	s.write(types.TokenLine{Token: text})
}

func (s *ndjsonSink) OnCompleted(res controller.Result) {
	s.write(types.DoneLine{
		Done:         true,
		ID:           s.id,
		Model:        s.model,
		Content:      res.Text,
		FinishReason: string(res.FinishReason),
		Usage:        usageOf(res),
		Position:     res.Position,
	})
}

// OnError before any fragment is left to the caller, which can still send
// a status code.
func (s *ndjsonSink) OnError(err error) {
	if !s.started {
		return
	}
	s.write(types.DoneLine{
		Done:      true,
		ID:        s.id,
		Model:     s.model,
		Content:   s.text.String(),
		Error:     err.Error(),
		ErrorKind: controller.KindOf(err).String(),
	})
}

func (s *ndjsonSink) write(v any) {
	if s.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.fail(err)
		return
	}
	s.started = true
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		s.fail(err)
		return
	}
	if s.flush != nil {
		s.flush()
	}
}

func (s *ndjsonSink) fail(err error) {
	s.err = err
	if s.cancel != nil {
		s.cancel()
	}
}

func usageOf(res controller.Result) types.Usage {
	return types.Usage{
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.GeneratedTokens,
		ExtraTokens:      res.ExtraTokens,
		TotalTokens:      res.PromptTokens + res.GeneratedTokens,
	}
}
