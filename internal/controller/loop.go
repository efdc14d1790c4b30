package controller

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"streamd/internal/engine"
	"streamd/internal/sampling"
	"streamd/internal/stopcond"
	"streamd/internal/textproc"
)

// tailWindow bounds the delivered text the stop evaluator looks at.
const tailWindow = 512

var errEmptyPrompt = errors.New("prompt produced no tokens")

// generation is the state of one request while the lease is held.
type generation struct {
	s     *Session
	req   Request
	sink  *guardedSink
	chain *sampling.Chain
	eval  *stopcond.Evaluator
	match *stopcond.Matcher
	utf8  textproc.Reassembler
	text  *textproc.Stream

	out       strings.Builder
	tail      string
	generated int
	started   time.Time
	res       Result
}

func (s *Session) newGeneration(req Request, sink *guardedSink) *generation {
	params := req.Params.Resolve(s.cfg.Defaults)
	stop := mergeStop(s.cfg.Stop, req.StopPolicy)
	stop.MaxTokens = params.MaxTokens
	return &generation{
		s:       s,
		req:     req,
		sink:    sink,
		chain:   sampling.New(params),
		eval:    stopcond.New(stop),
		match:   stopcond.NewMatcher(req.Stop),
		text:    s.filter.NewStream(),
		started: time.Now(),
	}
}

func (g *generation) run(ctx context.Context) (Result, error) {
	s := g.s
	s.runs.Add(1)
	if g.req.Reset && s.Position() > 0 {
		s.eng.ClearMemory()
		s.pos.Store(0)
	}
	toks, err := s.eng.Tokenize(g.req.Prompt, s.Position() == 0)
	if err != nil {
		return g.fail(newError(TokenizationFailed, "tokenize", err))
	}
	if len(toks) == 0 {
		return g.fail(newError(TokenizationFailed, "tokenize", errEmptyPrompt))
	}
	g.res.PromptTokens = len(toks)
	s.log.Debug().Str("event", "generation_start").Int("prompt_tokens", len(toks)).
		Int("position", s.Position()).Strs("stages", g.chain.Names()).Msg("")

	t0 := time.Now()
	if err := s.evalPrompt(ctx, toks); err != nil {
		if IsCancelled(err) {
			return g.complete(FinishCancelled)
		}
		return g.fail(err)
	}
	g.res.PromptEval = time.Since(t0)
	return g.loop(ctx)
}

// loop samples, filters, decides and advances one token per iteration.
func (g *generation) loop(ctx context.Context) (Result, error) {
	s, eng := g.s, g.s.eng
	for {
		if s.stopRequested(ctx) {
			return g.complete(FinishCancelled)
		}
		pos := s.Position()
		logits, ok := eng.Logits(pos - 1)
		if !ok {
			return g.fail(newError(LogitsUnavailable, "generate", nil))
		}
		tok := g.chain.Sample(logits)
		g.chain.Accept(tok)
		if s.specials.IsTerminal(tok) {
			g.eval.Terminal()
			return g.finish(FinishTerminal)
		}
		g.generated++

		var piece string
		if !s.specials.IsControl(tok) {
			piece = g.text.Push(g.utf8.Push(eng.Detokenize(tok)))
		}

		g.eval.Fragment(piece)

		seen := g.tail + g.match.Held() + piece
		var (
			emit    string
			matched bool
		)
		switch {
		case g.eval.BelowFloor(g.generated):
			// Nothing below the floor is delivered, so a stop string
			// there is still cut once matching starts.
			g.match.Hold(piece)
		case g.eval.Enumerating(seen):
			emit = g.match.Release() + piece
		default:
			emit, matched = g.match.Scan(piece)
		}
		g.emit(emit)

		if g.eval.Step(g.generated, seen, matched) == stopcond.Stop {
			reason := finishFor(g.eval.State().Reason)
			if reason == FinishStopString {
				return g.complete(reason)
			}
			return g.finish(reason)
		}
		if pos+1 > eng.ContextSize() {
			return g.finish(FinishContextExhausted)
		}
		if err := eng.Evaluate([]engine.Token{tok}, pos, true); err != nil {
			return g.fail(decodeError("generate", err))
		}
		s.pos.Store(int64(pos + 1))
	}
}

func (g *generation) emit(text string) {
	if text == "" {
		return
	}
	g.out.WriteString(text)
	g.tail = trimTail(g.tail + text)
	g.sink.fragment(text)
}

// trimTail keeps at least tailWindow bytes of s once it doubles that. When
// the window has no newline the cut moves back to the start of the last line
// so a list marker survives. The cut never splits a rune.
func trimTail(s string) string {
	if len(s) <= 2*tailWindow {
		return s
	}
	cut := len(s) - tailWindow
	if i := strings.LastIndexByte(s[:cut], '\n'); i >= 0 && strings.IndexByte(s[cut:], '\n') < 0 {
		return s[i+1:]
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[cut:]
}

// finish releases text still held by the filter and the stop matcher, then
// completes. Partial UTF-8 bytes left in the reassembler are dropped.
func (g *generation) finish(reason FinishReason) (Result, error) {
	rest := g.text.Flush()
	g.eval.Fragment(rest)
	if g.eval.Enumerating(g.tail + g.match.Held() + rest) {
		g.emit(g.match.Release() + rest)
		return g.complete(reason)
	}
	emit, matched := g.match.Scan(rest)
	g.emit(emit)
	if matched {
		reason = FinishStopString
	}
	g.emit(g.match.Release())
	return g.complete(reason)
}

func (g *generation) complete(reason FinishReason) (Result, error) {
	g.fill(reason)
	g.s.log.Info().Str("event", "generation_done").Str("finish_reason", string(reason)).
		Int("generated", g.res.GeneratedTokens).Int("extra", g.res.ExtraTokens).
		Int("position", g.res.Position).Dur("duration", g.res.Duration).Msg("")
	g.sink.completed(g.res)
	return g.res, nil
}

func (g *generation) fail(err error) (Result, error) {
	g.fill("")
	g.s.log.Error().Str("event", "generation_failed").Err(err).
		Int("generated", g.res.GeneratedTokens).Msg("")
	g.sink.failed(err)
	return g.res, err
}

func (g *generation) fill(reason FinishReason) {
	g.res.Text = g.out.String()
	g.res.FinishReason = reason
	g.res.GeneratedTokens = g.generated
	g.res.ExtraTokens = g.eval.State().ExtraUsed
	g.res.Position = g.s.Position()
	g.res.Duration = time.Since(g.started)
}
