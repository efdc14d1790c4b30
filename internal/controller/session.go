// Package controller drives a single engine session: it evaluates prompts in
// bounded chunks, runs the per-token generation loop, and streams filtered
// text to a Sink.
//
// Files:
//   - session.go: Session, configuration, Status, ClearMemory, Tokenize
//   - lease.go: exclusive access with queue admission and the stop flag
//   - prompt_eval.go: chunked prompt evaluation
//   - loop.go: the generation state machine
//   - task.go: spawned generations joined or cancelled by the caller
//   - persist.go: session snapshots through internal/store
//   - sink.go, errors.go, request.go: supporting types
package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"streamd/internal/engine"
	"streamd/internal/sampling"
	"streamd/internal/stopcond"
	"streamd/internal/textproc"
)

const (
	DefaultMaxQueueDepth = 32
	DefaultMaxWait       = 30 * time.Second
)

// Admission selects what a request does when the session is in use.
type Admission string

const (
	// AdmitBlock queues the request for up to MaxWait.
	AdmitBlock Admission = "block"
	// AdmitReject fails immediately with SessionBusy.
	AdmitReject Admission = "reject"
)

// SessionConfig configures a Session. Zero values take defaults.
type SessionConfig struct {
	Defaults      sampling.Params
	Stop          stopcond.Config
	Filter        textproc.Options
	MaxQueueDepth int
	MaxWait       time.Duration
	Admission     Admission
	Logger        *zerolog.Logger
}

func (c SessionConfig) withDefaults() SessionConfig {
	c.Defaults = c.Defaults.Resolve(sampling.Defaults)
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.Admission == "" {
		c.Admission = AdmitBlock
	}
	return c
}

var errClosed = errors.New("session closed")

// Session owns exclusive use of one engine. Every engine call happens while
// holding the session lease.
type Session struct {
	eng      engine.Engine
	specials engine.Specials
	cfg      SessionConfig
	filter   *textproc.Filter
	log      zerolog.Logger

	gen   *semaphore.Weighted
	queue *semaphore.Weighted

	stopFlag atomic.Bool
	closed   atomic.Bool
	busy     atomic.Bool
	waiting  atomic.Int32
	pos      atomic.Int64
	runs     atomic.Uint64
}

// NewSession wraps eng. The engine's memory is assumed empty.
func NewSession(eng engine.Engine, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Session{
		eng:      eng,
		specials: eng.Specials(),
		cfg:      cfg,
		filter:   textproc.NewFilter(cfg.Filter),
		log:      log.With().Str("component", "session").Logger(),
		gen:      semaphore.NewWeighted(1),
		queue:    semaphore.NewWeighted(int64(cfg.MaxQueueDepth)),
	}
}

// Config returns the effective configuration.
func (s *Session) Config() SessionConfig { return s.cfg }

// Stop asks the running generation to finish at the next token boundary.
// The flag is cleared when the next lease is acquired.
func (s *Session) Stop() { s.stopFlag.Store(true) }

func (s *Session) stopRequested(ctx context.Context) bool {
	return s.stopFlag.Load() || ctx.Err() != nil
}

// Position returns the number of tokens committed to engine memory.
func (s *Session) Position() int { return int(s.pos.Load()) }

// ClearMemory empties engine memory and resets the position. It waits for
// the lease like a generation does.
func (s *Session) ClearMemory(ctx context.Context) error {
	l, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer l.Release()
	s.eng.ClearMemory()
	s.pos.Store(0)
	s.log.Debug().Str("event", "memory_cleared").Msg("")
	return nil
}

// Tokenize runs the engine tokenizer under the lease. BOS is added when
// the session memory is empty, matching what Generate would do.
func (s *Session) Tokenize(ctx context.Context, text string) ([]engine.Token, error) {
	l, err := s.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer l.Release()
	toks, err := s.eng.Tokenize(text, s.Position() == 0)
	if err != nil {
		return nil, newError(TokenizationFailed, "tokenize", err)
	}
	return toks, nil
}

// Generate runs req to completion on the calling goroutine. Admission
// failures are returned without touching sink; after that, sink receives
// OnCompleted or OnError exactly once. Cancellation completes normally with
// FinishCancelled and a nil error.
func (s *Session) Generate(ctx context.Context, req Request, sink Sink) (Result, error) {
	start := time.Now()
	l, err := s.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer l.Release()
	g := s.newGeneration(req, guard(sink, s.log))
	g.res.QueueWait = time.Since(start)
	return g.run(ctx)
}

// Status is a point-in-time view of the session.
type Status struct {
	Position    int
	ContextSize int
	BatchSize   int
	Busy        bool
	Waiting     int
	Generations uint64
}

func (s *Session) Status() Status {
	return Status{
		Position:    s.Position(),
		ContextSize: s.eng.ContextSize(),
		BatchSize:   s.eng.BatchSize(),
		Busy:        s.busy.Load(),
		Waiting:     int(s.waiting.Load()),
		Generations: s.runs.Load(),
	}
}

// Close waits for requests already holding or queued for the lease, then
// closes the engine. Later requests fail with SessionBusy. Close ignores the
// admission policy; it only gives up when ctx ends.
func (s *Session) Close(ctx context.Context) error {
	if err := s.gen.Acquire(ctx, 1); err != nil {
		return newError(Cancelled, "close", err)
	}
	defer s.gen.Release(1)
	if s.closed.Swap(true) {
		return nil
	}
	s.log.Debug().Str("event", "session_closed").Int("position", s.Position()).Msg("")
	return s.eng.Close()
}
