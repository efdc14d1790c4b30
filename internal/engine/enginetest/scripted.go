// Package enginetest provides a deterministic in-memory engine for tests.
//
// A Scripted engine emits a fixed token sequence: every Logits call returns a
// vector in which the next scripted token dominates, so any reasonable
// sampler chain picks it. After the script is exhausted the end-of-turn token
// dominates. The engine also records call shapes and flags concurrent use.
package enginetest

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"streamd/internal/engine"
)

// Well-known ids used by New.
const (
	BOS       engine.Token = 1
	EOS       engine.Token = 2
	EOT       engine.Token = 3
	PromptTok engine.Token = 4
	firstText engine.Token = 10
)

// Scripted is a fake engine.Engine. Exported fields may be set before use.
type Scripted struct {
	Vocab     map[engine.Token][]byte
	Script    []engine.Token
	VocabSize int
	CtxSize   int
	Batch     int
	Spec      engine.Specials

	// EvalDelay widens the window for detecting concurrent callers.
	EvalDelay time.Duration
	// FailEvaluateAt makes the n-th Evaluate call (1-based) fail. Zero disables.
	FailEvaluateAt int
	// DropLogits makes Logits report nothing.
	DropLogits bool
	// TokenizeErr is returned from Tokenize when set.
	TokenizeErr error

	mu         sync.Mutex
	step       int
	committed  int
	logitsPos  int
	evalCalls  int
	batches    []int
	wantLogits []bool
	clears     int
	closed     bool

	inflight   atomic.Int32
	violations atomic.Int32
}

// New builds a scripted engine whose text tokens render as pieces, in order.
// Pieces may hold partial UTF-8 sequences.
func New(pieces ...string) *Scripted {
	s := &Scripted{
		Vocab:     map[engine.Token][]byte{},
		CtxSize:   2048,
		Batch:     128,
		logitsPos: -1,
		Spec: engine.Specials{
			EndOfTurn:     EOT,
			EndOfSequence: []engine.Token{EOS},
			ControlFloor:  engine.DefaultControlFloor,
		},
	}
	s.Vocab[PromptTok] = []byte("?")
	for i, p := range pieces {
		id := firstText + engine.Token(i)
		s.Vocab[id] = []byte(p)
		s.Script = append(s.Script, id)
	}
	s.VocabSize = int(firstText) + len(pieces) + 1
	return s
}

// Emit appends raw ids to the script, e.g. control or terminal tokens.
func (s *Scripted) Emit(ids ...engine.Token) *Scripted {
	s.Script = append(s.Script, ids...)
	for _, id := range ids {
		if int(id) >= s.VocabSize {
			s.VocabSize = int(id) + 1
		}
	}
	return s
}

func (s *Scripted) enter() {
	if s.inflight.Add(1) != 1 {
		s.violations.Add(1)
	}
}

func (s *Scripted) leave() { s.inflight.Add(-1) }

// Tokenize returns one PromptTok per byte of text.
func (s *Scripted) Tokenize(text string, addBOS bool) ([]engine.Token, error) {
	s.enter()
	defer s.leave()
	if s.TokenizeErr != nil {
		return nil, s.TokenizeErr
	}
	out := make([]engine.Token, 0, len(text)+1)
	if addBOS {
		out = append(out, BOS)
	}
	for range len(text) {
		out = append(out, PromptTok)
	}
	return out, nil
}

func (s *Scripted) Evaluate(tokens []engine.Token, startPos int, logitsForLast bool) error {
	s.enter()
	defer s.leave()
	if s.EvalDelay > 0 {
		time.Sleep(s.EvalDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalCalls++
	s.batches = append(s.batches, len(tokens))
	s.wantLogits = append(s.wantLogits, logitsForLast)
	s.logitsPos = -1
	if s.FailEvaluateAt > 0 && s.evalCalls == s.FailEvaluateAt {
		return engine.ErrDecode
	}
	if len(tokens) > s.Batch {
		return engine.ErrBatchInit
	}
	if startPos != s.committed {
		return errors.New("enginetest: evaluate at non-contiguous position")
	}
	s.committed += len(tokens)
	if logitsForLast {
		s.logitsPos = s.committed - 1
	}
	return nil
}

// Logits advances the script by one token per successful call.
func (s *Scripted) Logits(pos int) ([]float32, bool) {
	s.enter()
	defer s.leave()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DropLogits || pos != s.logitsPos {
		return nil, false
	}
	next := s.Spec.EndOfTurn
	if s.step < len(s.Script) {
		next = s.Script[s.step]
	}
	s.step++
	out := make([]float32, s.VocabSize)
	if int(next) < len(out) {
		out[next] = 100
	}
	return out, true
}

func (s *Scripted) Detokenize(tok engine.Token) []byte {
	s.enter()
	defer s.leave()
	return bytes.Clone(s.Vocab[tok])
}

func (s *Scripted) ContextSize() int         { return s.CtxSize }
func (s *Scripted) BatchSize() int           { return s.Batch }
func (s *Scripted) Specials() engine.Specials { return s.Spec }

func (s *Scripted) ClearMemory() {
	s.enter()
	defer s.leave()
	s.mu.Lock()
	s.committed = 0
	s.logitsPos = -1
	s.clears++
	s.mu.Unlock()
}

func (s *Scripted) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// SaveState encodes the committed count as the blob.
func (s *Scripted) SaveState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []byte{byte(s.committed >> 8), byte(s.committed)}, nil
}

func (s *Scripted) LoadState(data []byte) error {
	if len(data) != 2 {
		return engine.ErrStateSize
	}
	s.mu.Lock()
	s.committed = int(data[0])<<8 | int(data[1])
	s.logitsPos = -1
	s.mu.Unlock()
	return nil
}

// Violations counts calls that overlapped another in-flight call.
func (s *Scripted) Violations() int { return int(s.violations.Load()) }

// Batches returns the sizes passed to each Evaluate call.
func (s *Scripted) Batches() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.batches...)
}

// LogitsRequests returns the logitsForLast flag of each Evaluate call.
func (s *Scripted) LogitsRequests() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.wantLogits...)
}

// Committed returns the number of tokens in working memory.
func (s *Scripted) Committed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Clears returns how many times ClearMemory ran.
func (s *Scripted) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Closed reports whether Close was called.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Loader returns an engine.Loader that always yields s.
func (s *Scripted) Loader() engine.Loader {
	return func(string, engine.Options) (engine.Engine, error) { return s, nil }
}
