// Package sampling turns a logits vector into one token id through an
// ordered chain of stages.
//
// Chain order is fixed: top-k, top-p, min-p floor, temperature, repetition
// penalty, then exactly one distribution draw. Stages whose parameters
// disable them are left out of the chain entirely.
package sampling

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Candidate is one surviving vocabulary entry.
type Candidate struct {
	ID    int32
	Logit float32
	P     float32
}

// Candidates is the working set passed between stages.
type Candidates struct {
	Data []Candidate
	// Sorted reports Data ordered by descending logit.
	Sorted bool
}

// Stage filters or rescales candidates in place.
type Stage interface {
	Name() string
	Apply(c *Candidates)
}

// acceptor is implemented by stages that keep per-request history.
type acceptor interface {
	Accept(tok int32)
	Reset()
}

// Chain is a configured sampler. It is not safe for concurrent use.
type Chain struct {
	stages []Stage
	draw   *distStage
	cands  Candidates
}

// New configures a chain from fully resolved params. Callers normally pass
// p.Resolve(Defaults).
func New(p Params) *Chain {
	c := &Chain{}
	if p.TopK > 0 {
		c.stages = append(c.stages, topKStage{k: p.TopK})
	}
	if p.TopP > 0 && p.TopP < 1 {
		c.stages = append(c.stages, topPStage{p: p.TopP})
	}
	minP := p.MinP
	if minP < MinPFloor {
		minP = MinPFloor
	}
	c.stages = append(c.stages, minPStage{p: minP})
	if p.Temperature > 0 && p.Temperature != 1 {
		c.stages = append(c.stages, tempStage{t: p.Temperature})
	}
	if p.RepeatPenalty > 0 && p.RepeatPenalty != 1 && p.RepeatLastN != 0 {
		c.stages = append(c.stages, newPenaltyStage(p.RepeatPenalty, p.RepeatLastN))
	}
	c.draw = &distStage{rng: newRand(p.Seed)}
	return c
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		var b [16]byte
		if _, err := crand.Read(b[:]); err == nil {
			return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
		}
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Names lists the stages in execution order, ending with the draw.
func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.stages)+1)
	for _, s := range c.stages {
		out = append(out, s.Name())
	}
	return append(out, c.draw.Name())
}

// Sample selects one token from logits. The logits slice is not modified.
func (c *Chain) Sample(logits []float32) int32 {
	if cap(c.cands.Data) < len(logits) {
		c.cands.Data = make([]Candidate, len(logits))
	}
	c.cands.Data = c.cands.Data[:len(logits)]
	for i, l := range logits {
		c.cands.Data[i] = Candidate{ID: int32(i), Logit: l}
	}
	c.cands.Sorted = false
	for _, s := range c.stages {
		s.Apply(&c.cands)
	}
	c.draw.Apply(&c.cands)
	return c.draw.picked
}

// Accept records tok in the history of stateful stages.
func (c *Chain) Accept(tok int32) {
	for _, s := range c.stages {
		if a, ok := s.(acceptor); ok {
			a.Accept(tok)
		}
	}
}

// Reset clears stage history.
func (c *Chain) Reset() {
	for _, s := range c.stages {
		if a, ok := s.(acceptor); ok {
			a.Reset()
		}
	}
}
