package sampling

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
)

func sortDesc(c *Candidates) {
	if c.Sorted {
		return
	}
	slices.SortFunc(c.Data, func(a, b Candidate) int { return cmp.Compare(b.Logit, a.Logit) })
	c.Sorted = true
}

// softmax fills P from Logit over the current candidates.
func softmax(c *Candidates) {
	if len(c.Data) == 0 {
		return
	}
	maxl := float32(math.Inf(-1))
	for _, d := range c.Data {
		if d.Logit > maxl {
			maxl = d.Logit
		}
	}
	var sum float64
	for i := range c.Data {
		e := math.Exp(float64(c.Data[i].Logit - maxl))
		c.Data[i].P = float32(e)
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range c.Data {
		c.Data[i].P = float32(float64(c.Data[i].P) / sum)
	}
}

type topKStage struct{ k int }

func (s topKStage) Name() string { return "top_k=" + strconv.Itoa(s.k) }

func (s topKStage) Apply(c *Candidates) {
	sortDesc(c)
	if s.k < len(c.Data) {
		c.Data = c.Data[:s.k]
	}
}

type topPStage struct{ p float32 }

func (s topPStage) Name() string { return "top_p=" + formatFloat(s.p) }

func (s topPStage) Apply(c *Candidates) {
	sortDesc(c)
	softmax(c)
	var cum float32
	for i, d := range c.Data {
		cum += d.P
		if cum >= s.p {
			c.Data = c.Data[:i+1]
			return
		}
	}
}

type minPStage struct{ p float32 }

func (s minPStage) Name() string { return "min_p=" + formatFloat(s.p) }

func (s minPStage) Apply(c *Candidates) {
	if len(c.Data) <= 1 {
		return
	}
	softmax(c)
	var maxp float32
	for _, d := range c.Data {
		if d.P > maxp {
			maxp = d.P
		}
	}
	threshold := maxp * s.p
	kept := c.Data[:0]
	for _, d := range c.Data {
		if d.P >= threshold {
			kept = append(kept, d)
		}
	}
	c.Data = kept
}

type tempStage struct{ t float32 }

func (s tempStage) Name() string { return "temperature=" + formatFloat(s.t) }

func (s tempStage) Apply(c *Candidates) {
	inv := 1 / s.t
	for i := range c.Data {
		c.Data[i].Logit *= inv
	}
}

// penaltyStage scales logits of tokens seen in the last n accepted tokens.
// n < 0 means the whole request history.
type penaltyStage struct {
	penalty float32
	n       int
	history []int32
	counts  map[int32]int
}

func newPenaltyStage(penalty float32, n int) *penaltyStage {
	return &penaltyStage{penalty: penalty, n: n, counts: map[int32]int{}}
}

func (s *penaltyStage) Name() string {
	return "repeat_penalty=" + formatFloat(s.penalty) + "/" + strconv.Itoa(s.n)
}

func (s *penaltyStage) Apply(c *Candidates) {
	if len(s.counts) == 0 {
		return
	}
	for i := range c.Data {
		if s.counts[c.Data[i].ID] == 0 {
			continue
		}
		if c.Data[i].Logit > 0 {
			c.Data[i].Logit /= s.penalty
		} else {
			c.Data[i].Logit *= s.penalty
		}
	}
	c.Sorted = false
}

func (s *penaltyStage) Accept(tok int32) {
	s.history = append(s.history, tok)
	s.counts[tok]++
	if s.n > 0 && len(s.history) > s.n {
		old := s.history[0]
		s.history = s.history[1:]
		if s.counts[old]--; s.counts[old] <= 0 {
			delete(s.counts, old)
		}
	}
}

func (s *penaltyStage) Reset() {
	s.history = s.history[:0]
	clear(s.counts)
}

type distStage struct {
	rng    *rand.Rand
	picked int32
}

func (s *distStage) Name() string { return "dist" }

func (s *distStage) Apply(c *Candidates) {
	if len(c.Data) == 0 {
		s.picked = 0
		return
	}
	softmax(c)
	r := float32(s.rng.Float64())
	var cum float32
	for _, d := range c.Data {
		cum += d.P
		if r < cum {
			s.picked = d.ID
			return
		}
	}
	s.picked = c.Data[len(c.Data)-1].ID
}

func formatFloat(f float32) string { return strconv.FormatFloat(float64(f), 'g', -1, 32) }
