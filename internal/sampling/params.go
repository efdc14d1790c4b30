package sampling

// MinPFloor is the minimum-probability quality floor, relative to the most
// likely candidate. Requests may raise it but never lower it.
const MinPFloor = 0.05

// Params are caller-facing sampling parameters. Non-positive values fall back
// to the corresponding field of Defaults.
type Params struct {
	MaxTokens     int
	Temperature   float32
	TopK          int
	TopP          float32
	MinP          float32
	RepeatPenalty float32
	RepeatLastN   int
	// Seed > 0 makes the final draw reproducible.
	Seed uint64
}

// Defaults are the generation defaults used when a request leaves a
// parameter unset or passes a non-positive value.
var Defaults = Params{
	MaxTokens:     100,
	Temperature:   0.3,
	TopK:          50,
	TopP:          0.85,
	MinP:          MinPFloor,
	RepeatPenalty: 1.2,
	RepeatLastN:   256,
}

// Resolve fills non-positive fields of p from def.
func (p Params) Resolve(def Params) Params {
	if p.MaxTokens <= 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.Temperature <= 0 {
		p.Temperature = def.Temperature
	}
	if p.TopK <= 0 {
		p.TopK = def.TopK
	}
	if p.TopP <= 0 {
		p.TopP = def.TopP
	}
	if p.MinP <= 0 {
		p.MinP = def.MinP
	}
	if p.MinP < MinPFloor {
		p.MinP = MinPFloor
	}
	if p.RepeatPenalty <= 0 {
		p.RepeatPenalty = def.RepeatPenalty
	}
	if p.RepeatLastN <= 0 {
		p.RepeatLastN = def.RepeatLastN
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}
	return p
}
