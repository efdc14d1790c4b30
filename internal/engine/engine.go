// Package engine defines the contract between the generation controller and
// an inference engine (tokenizer + model + logits).
//
// The real binding to llama.cpp lives in llama.go and is compiled only with
// `-tags=llama`. Default builds get llama_stub.go, whose Load reports
// ErrUnavailable so callers can surface a dependency error instead of
// pretending to generate.
package engine

import "errors"

// Token is a vocabulary id.
type Token = int32

// DefaultControlFloor is the first id of the reserved control range for the
// Llama 3 vocabulary family.
const DefaultControlFloor Token = 128000

var (
	// ErrUnavailable is returned by Load when the binary was built without an engine.
	ErrUnavailable = errors.New("engine: inference engine not built (rebuild with -tags=llama)")
	// ErrBatchInit reports an engine-side allocation failure for a batch.
	ErrBatchInit = errors.New("engine: batch allocation failed")
	// ErrDecode reports that an evaluate call returned failure.
	ErrDecode = errors.New("engine: decode failed")
	// ErrTokenize reports a tokenizer failure.
	ErrTokenize = errors.New("engine: tokenize failed")
	// ErrStateSize reports a state blob that was not consumed whole.
	ErrStateSize = errors.New("engine: state size mismatch")
)

// Engine is a single, non-reentrant engine context. Implementations are not
// safe for concurrent use; callers serialize access.
type Engine interface {
	// Tokenize converts text into token ids, optionally prefixing BOS.
	Tokenize(text string, addBOS bool) ([]Token, error)
	// Evaluate commits tokens into working memory starting at startPos.
	// When logitsForLast is set, logits for the last token become available
	// via Logits(startPos+len(tokens)-1).
	Evaluate(tokens []Token, startPos int, logitsForLast bool) error
	// Logits returns the next-token logits computed at pos, if any.
	Logits(pos int) ([]float32, bool)
	// Detokenize returns the raw byte fragment for a token. The fragment may
	// be a partial UTF-8 sequence.
	Detokenize(tok Token) []byte
	ContextSize() int
	BatchSize() int
	// ClearMemory drops all committed tokens.
	ClearMemory()
	Specials() Specials
	Close() error
}

// Persister is implemented by engines whose memory can be exported as an
// opaque blob.
type Persister interface {
	SaveState() ([]byte, error)
	// LoadState restores a blob produced by SaveState. A blob that is not
	// consumed whole must fail with ErrStateSize.
	LoadState(data []byte) error
}

// Specials describes token ids with structural meaning.
type Specials struct {
	EndOfTurn     Token
	EndOfSequence []Token
	// ControlFloor marks the first id of the reserved control range; ids at or
	// above it are never rendered as text. Zero disables the range check.
	ControlFloor Token
	// Control lists additional control ids outside the reserved range.
	Control map[Token]struct{}
}

// IsTerminal reports whether tok ends the response.
func (s Specials) IsTerminal(tok Token) bool {
	if tok == s.EndOfTurn {
		return true
	}
	for _, eos := range s.EndOfSequence {
		if tok == eos {
			return true
		}
	}
	return false
}

// IsControl reports whether tok is a structural token that must not be shown.
func (s Specials) IsControl(tok Token) bool {
	if s.ControlFloor > 0 && tok >= s.ControlFloor {
		return true
	}
	_, ok := s.Control[tok]
	return ok
}

// Options configure an engine at load time.
type Options struct {
	ContextSize  int
	BatchSize    int
	Threads      int
	GPULayers    int
	ControlFloor Token
	UseMmap      bool
}

// Defaults applied when corresponding Options fields are unset.
const (
	DefaultContextSize = 2048
	DefaultBatchSize   = 128
	DefaultThreads     = 6
)

// WithDefaults returns o with zero fields replaced by package defaults.
func (o Options) WithDefaults() Options {
	if o.ContextSize <= 0 {
		o.ContextSize = DefaultContextSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > o.ContextSize {
		o.BatchSize = o.ContextSize
	}
	if o.Threads <= 0 {
		o.Threads = DefaultThreads
	}
	if o.ControlFloor == 0 {
		o.ControlFloor = DefaultControlFloor
	}
	return o
}

// Loader opens an engine for a model file.
type Loader func(modelPath string, opts Options) (Engine, error)
