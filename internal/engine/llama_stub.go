//go:build !llama

package engine

// Built reports whether this binary links a real inference engine.
const Built = false

// Load always fails in builds without the llama tag.
func Load(modelPath string, opts Options) (Engine, error) {
	return nil, ErrUnavailable
}
