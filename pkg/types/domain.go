package types

// Model represents a discoverable or loadable model file on disk.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: llama-3.2-1b-instruct-q4_k_m.gguf
	ID string `json:"id" example:"llama-3.2-1b-instruct-q4_k_m.gguf"`
	// Human-friendly name.
	// example: llama-3.2-1b-instruct
	Name string `json:"name" example:"llama-3.2-1b-instruct"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/llm/llama-3.2-1b-instruct-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/llm/llama-3.2-1b-instruct-q4_k_m.gguf"`
	// Quantization level parsed from the file name.
	// example: Q4_K_M
	Quant string `json:"quant" example:"Q4_K_M"`
	// Model family parsed from the file name.
	// example: llama
	Family string `json:"family,omitempty" example:"llama"`
	// File size in bytes; used to estimate memory when loading.
	// example: 807694464
	SizeBytes int64 `json:"size_bytes,omitempty" example:"807694464"`
}
