package types

// Message is one chat turn for requests that send a conversation instead of
// a raw prompt.
type Message struct {
	// example: user
	Role string `json:"role" example:"user"`
	// example: What should I pack for school?
	Content string `json:"content" example:"What should I pack for school?"`
}

// InferRequest represents an inference request payload.
type InferRequest struct {
	// Optional model identifier. If empty, the server default is used.
	// example: llama-3.2-1b-instruct-q4_k_m.gguf
	Model string `json:"model,omitempty" example:"llama-3.2-1b-instruct-q4_k_m.gguf"`
	// Prompt text, sent to the engine as is. Either prompt or messages is required.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt,omitempty" example:"Write a haiku about the ocean."`
	// Conversation rendered with the chat template when prompt is empty.
	Messages []Message `json:"messages,omitempty"`
	// System prompt used with messages; the server default applies when empty.
	System string `json:"system,omitempty"`
	// Maximum number of new tokens before the grace extension.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature; non-positive uses the server default.
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Minimum probability relative to the best candidate; never below the server floor.
	// example: 0.05
	MinP float64 `json:"min_p,omitempty" example:"0.05"`
	// example: 1.1
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.1"`
	// Window of recent tokens the repeat penalty looks at.
	// example: 256
	RepeatLastN int `json:"repeat_last_n,omitempty" example:"256"`
	// Optional stop sequences. Generation stops before the first match.
	// example: ["\n\n","END"]
	Stop []string `json:"stop,omitempty" example:"[\"\\n\\n\",\"END\"]"`
	// Random seed for reproducibility; 0 or omitted lets the server choose.
	// example: 42
	Seed uint64 `json:"seed,omitempty" example:"42"`
	// Overrides of the stop policy; zero keeps the server setting.
	MinTokens      int `json:"min_tokens,omitempty" example:"3"`
	MaxExtraTokens int `json:"max_extra_tokens,omitempty" example:"32"`
	MaxSentences   int `json:"max_sentences,omitempty" example:"0"`
	// Clear session memory before this request.
	// example: false
	Reset bool `json:"reset,omitempty" example:"false"`
}

// TokenLine is one streamed fragment in the NDJSON response.
type TokenLine struct {
	Token string `json:"token"`
}

// Usage counts tokens of one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	ExtraTokens      int `json:"extra_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DoneLine terminates the NDJSON stream. Error is set when generation failed
// after streaming began; fragments already sent remain valid.
type DoneLine struct {
	Done         bool   `json:"done"`
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
	Position     int    `json:"position"`
	Error        string `json:"error,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// LoadResponse acknowledges an asynchronous model load.
type LoadResponse struct {
	// example: 3f1c2a9e-5a8b-4f7e-9d1a-0c2b4e6f8a10
	OpID string `json:"op_id" example:"3f1c2a9e-5a8b-4f7e-9d1a-0c2b4e6f8a10"`
	// example: llama-3.2-1b-instruct-q4_k_m.gguf
	Model string `json:"model"`
}

// SessionRequest names a snapshot for save/load.
type SessionRequest struct {
	// example: kitchen-helper
	Key string `json:"key" example:"kitchen-helper"`
}

// SessionResponse reports the session after a control operation.
type SessionResponse struct {
	Model    string `json:"model"`
	Key      string `json:"key,omitempty"`
	Position int    `json:"position"`
	Bytes    int    `json:"bytes,omitempty"`
	// example: stop_requested
	Status string `json:"status" example:"stop_requested"`
}

// InstanceStatus summarizes a loaded instance for /status.
type InstanceStatus struct {
	// example: llama-3.2-1b-instruct-q4_k_m.gguf
	ModelID string `json:"model_id" example:"llama-3.2-1b-instruct-q4_k_m.gguf"`
	// Lifecycle state: loading, ready, draining, error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// example: 1200
	EstVRAMMB int `json:"est_vram_mb" example:"1200"`
	// Requests waiting for the session lease.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Generations holding the lease (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Tokens committed to the session memory.
	// example: 512
	Position int `json:"position" example:"512"`
	// example: 2048
	ContextSize int `json:"context_size" example:"2048"`
	// example: 17
	Generations uint64 `json:"generations" example:"17"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Instances []InstanceStatus `json:"instances"`
	// example: 8192
	BudgetMB int `json:"budget_mb" example:"8192"`
	// example: 2048
	UsedMB int `json:"used_est_mb" example:"2048"`
	// example: 512
	MarginMB  int    `json:"margin_mb" example:"512"`
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Overall manager state (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// example: 1
	WarmupsInProgress int `json:"warmups_in_progress" example:"1"`
	// example: 0
	DrainingCount int `json:"draining_count" example:"0"`
	// True when the binary was built with the llama engine.
	EngineBuilt bool `json:"engine_built"`
}
