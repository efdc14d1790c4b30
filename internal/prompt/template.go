// Package prompt renders chat turns in the Llama 3 header format.
package prompt

import "strings"

const (
	headerOpen  = "<|start_header_id|>"
	headerClose = "<|end_header_id|>\n\n"
	endOfTurn   = "<|eot_id|>"
)

// DefaultSystem is used when a Builder has no system prompt.
const DefaultSystem = "You are a friendly assistant. Keep answers short and simple, " +
	"guide one step at a time, and do not repeat the question."

// Role names accepted by Format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func header(sb *strings.Builder, role string) {
	sb.WriteString(headerOpen)
	sb.WriteString(role)
	sb.WriteString(headerClose)
}

// Format renders a whole conversation and opens the assistant turn. A
// leading system message replaces system; BOS is left to the tokenizer.
func Format(system string, msgs []Message) string {
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		system = msgs[0].Content
		msgs = msgs[1:]
	}
	if system == "" {
		system = DefaultSystem
	}
	var sb strings.Builder
	header(&sb, RoleSystem)
	sb.WriteString(system)
	sb.WriteString(endOfTurn)
	for _, m := range msgs {
		role := m.Role
		if role != RoleAssistant && role != RoleSystem {
			role = RoleUser
		}
		header(&sb, role)
		sb.WriteString(m.Content)
		sb.WriteString(endOfTurn)
	}
	header(&sb, RoleAssistant)
	return sb.String()
}

// Builder produces incremental prompts for a session that keeps earlier
// turns in engine memory. Only the new text is rendered on each turn.
type Builder struct {
	System string
	turns  int
}

// Next renders the user's turn. The first turn carries the system prompt;
// later turns first close the previous assistant reply, whose terminal
// token was never committed to memory.
func (b *Builder) Next(user string) string {
	var sb strings.Builder
	if b.turns == 0 {
		sys := b.System
		if sys == "" {
			sys = DefaultSystem
		}
		header(&sb, RoleSystem)
		sb.WriteString(sys)
	}
	sb.WriteString(endOfTurn)
	header(&sb, RoleUser)
	sb.WriteString(user)
	sb.WriteString(endOfTurn)
	header(&sb, RoleAssistant)
	b.turns++
	return sb.String()
}

// Turns returns how many user turns were rendered since the last Reset.
func (b *Builder) Turns() int { return b.turns }

// Reset starts a new conversation; pair it with clearing session memory.
func (b *Builder) Reset() { b.turns = 0 }

// Resume marks the conversation as started, for memory restored from a
// snapshot. The next turn then omits the system prompt.
func (b *Builder) Resume() {
	if b.turns == 0 {
		b.turns = 1
	}
}
