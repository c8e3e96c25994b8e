// Package oracle provides the decision-oracle boundary for quill: a
// structured request/response contract over an LLM, used for
// classification, planning, and judgment. Everything above this package
// depends on the Oracle interface, never on the concrete client.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
)

// Common oracle errors.
var (
	// ErrEmptyResponse indicates the oracle returned no usable content.
	ErrEmptyResponse = errors.New("oracle returned an empty response")
	// ErrNoSelection indicates a classification reply matched none of the
	// offered candidates.
	ErrNoSelection = errors.New("oracle selection matched no candidate")
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolDef describes one tool the oracle may request during a turn. The
// schema fields mirror JSON Schema object properties.
type ToolDef struct {
	Name        string
	Description string
	Properties  map[string]interface{}
	Required    []string
}

// ToolCall is the oracle's request to invoke a tool.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult carries a tool's output back to the oracle.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// Message is one turn of a conversation with the oracle.
type Message struct {
	Role Role
	// Text is the message body for plain turns.
	Text string
	// ToolCalls echoes the oracle's tool requests on assistant turns.
	ToolCalls []ToolCall
	// ToolResults carries tool outputs on user turns.
	ToolResults []ToolResult
}

// UserText builds a plain user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// Request is one structured call to the oracle.
type Request struct {
	// Persona is the role-tagged instruction set (system prompt).
	Persona string
	// Messages is the conversation content, oldest first.
	Messages []Message
	// Tools, when non-empty, offers the oracle a tool list for this turn.
	Tools []ToolDef
	// MaxTokens caps the response length. Zero selects a default.
	MaxTokens int64
}

// Response is the oracle's structured reply.
type Response struct {
	// Text is the concatenated free-text content of the reply.
	Text string
	// ToolCalls lists requested tool invocations, in order.
	ToolCalls []ToolCall
	// EndTurn is true when the oracle finished without requesting tools.
	EndTurn bool
	// TokensIn and TokensOut report usage for this call.
	TokensIn  int64
	TokensOut int64
}

// Oracle maps a structured request to a structured response. Calls block
// until the oracle replies; callers wanting a timeout wrap the context.
// Implementations must be safe for sequential reuse across calls.
type Oracle interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
