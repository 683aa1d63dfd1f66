package llm

import (
	"context"
	"encoding/json"
)

// Provider is the text-completion port every agent and evaluator consumes.
// Implementations wrap a vendor SDK and normalize its request/response
// shapes and error taxonomy.
type Provider interface {
	// Generate sends a prompt to the model and returns its output.
	// When the request carries a Schema, the provider uses its native
	// structured-output mechanism and the response Content is JSON
	// validated against that schema. Without a Schema, Content is the
	// raw text of the completion.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID reports the model identifier this provider is configured with.
	ModelID() string
}

// Request describes a single completion call.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation to complete. Most calls in this
	// codebase send a single user message.
	Messages []Message

	// Schema, when non-nil, requests schema-conforming JSON output.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature in [0.0, 1.0]; zero value means deterministic.
	Temperature float64
}

// Message is one turn of a conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema describes the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case.
	Name string

	// Description tells the model what the schema represents.
	Description string

	// Definition is the JSON Schema definition.
	Definition map[string]any
}

// Response is the normalized model output.
type Response struct {
	// Content is the generated output: validated JSON when a Schema was
	// requested, raw text otherwise.
	Content json.RawMessage

	// Usage reports token consumption for the call.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Text returns the response content as a plain string.
func (r *Response) Text() string {
	return string(r.Content)
}
