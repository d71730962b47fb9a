package domain

import "context"

// ChatModel is the text generation contract between the agent and a provider.
type ChatModel interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// StreamFunc receives incremental text deltas during streaming generation.
type StreamFunc func(delta string) error

// StreamingModel is implemented by providers that can stream text deltas.
type StreamingModel interface {
	GenerateStream(ctx context.Context, req GenerateRequest, stream StreamFunc) (*GenerateResult, error)
}

// GenerateRequest is a single model invocation.
type GenerateRequest struct {
	Model       string // empty selects the provider's default chat model
	System      string
	Messages    []Message
	Tools       []Tool
	Temperature *float32 // nil selects the provider's default; 0 is an explicit value
	JSONSchema  *Schema  // non-nil requests structured JSON output matching the schema
}

// GenerateResult carries the model reply and token usage.
type GenerateResult struct {
	Message      Message
	PromptTokens int
	OutputTokens int
}

// Tool declares a callable function to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
}

// Schema is the JSON-schema subset used for tool parameters and structured output.
type Schema struct {
	Type        string // object, string, number, integer, boolean, array
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Nullable    bool
}
