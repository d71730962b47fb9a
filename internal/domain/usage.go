package domain

import "context"

type modelUsageKey struct{}

// ModelUsage collects Gemini token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the
// service; model and embedding calls add to it; the handler reads it for
// response headers.
type ModelUsage struct {
	PromptTokens int
	OutputTokens int
	Used         bool // true if a model was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ModelUsage) {
	u := &ModelUsage{}
	return context.WithValue(ctx, modelUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ModelUsage {
	u, _ := ctx.Value(modelUsageKey{}).(*ModelUsage)
	return u
}

// AddTokens records consumed tokens.
func (u *ModelUsage) AddTokens(prompt, output int) {
	if u != nil {
		u.PromptTokens += prompt
		u.OutputTokens += output
		u.Used = true
	}
}

// TotalTokens returns the combined prompt and output token count.
func (u *ModelUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	return u.PromptTokens + u.OutputTokens
}
