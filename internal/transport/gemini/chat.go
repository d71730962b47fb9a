package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ducdang03/money-ez-ai/internal/domain"
	"github.com/ducdang03/money-ez-ai/internal/metrics"
)

var (
	_ domain.ChatModel      = (*Client)(nil)
	_ domain.StreamingModel = (*Client)(nil)
)

// Generate produces a single model reply, retrying on rate limits.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	model := c.resolveModel(req)

	contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}
	config := c.generationConfig(req)

	start := time.Now()
	resp, err := c.generateWithRetry(ctx, model, contents, config)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(model, "error").Inc()
		return nil, err
	}

	metrics.ModelRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	result := extractResult(resp)
	c.recordUsage(model, result)

	c.logger.Debug("model response",
		zap.String("model", model),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("output_tokens", result.OutputTokens),
		zap.Int("tool_calls", len(result.Message.ToolCalls)))

	return result, nil
}

// GenerateStream produces a reply while forwarding text deltas to stream.
// Tool calls and usage are collected from the chunks and returned in the
// final result. Streaming requests are not retried, a broken stream cannot
// be resumed transparently.
func (c *Client) GenerateStream(ctx context.Context, req domain.GenerateRequest, stream domain.StreamFunc) (*domain.GenerateResult, error) {
	model := c.resolveModel(req)

	contents, cerr := toContents(req.Messages)
	if cerr != nil {
		return nil, cerr
	}
	config := c.generationConfig(req)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &domain.GenerateResult{Message: domain.Message{Role: domain.RoleAssistant}}
	var text strings.Builder

	for resp, err := range c.genai.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			metrics.ModelRequestsTotal.WithLabelValues(model, "error").Inc()
			return nil, wrapProviderError(err)
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			for _, part := range resp.Candidates[0].Content.Parts {
				if part == nil {
					continue
				}
				if part.Text != "" {
					text.WriteString(part.Text)
					if serr := stream(part.Text); serr != nil {
						return nil, fmt.Errorf("stream callback: %w", serr)
					}
				}
				if part.FunctionCall != nil {
					result.Message.ToolCalls = append(result.Message.ToolCalls, domain.ToolCall{
						ID:   part.FunctionCall.ID,
						Name: part.FunctionCall.Name,
						Args: part.FunctionCall.Args,
					})
				}
			}
		}
		// Usage arrives cumulatively, the last chunk wins.
		if u := resp.UsageMetadata; u != nil {
			result.PromptTokens = int(u.PromptTokenCount)
			result.OutputTokens = int(u.CandidatesTokenCount)
		}
	}
	result.Message.Content = text.String()

	metrics.ModelRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	c.recordUsage(model, result)

	return result, nil
}

func (c *Client) resolveModel(req domain.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.cfg.ChatModel
}

func (c *Client) generationConfig(req domain.GenerateRequest) *genai.GenerateContentConfig {
	temp := c.cfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if tools := toTools(req.Tools); tools != nil {
		config.Tools = tools
	}
	if req.JSONSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toSchema(req.JSONSchema)
	}
	return config
}

func (c *Client) generateWithRetry(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	rc := DefaultRetryConfig(c.cfg.MaxRetries)

	var lastErr error
	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.genai.Models.GenerateContent(ctx, model, contents, config)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == rc.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(err) {
			backoff = rc.CalculateBackoff(attempt, ExtractRetryDelay(err))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		c.logger.Warn("model request failed, retrying",
			zap.String("model", model),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", rc.MaxRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, wrapProviderError(lastErr)
}

// recordUsage feeds the token counters. The per-request usage collector
// is the caller's concern, services record it from the returned result.
func (c *Client) recordUsage(model string, result *domain.GenerateResult) {
	metrics.ModelTokensTotal.WithLabelValues(model, "prompt").Add(float64(result.PromptTokens))
	metrics.ModelTokensTotal.WithLabelValues(model, "completion").Add(float64(result.OutputTokens))
}

func wrapProviderError(err error) error {
	if IsRateLimitError(err) {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
}

func extractResult(resp *genai.GenerateContentResponse) *domain.GenerateResult {
	result := &domain.GenerateResult{
		Message: domain.Message{Role: domain.RoleAssistant},
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				result.Message.ToolCalls = append(result.Message.ToolCalls, domain.ToolCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
		result.Message.Content = text.String()
	}

	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.OutputTokens = int(u.CandidatesTokenCount)
	}
	return result
}
