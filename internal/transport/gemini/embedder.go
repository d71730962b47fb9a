package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ducdang03/money-ez-ai/internal/domain"
	"github.com/ducdang03/money-ez-ai/internal/metrics"
)

// Embedder vectorizes text through the Gemini embedding API. It shares
// the client's rate limiter with the chat side, both count against the
// same per-key quota.
type Embedder struct {
	c *Client
}

// Embedder returns the embedding face of the client.
func (c *Client) Embedder() *Embedder { return &Embedder{c: c} }

var (
	_ domain.Embedder      = (*Embedder)(nil)
	_ domain.BatchEmbedder = (*Embedder)(nil)
	_ domain.HealthChecker = (*Embedder)(nil)
)

// Embed generates an embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, errors.New("text cannot be empty")
	}

	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: vecs[0]}, nil
}

// BatchEmbed generates embeddings for multiple texts in one API call,
// preserving input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	vecs, err := e.embed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.c.cfg.EmbeddingModel

	if err := e.c.wait(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{}
	if e.c.cfg.Dimensions > 0 {
		config.OutputDimensionality = genai.Ptr(int32(e.c.cfg.Dimensions))
	}

	start := time.Now()
	result, err := e.c.genai.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, model, errorType(err)).Inc()
		return nil, wrapProviderError(err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, model).Observe(time.Since(start).Seconds())

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d embeddings for %d texts",
			domain.ErrModelUnavailable, len(result.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", domain.ErrModelUnavailable, i)
		}
		if e.c.cfg.Dimensions > 0 && len(emb.Values) != e.c.cfg.Dimensions {
			return nil, fmt.Errorf("%w: got %d dimensions, want %d",
				domain.ErrVectorDimMismatch, len(emb.Values), e.c.cfg.Dimensions)
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}

func errorType(err error) string {
	if IsRateLimitError(err) {
		return "rate_limit"
	}
	return "api_error"
}

// HealthCheck verifies the embedding API is reachable by embedding a probe string.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := e.Embed(ctx, "health check probe"); err != nil {
		return fmt.Errorf("gemini health check: %w", err)
	}
	return nil
}
