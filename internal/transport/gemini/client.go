package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const providerName = "gemini"

// Config holds Gemini provider settings.
type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
	Temperature    float32
	MaxRetries     int
	RateLimitRPS   float64
	RateLimitBurst int
}

// Client wraps the genai client with rate limiting and retries shared by
// the chat and embedding surfaces.
type Client struct {
	genai   *genai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Gemini client against the public Gemini API backend.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	return &Client{
		genai:   client,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// wait blocks until the shared rate limiter admits another API call.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
