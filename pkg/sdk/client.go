package moneyez

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Chat turns can round-trip through the classifier and the MoneyEZ
// backend before answering.
const defaultTimeout = 5 * time.Minute

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// headerModelTokens carries the total model tokens a request cost.
// Set on non-streaming routes that call a model, errors included.
const headerModelTokens = "X-Model-Tokens"

// Client is the MoneyEZ AI SDK entry point.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	obs     *observer
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("moneyez: base URL required")
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  cfg.secret,
		http:    httpClient,
		obs:     obs,
	}, nil
}

// Chat returns the conversational agent service.
func (c *Client) Chat() *ChatService {
	return &ChatService{c: c}
}

// Knowledge returns the knowledge base management service.
func (c *Client) Knowledge() *KnowledgeService {
	return &KnowledgeService{c: c}
}

// Conversations returns the conversation thread service.
func (c *Client) Conversations() *ConversationService {
	return &ConversationService{c: c}
}

// Suggestions returns the spending model suggestion service.
func (c *Client) Suggestions() *SuggestionService {
	return &SuggestionService{c: c}
}

// ModelTokens returns the cumulative model token count the service has
// reported for this client's calls so far.
func (c *Client) ModelTokens() int64 {
	return c.obs.tokens.Load()
}

// captureUsage reads the token usage header off a response.
func (c *Client) captureUsage(resp *http.Response) {
	v := resp.Header.Get(headerModelTokens)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		c.obs.recordTokens(n)
	}
}

// envelope mirrors the service response wrapper.
type envelope struct {
	Status    int             `json:"status"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func (e *envelope) apiError() *APIError {
	return &APIError{Status: e.Status, Code: e.ErrorCode, Message: e.Message}
}

// dataField is the outer body of chat and suggestion requests: a JSON
// document packed into a string field.
type dataField struct {
	Data string `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("moneyez: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.secret != "" {
		req.Header.Set("X-External-Secret", c.secret)
	}
	return req, nil
}

// doJSON executes the request and decodes the body into out. Non-2xx
// responses decode as error envelopes.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("moneyez: %w", err)
	}
	defer resp.Body.Close()
	c.captureUsage(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("moneyez: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Message != "" {
			return env.apiError()
		}
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("moneyez: decode response: %w", err)
	}
	return nil
}

// Health checks the service and its dependencies. A degraded service
// answers 503 with the same body, which still decodes.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return HealthStatus{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("moneyez: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return HealthStatus{}, fmt.Errorf("moneyez: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var hs HealthStatus
	if err := json.Unmarshal(body, &hs); err != nil {
		return HealthStatus{}, fmt.Errorf("moneyez: decode response: %w", err)
	}
	return hs, nil
}
