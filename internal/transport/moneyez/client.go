package moneyez

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// headerExternalSecret authenticates this service to the MoneyEZ backend.
const headerExternalSecret = "X-External-Secret"

// maxBodyBytes caps how much of a backend response is read. The
// external-services endpoint returns small JSON documents.
const maxBodyBytes = 1 << 20

// Config holds MoneyEZ backend client settings.
type Config struct {
	// BaseURL is the external-services endpoint,
	// e.g. https://easymoney.anttravel.online/api/v1/external-services.
	BaseURL string
	Secret  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls the MoneyEZ main backend's external-services API. All
// operations go through one endpoint dispatched by the command query
// parameter, that is the backend's contract.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a MoneyEZ backend client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		secret:  cfg.Secret,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// dataEnvelope is the backend's response wrapper.
type dataEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

// GetSpendingModels fetches the spending model catalog.
// The command spelling get_speding_models is the backend's contract.
func (c *Client) GetSpendingModels(ctx context.Context) ([]domain.SpendingModel, error) {
	var env dataEnvelope
	if err := c.get(ctx, "command=get_speding_models", &env); err != nil {
		return nil, fmt.Errorf("get spending models: %w", err)
	}

	models := make([]domain.SpendingModel, 0, len(env.Data))
	for i, raw := range env.Data {
		var m domain.SpendingModel
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("get spending models: decode model %d: %w", i, err)
		}
		// Raw keeps every backend field for prompt rendering.
		m.Raw = raw
		models = append(models, m)
	}

	c.logger.Debug("fetched spending models", zap.Int("count", len(models)))
	return models, nil
}

// GetSubcategories fetches the spending subcategories of a user.
func (c *Client) GetSubcategories(ctx context.Context, userID string) ([]domain.Subcategory, error) {
	// The query parameter carries a literal user_id=<id> pair, only the
	// id itself gets escaped.
	rawQuery := "command=get_subcategories&query=user_id=" + url.QueryEscape(userID)

	var env struct {
		Data []domain.Subcategory `json:"data"`
	}
	if err := c.get(ctx, rawQuery, &env); err != nil {
		return nil, fmt.Errorf("get subcategories: %w", err)
	}

	c.logger.Debug("fetched subcategories",
		zap.String("user_id", userID),
		zap.Int("count", len(env.Data)))
	return env.Data, nil
}

// CreateTransaction posts an expense transaction. Amount and
// SubcategoryCode pass through as-is, null included, the backend
// accepts partial classifications.
func (c *Client) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	body := struct {
		Command string             `json:"command"`
		Data    domain.Transaction `json:"data"`
	}{
		Command: "create_transaction",
		Data:    tx,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("create transaction: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerExternalSecret, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("create transaction: %w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("create transaction: %w", domain.NewBackendStatusError(resp.StatusCode, string(respBody)))
	}

	c.logger.Debug("transaction created", zap.String("user_id", tx.UserID))
	return nil
}

func (c *Client) get(ctx context.Context, rawQuery string, out any) error {
	u := c.baseURL
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set(headerExternalSecret, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.NewBackendStatusError(resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrBackendUnavailable, err)
	}
	return nil
}
