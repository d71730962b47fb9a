package moneyez

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	secret     string
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithExternalSecret sets the X-External-Secret header sent with every
// request. Required for the chat routes.
func WithExternalSecret(secret string) Option {
	return optionFunc(func(c *clientConfig) {
		c.secret = secret
	})
}

// WithHTTPClient replaces the default HTTP client. Chat turns can take
// minutes when the agent round-trips through tools, pick the timeout
// accordingly.
func WithHTTPClient(h *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = h
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
