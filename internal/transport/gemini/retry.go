package gemini

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls backoff when the Gemini API returns rate limit errors.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns backoff settings tuned for interactive chat.
// Callers waiting on an HTTP response cannot absorb multi-minute waits.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return RetryConfig{
		MaxRetries:        maxRetries,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryDelayRegex matches the retry hint Gemini embeds in 429 responses,
// either as prose ("Please retry in 7.5s") or as the retryDelay field of
// the error detail ("retryDelay: 7s").
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// IsRateLimitError reports whether err is a Gemini quota or rate limit error.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// ExtractRetryDelay pulls the API-suggested delay out of a rate limit error.
// Returns zero when the error carries no hint.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0
	}
	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// CalculateBackoff computes the wait before retry attempt (0-based).
// When the API suggested a delay the base is that delay plus a safety
// margin, otherwise the configured initial backoff. The base grows by
// the multiplier per attempt and is capped at MaxBackoff.
func (rc RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := rc.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}

	backoff := float64(base)
	for i := 0; i < attempt; i++ {
		backoff *= rc.BackoffMultiplier
	}

	d := time.Duration(backoff)
	if d > rc.MaxBackoff {
		d = rc.MaxBackoff
	}
	return d
}
