package moneyez

import (
	"fmt"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnauthorized         = domain.ErrUnauthorized
	ErrInvalidRequest       = domain.ErrInvalidPayload
	ErrConversationNotFound = domain.ErrConversationNotFound
	ErrConversationExists   = domain.ErrConversationExists
	ErrDocumentNotFound     = domain.ErrDocumentNotFound
)

// APIError is a service failure decoded from the response envelope.
type APIError struct {
	Status  int    // envelope status, mirrors the HTTP status class
	Code    string // machine-readable error code, e.g. DOCUMENT_NOT_FOUND
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("moneyez: %s (%s)", e.Message, e.Code)
	}
	return "moneyez: " + e.Message
}

// Unwrap maps the wire code onto a sentinel so errors.Is works across
// the HTTP boundary.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "UNAUTHORIZED":
		return ErrUnauthorized
	case "INVALID_REQUEST", "INVALID_JSON":
		return ErrInvalidRequest
	case "CONVERSATION_NOT_FOUND":
		return ErrConversationNotFound
	case "CONVERSATION_EXISTS":
		return ErrConversationExists
	case "DOCUMENT_NOT_FOUND":
		return ErrDocumentNotFound
	default:
		return nil
	}
}
