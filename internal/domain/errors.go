package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload signals a malformed request body.
	ErrInvalidPayload = errors.New("invalid request format")
	// ErrUnauthorized signals a missing or invalid shared secret.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConversationNotFound signals a missing conversation thread.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrConversationExists signals a duplicate conversation id.
	ErrConversationExists = errors.New("conversation already exists")
	// ErrDocumentNotFound signals a missing knowledge document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUnsupportedFileType signals a document type the loader cannot handle.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrModelUnavailable signals a model provider failure.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrBackendUnavailable signals a MoneyEZ backend failure.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNoSpendingModels signals an empty spending model catalog.
	ErrNoSpendingModels = errors.New("no spending models available")
	// ErrNoQAPairs signals a profile questionnaire without usable answers.
	ErrNoQAPairs = errors.New("no valid question answer pairs")
)

// BackendStatusError wraps ErrBackendUnavailable with the upstream HTTP status.
type BackendStatusError struct {
	StatusCode int
	Body       string
}

func (e *BackendStatusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrBackendUnavailable.Error(), e.StatusCode)
}

func (e *BackendStatusError) Unwrap() error { return ErrBackendUnavailable }

// NewBackendStatusError creates a backend status error.
func NewBackendStatusError(statusCode int, body string) error {
	return &BackendStatusError{StatusCode: statusCode, Body: body}
}
