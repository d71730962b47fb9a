package agent

import (
	"context"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Generator runs a single chat model invocation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error)
}

// Streamer runs a chat model invocation streaming text deltas.
type Streamer interface {
	GenerateStream(ctx context.Context, req domain.GenerateRequest, stream domain.StreamFunc) (*domain.GenerateResult, error)
}

// Retriever searches the knowledge base for chunks relevant to a query.
type Retriever interface {
	Query(ctx context.Context, query string) ([]domain.ScoredChunk, error)
}

// Backend is the MoneyEZ main service as seen by the expense tool.
type Backend interface {
	GetSubcategories(ctx context.Context, userID string) ([]domain.Subcategory, error)
	CreateTransaction(ctx context.Context, tx domain.Transaction) error
}
