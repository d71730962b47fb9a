package suggestion

import (
	"context"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// ModelCatalog provides the spending model catalog of the MoneyEZ backend.
type ModelCatalog interface {
	GetSpendingModels(ctx context.Context) ([]domain.SpendingModel, error)
}

// Generator runs a single chat model invocation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error)
}
