package knowledge

import (
	"context"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Extractor turns an uploaded document into ordered chunk texts.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) ([]string, error)
}

// Embedder vectorizes chunk texts and search queries.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Store persists chunks with their vectors plus per-document metadata.
type Store interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID string) (int, error)
	SaveDocumentInfo(ctx context.Context, info domain.DocumentInfo) error
	GetDocumentInfo(ctx context.Context, id string) (domain.DocumentInfo, error)
	DeleteDocumentInfo(ctx context.Context, id string) error
	ListDocumentInfos(ctx context.Context) ([]domain.DocumentInfo, error)
	ListChunkDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
}
