package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Service manages the knowledge base: document ingestion, listing,
// deletion and similarity search over stored chunks.
type Service struct {
	extractor Extractor
	embedder  Embedder
	store     Store
	logger    *zap.Logger
	topK      int
}

// New creates a knowledge service.
func New(extractor Extractor, embedder Embedder, store Store, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		logger:    logger,
		topK:      3,
	}
}

// WithTopK configures how many chunks a query returns.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Upload ingests a document: extracts text, splits it into chunks,
// vectorizes them and persists everything under a fresh document id.
func (s *Service) Upload(ctx context.Context, name string, data []byte, contentType string) (domain.DocumentInfo, error) {
	texts, err := s.extractor.Extract(ctx, data, contentType)
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("extract document: %w", err)
	}

	id := uuid.NewString()

	if len(texts) > 0 {
		batch, embErr := s.embedder.BatchEmbed(ctx, texts)
		if embErr != nil {
			return domain.DocumentInfo{}, fmt.Errorf("vectorize chunks: %w", embErr)
		}
		domain.UsageFromContext(ctx).AddTokens(batch.PromptTokens, 0)

		if len(batch.Embeddings) != len(texts) {
			return domain.DocumentInfo{}, fmt.Errorf(
				"embedder returned %d vectors for %d chunks: %w",
				len(batch.Embeddings), len(texts), domain.ErrModelUnavailable,
			)
		}

		chunks := make([]domain.Chunk, len(texts))
		for i, text := range texts {
			chunks[i] = domain.Chunk{
				ID:           uuid.NewString(),
				DocumentID:   id,
				DocumentName: name,
				Content:      text,
				Vector:       batch.Embeddings[i],
			}
		}
		if err := s.store.UpsertChunks(ctx, chunks); err != nil {
			return domain.DocumentInfo{}, fmt.Errorf("store chunks: %w", err)
		}
	}

	info := domain.DocumentInfo{
		ID:          id,
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		ChunkCount:  len(texts),
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveDocumentInfo(ctx, info); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("store document info: %w", err)
	}

	s.logger.Info("Document ingested",
		zap.String("document_id", id),
		zap.String("name", name),
		zap.String("content_type", contentType),
		zap.Int("chunks", len(texts)))

	return info, nil
}

// List returns every known document. Documents that only exist as
// chunks (no metadata record) are reconstructed from chunk data; when
// both sources know a document, the metadata record wins.
func (s *Service) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	infos, err := s.store.ListDocumentInfos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list document infos: %w", err)
	}
	chunkDocs, err := s.store.ListChunkDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunk documents: %w", err)
	}

	seen := make(map[string]struct{}, len(infos))
	merged := make([]domain.DocumentInfo, 0, len(infos)+len(chunkDocs))
	for _, info := range infos {
		seen[info.ID] = struct{}{}
		merged = append(merged, info)
	}
	for _, doc := range chunkDocs {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		merged = append(merged, doc)
	}
	return merged, nil
}

// Delete removes a document and all of its chunks.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetDocumentInfo(ctx, id); err != nil {
		return fmt.Errorf("get document info: %w", err)
	}

	removed, err := s.store.DeleteChunksByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.store.DeleteDocumentInfo(ctx, id); err != nil {
		return fmt.Errorf("delete document info: %w", err)
	}

	s.logger.Info("Document deleted",
		zap.String("document_id", id),
		zap.Int("chunks_removed", removed))
	return nil
}

// Query vectorizes the query text and returns the closest chunks,
// best match first.
func (s *Service) Query(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.PromptTokens, 0)

	chunks, err := s.store.Search(ctx, res.Embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return chunks, nil
}
