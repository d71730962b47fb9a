package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Memory is an in-process vector store with the same semantics as Badger.
// Backs tests and ephemeral local runs.
type Memory struct {
	mu     sync.RWMutex
	dim    int
	chunks map[string]domain.Chunk
	infos  map[string]domain.DocumentInfo
}

// NewMemory creates an empty in-memory store.
func NewMemory(dim int) *Memory {
	return &Memory{
		dim:    dim,
		chunks: make(map[string]domain.Chunk),
		infos:  make(map[string]domain.DocumentInfo),
	}
}

// UpsertChunks stores chunks with their vectors.
func (m *Memory) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Vector) != m.dim {
			return fmt.Errorf("%w: chunk %s has %d dims, store expects %d",
				domain.ErrVectorDimMismatch, c.ID, len(c.Vector), m.dim)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

// Search returns the top k chunks by cosine similarity, best first.
func (m *Memory) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dims, store expects %d",
			domain.ErrVectorDimMismatch, len(vector), m.dim)
	}

	m.mu.RLock()
	chunks := make([]domain.Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		chunks = append(chunks, c)
	}
	m.mu.RUnlock()

	return rankChunks(vector, chunks, k), nil
}

// DeleteChunksByDocument removes all chunks of a document and returns how many were removed.
func (m *Memory) DeleteChunksByDocument(ctx context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, c := range m.chunks {
		if c.DocumentID == documentID {
			delete(m.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

// SaveDocumentInfo stores document metadata.
func (m *Memory) SaveDocumentInfo(ctx context.Context, info domain.DocumentInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos[info.ID] = info
	return nil
}

// GetDocumentInfo returns document metadata by id.
func (m *Memory) GetDocumentInfo(ctx context.Context, id string) (domain.DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.infos[id]
	if !ok {
		return domain.DocumentInfo{}, domain.ErrDocumentNotFound
	}
	return info, nil
}

// DeleteDocumentInfo removes document metadata by id.
func (m *Memory) DeleteDocumentInfo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.infos[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.infos, id)
	return nil
}

// ListDocumentInfos returns all stored document metadata records.
func (m *Memory) ListDocumentInfos(ctx context.Context) ([]domain.DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]domain.DocumentInfo, 0, len(m.infos))
	for _, info := range m.infos {
		infos = append(infos, info)
	}
	return infos, nil
}

// ListChunkDocuments reconstructs document entries from chunk metadata.
func (m *Memory) ListChunkDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := make(map[string]*domain.DocumentInfo)
	for _, c := range m.chunks {
		if c.DocumentID == "" || c.DocumentName == "" {
			continue
		}
		info, ok := byID[c.DocumentID]
		if !ok {
			info = &domain.DocumentInfo{
				ID:          c.DocumentID,
				Name:        c.DocumentName,
				Size:        0,
				ContentType: "unknown",
				CreatedAt:   time.Now(),
			}
			byID[c.DocumentID] = info
		}
		info.ChunkCount++
	}

	infos := make([]domain.DocumentInfo, 0, len(byID))
	for _, info := range byID {
		infos = append(infos, *info)
	}
	return infos, nil
}

// CountChunks returns the number of stored chunks.
func (m *Memory) CountChunks(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }
