package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// chunkRecord is the stored form of a knowledge chunk.
type chunkRecord struct {
	ID           string
	DocumentID   string `badgerholdIndex:"DocumentID"`
	DocumentName string
	Content      string
	Metadata     map[string]string
	Vector       []float32
}

// documentRecord is the stored form of document metadata.
type documentRecord struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	ChunkCount  int
	CreatedAt   time.Time
}

// Badger is the embedded vector store persisted on disk.
// One logical collection, fixed vector dimensionality.
type Badger struct {
	store  *badgerhold.Store
	dim    int
	logger *zap.Logger
}

// OpenBadger opens (or creates) the store at path.
func OpenBadger(path string, dim int, logger *zap.Logger) (*Badger, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // badger's own logger is too chatty, zap covers ops logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	logger.Info("Vector store opened", zap.String("path", path), zap.Int("dim", dim))

	return &Badger{store: store, dim: dim, logger: logger}, nil
}

// UpsertChunks stores chunks with their vectors. Every vector must match
// the store dimensionality.
func (b *Badger) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Vector) != b.dim {
			return fmt.Errorf("%w: chunk %s has %d dims, store expects %d",
				domain.ErrVectorDimMismatch, c.ID, len(c.Vector), b.dim)
		}
	}
	for _, c := range chunks {
		rec := chunkToRecord(c)
		if err := b.store.Upsert(rec.ID, &rec); err != nil {
			return fmt.Errorf("failed to store chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// Search returns the top k chunks by cosine similarity, best first.
func (b *Badger) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != b.dim {
		return nil, fmt.Errorf("%w: query has %d dims, store expects %d",
			domain.ErrVectorDimMismatch, len(vector), b.dim)
	}

	var recs []chunkRecord
	if err := b.store.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	chunks := make([]domain.Chunk, len(recs))
	for i, rec := range recs {
		chunks[i] = recordToChunk(rec)
	}

	return rankChunks(vector, chunks, k), nil
}

// DeleteChunksByDocument removes all chunks of a document and returns how many were removed.
func (b *Badger) DeleteChunksByDocument(ctx context.Context, documentID string) (int, error) {
	var recs []chunkRecord
	if err := b.store.Find(&recs, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return 0, fmt.Errorf("failed to find chunks for document %s: %w", documentID, err)
	}

	for _, rec := range recs {
		if err := b.store.Delete(rec.ID, &chunkRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return 0, fmt.Errorf("failed to delete chunk %s: %w", rec.ID, err)
		}
	}
	return len(recs), nil
}

// SaveDocumentInfo stores document metadata.
func (b *Badger) SaveDocumentInfo(ctx context.Context, info domain.DocumentInfo) error {
	rec := documentToRecord(info)
	if err := b.store.Upsert(rec.ID, &rec); err != nil {
		return fmt.Errorf("failed to store document info %s: %w", info.ID, err)
	}
	return nil
}

// GetDocumentInfo returns document metadata by id.
func (b *Badger) GetDocumentInfo(ctx context.Context, id string) (domain.DocumentInfo, error) {
	var rec documentRecord
	if err := b.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.DocumentInfo{}, domain.ErrDocumentNotFound
		}
		return domain.DocumentInfo{}, fmt.Errorf("failed to get document info %s: %w", id, err)
	}
	return recordToDocument(rec), nil
}

// DeleteDocumentInfo removes document metadata by id.
func (b *Badger) DeleteDocumentInfo(ctx context.Context, id string) error {
	if err := b.store.Delete(id, &documentRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("failed to delete document info %s: %w", id, err)
	}
	return nil
}

// ListDocumentInfos returns all stored document metadata records.
func (b *Badger) ListDocumentInfos(ctx context.Context) ([]domain.DocumentInfo, error) {
	var recs []documentRecord
	if err := b.store.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("failed to list document infos: %w", err)
	}

	infos := make([]domain.DocumentInfo, len(recs))
	for i, rec := range recs {
		infos[i] = recordToDocument(rec)
	}
	return infos, nil
}

// ListChunkDocuments reconstructs document entries from chunk metadata.
// Size and content type are unknown at the chunk level.
func (b *Badger) ListChunkDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var recs []chunkRecord
	if err := b.store.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	return chunkDocuments(recs), nil
}

// CountChunks returns the number of stored chunks.
func (b *Badger) CountChunks(ctx context.Context) (int, error) {
	n, err := b.store.Count(&chunkRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}

// Ping verifies the store is open and readable.
func (b *Badger) Ping(ctx context.Context) error {
	if err := b.store.Badger().View(func(*badger.Txn) error { return nil }); err != nil {
		return fmt.Errorf("vector store unavailable: %w", err)
	}
	return nil
}

// RunGC reclaims badger value-log space. Safe to call while serving.
func (b *Badger) RunGC() {
	for {
		err := b.store.Badger().RunValueLogGC(0.5)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				b.logger.Warn("Vector store GC failed", zap.Error(err))
			}
			return
		}
		b.logger.Info("Vector store GC reclaimed a value log file")
	}
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	if b.store != nil {
		return b.store.Close() //nolint:wrapcheck // shutdown path
	}
	return nil
}

func chunkToRecord(c domain.Chunk) chunkRecord {
	return chunkRecord{
		ID:           c.ID,
		DocumentID:   c.DocumentID,
		DocumentName: c.DocumentName,
		Content:      c.Content,
		Metadata:     c.Metadata,
		Vector:       c.Vector,
	}
}

func recordToChunk(rec chunkRecord) domain.Chunk {
	return domain.Chunk{
		ID:           rec.ID,
		DocumentID:   rec.DocumentID,
		DocumentName: rec.DocumentName,
		Content:      rec.Content,
		Metadata:     rec.Metadata,
		Vector:       rec.Vector,
	}
}

func documentToRecord(info domain.DocumentInfo) documentRecord {
	return documentRecord{
		ID:          info.ID,
		Name:        info.Name,
		Size:        info.Size,
		ContentType: info.ContentType,
		ChunkCount:  info.ChunkCount,
		CreatedAt:   info.CreatedAt,
	}
}

func recordToDocument(rec documentRecord) domain.DocumentInfo {
	return domain.DocumentInfo{
		ID:          rec.ID,
		Name:        rec.Name,
		Size:        rec.Size,
		ContentType: rec.ContentType,
		ChunkCount:  rec.ChunkCount,
		CreatedAt:   rec.CreatedAt,
	}
}

// chunkDocuments folds chunk records into per-document entries.
func chunkDocuments(recs []chunkRecord) []domain.DocumentInfo {
	byID := make(map[string]*domain.DocumentInfo)
	order := make([]string, 0)

	for _, rec := range recs {
		if rec.DocumentID == "" || rec.DocumentName == "" {
			continue
		}
		info, ok := byID[rec.DocumentID]
		if !ok {
			info = &domain.DocumentInfo{
				ID:          rec.DocumentID,
				Name:        rec.DocumentName,
				Size:        0,
				ContentType: "unknown",
				CreatedAt:   time.Now(),
			}
			byID[rec.DocumentID] = info
			order = append(order, rec.DocumentID)
		}
		info.ChunkCount++
	}

	infos := make([]domain.DocumentInfo, 0, len(byID))
	for _, id := range order {
		infos = append(infos, *byID[id])
	}
	return infos
}
