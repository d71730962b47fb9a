package vectorstore

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

const testDim = 4

func mkChunk(id, docID, docName, content string, vec []float32) domain.Chunk {
	return domain.Chunk{
		ID:           id,
		DocumentID:   docID,
		DocumentName: docName,
		Content:      content,
		Vector:       vec,
	}
}

func openTestBadger(t *testing.T) *Badger {
	t.Helper()

	store, err := OpenBadger(t.TempDir(), testDim, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedKnowledge fills a store with three chunks across two documents.
func seedKnowledge(t *testing.T, ctx context.Context, store interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error
}) {
	t.Helper()

	chunks := []domain.Chunk{
		mkChunk("c1", "doc-1", "guide.pdf", "tiết kiệm là gì", []float32{1, 0, 0, 0}),
		mkChunk("c2", "doc-1", "guide.pdf", "đầu tư chứng khoán", []float32{0, 1, 0, 0}),
		mkChunk("c3", "doc-2", "faq.txt", "lãi suất ngân hàng", []float32{0, 0, 1, 0}),
	}
	if err := store.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("failed to seed chunks: %v", err)
	}
}
