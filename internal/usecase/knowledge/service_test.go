package knowledge

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// --- Mocks ---

type mockExtractor struct {
	texts []string
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, _ []byte, _ string) ([]string, error) {
	return m.texts, m.err
}

type mockEmbedder struct {
	vec      []float32
	batch    [][]float32
	embedErr error
	batchErr error

	batchCalls [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.embedErr != nil {
		return domain.EmbeddingResult{}, m.embedErr
	}
	return domain.EmbeddingResult{Embedding: m.vec, PromptTokens: 4}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls = append(m.batchCalls, texts)
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	return domain.BatchEmbeddingResult{Embeddings: m.batch, PromptTokens: 10}, nil
}

type mockStore struct {
	upsertErr    error
	searchResult []domain.ScoredChunk
	searchErr    error
	deleteCount  int
	deleteErr    error
	saveErr      error
	getInfo      domain.DocumentInfo
	getErr       error
	infoDelErr   error
	infos        []domain.DocumentInfo
	listInfosErr error
	chunkDocs    []domain.DocumentInfo
	listChunkErr error

	storedChunks []domain.Chunk
	savedInfo    domain.DocumentInfo
	deletedDoc   string
	deletedInfo  string
	searchVector []float32
	searchK      int
}

func (m *mockStore) UpsertChunks(_ context.Context, chunks []domain.Chunk) error {
	m.storedChunks = chunks
	return m.upsertErr
}

func (m *mockStore) Search(_ context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	m.searchVector = vector
	m.searchK = k
	return m.searchResult, m.searchErr
}

func (m *mockStore) DeleteChunksByDocument(_ context.Context, documentID string) (int, error) {
	m.deletedDoc = documentID
	return m.deleteCount, m.deleteErr
}

func (m *mockStore) SaveDocumentInfo(_ context.Context, info domain.DocumentInfo) error {
	m.savedInfo = info
	return m.saveErr
}

func (m *mockStore) GetDocumentInfo(_ context.Context, _ string) (domain.DocumentInfo, error) {
	return m.getInfo, m.getErr
}

func (m *mockStore) DeleteDocumentInfo(_ context.Context, id string) error {
	m.deletedInfo = id
	return m.infoDelErr
}

func (m *mockStore) ListDocumentInfos(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.infos, m.listInfosErr
}

func (m *mockStore) ListChunkDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.chunkDocs, m.listChunkErr
}

func newService(ext *mockExtractor, emb *mockEmbedder, store *mockStore) *Service {
	return New(ext, emb, store, zap.NewNop())
}

// --- Upload ---

func TestUpload(t *testing.T) {
	ext := &mockExtractor{texts: []string{"quỹ khẩn cấp là gì", "nên để dành 3-6 tháng chi tiêu"}}
	emb := &mockEmbedder{batch: [][]float32{{0.1, 0.2}, {0.3, 0.4}}}
	store := &mockStore{}
	svc := newService(ext, emb, store)

	info, err := svc.Upload(context.Background(), "guide.pdf", []byte("raw pdf bytes"), "application/pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if info.ID == "" {
		t.Error("expected a generated document id")
	}
	if info.Name != "guide.pdf" {
		t.Errorf("Name = %q, want guide.pdf", info.Name)
	}
	if info.Size != int64(len("raw pdf bytes")) {
		t.Errorf("Size = %d, want %d", info.Size, len("raw pdf bytes"))
	}
	if info.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", info.ContentType)
	}
	if info.ChunkCount != 2 {
		t.Errorf("ChunkCount = %d, want 2", info.ChunkCount)
	}
	if info.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	if len(store.storedChunks) != 2 {
		t.Fatalf("stored %d chunks, want 2", len(store.storedChunks))
	}
	for i, c := range store.storedChunks {
		if c.DocumentID != info.ID {
			t.Errorf("chunk %d DocumentID = %q, want %q", i, c.DocumentID, info.ID)
		}
		if c.DocumentName != "guide.pdf" {
			t.Errorf("chunk %d DocumentName = %q", i, c.DocumentName)
		}
		if c.ID == "" {
			t.Errorf("chunk %d missing id", i)
		}
	}
	if store.storedChunks[0].Content != "quỹ khẩn cấp là gì" {
		t.Errorf("chunk 0 content = %q", store.storedChunks[0].Content)
	}
	if store.savedInfo.ID != info.ID {
		t.Errorf("saved info id = %q, want %q", store.savedInfo.ID, info.ID)
	}
}

func TestUpload_EmptyDocument(t *testing.T) {
	ext := &mockExtractor{texts: nil}
	emb := &mockEmbedder{}
	store := &mockStore{}
	svc := newService(ext, emb, store)

	info, err := svc.Upload(context.Background(), "empty.txt", nil, "text/plain")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if info.ChunkCount != 0 {
		t.Errorf("ChunkCount = %d, want 0", info.ChunkCount)
	}
	if len(emb.batchCalls) != 0 {
		t.Error("embedder should not be called for an empty document")
	}
	if store.storedChunks != nil {
		t.Error("no chunks should be stored for an empty document")
	}
	if store.savedInfo.ID != info.ID {
		t.Error("document info should still be saved")
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	ext := &mockExtractor{err: domain.ErrUnsupportedFileType}
	svc := newService(ext, &mockEmbedder{}, &mockStore{})

	_, err := svc.Upload(context.Background(), "data.bin", []byte{1}, "application/octet-stream")
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Errorf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestUpload_EmbedError(t *testing.T) {
	ext := &mockExtractor{texts: []string{"chunk"}}
	emb := &mockEmbedder{batchErr: domain.ErrRateLimited}
	store := &mockStore{}
	svc := newService(ext, emb, store)

	_, err := svc.Upload(context.Background(), "doc.txt", []byte("x"), "text/plain")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if store.storedChunks != nil {
		t.Error("no chunks should be stored when vectorization fails")
	}
}

func TestUpload_VectorCountMismatch(t *testing.T) {
	ext := &mockExtractor{texts: []string{"a", "b"}}
	emb := &mockEmbedder{batch: [][]float32{{0.1}}}
	svc := newService(ext, emb, &mockStore{})

	_, err := svc.Upload(context.Background(), "doc.txt", []byte("x"), "text/plain")
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

// --- List ---

func TestList_MetadataWinsOverChunks(t *testing.T) {
	store := &mockStore{
		infos: []domain.DocumentInfo{
			{ID: "doc-1", Name: "guide.pdf", Size: 2048, ContentType: "application/pdf", ChunkCount: 4},
		},
		chunkDocs: []domain.DocumentInfo{
			{ID: "doc-1", Name: "guide.pdf", Size: 0, ContentType: "unknown", ChunkCount: 4},
			{ID: "doc-2", Name: "notes.txt", Size: 0, ContentType: "unknown", ChunkCount: 1},
		},
	}
	svc := newService(&mockExtractor{}, &mockEmbedder{}, store)

	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "doc-1" || docs[0].Size != 2048 || docs[0].ContentType != "application/pdf" {
		t.Errorf("doc-1 should come from the metadata record, got %+v", docs[0])
	}
	if docs[1].ID != "doc-2" || docs[1].ContentType != "unknown" {
		t.Errorf("doc-2 should be reconstructed from chunks, got %+v", docs[1])
	}
}

func TestList_Empty(t *testing.T) {
	svc := newService(&mockExtractor{}, &mockEmbedder{}, &mockStore{})

	docs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d documents, want 0", len(docs))
	}
}

// --- Delete ---

func TestDelete(t *testing.T) {
	store := &mockStore{
		getInfo:     domain.DocumentInfo{ID: "doc-1", Name: "guide.pdf"},
		deleteCount: 3,
	}
	svc := newService(&mockExtractor{}, &mockEmbedder{}, store)

	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.deletedDoc != "doc-1" {
		t.Errorf("deleted chunks for %q, want doc-1", store.deletedDoc)
	}
	if store.deletedInfo != "doc-1" {
		t.Errorf("deleted info for %q, want doc-1", store.deletedInfo)
	}
}

func TestDelete_NotFound(t *testing.T) {
	store := &mockStore{getErr: domain.ErrDocumentNotFound}
	svc := newService(&mockExtractor{}, &mockEmbedder{}, store)

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if store.deletedDoc != "" {
		t.Error("chunks should not be touched when the document is unknown")
	}
}

func TestDelete_NoChunks(t *testing.T) {
	store := &mockStore{
		getInfo:     domain.DocumentInfo{ID: "doc-1"},
		deleteCount: 0,
	}
	svc := newService(&mockExtractor{}, &mockEmbedder{}, store)

	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Errorf("a document without chunks should still be deletable, got %v", err)
	}
}

// --- Query ---

func TestQuery(t *testing.T) {
	want := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "c1", Content: "tiết kiệm 20% thu nhập"}, Score: 0.91},
	}
	emb := &mockEmbedder{vec: []float32{0.5, 0.5}}
	store := &mockStore{searchResult: want}
	svc := newService(&mockExtractor{}, emb, store)

	got, err := svc.Query(context.Background(), "tiết kiệm")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ID != "c1" {
		t.Errorf("unexpected result: %+v", got)
	}
	if store.searchK != 3 {
		t.Errorf("searched with k=%d, want default 3", store.searchK)
	}
	if len(store.searchVector) != 2 {
		t.Errorf("search vector = %v", store.searchVector)
	}
}

func TestQuery_TopKOverride(t *testing.T) {
	store := &mockStore{}
	svc := newService(&mockExtractor{}, &mockEmbedder{vec: []float32{1}}, store).WithTopK(5)

	if _, err := svc.Query(context.Background(), "q"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.searchK != 5 {
		t.Errorf("searched with k=%d, want 5", store.searchK)
	}
}

func TestQuery_EmbedError(t *testing.T) {
	emb := &mockEmbedder{embedErr: domain.ErrModelUnavailable}
	svc := newService(&mockExtractor{}, emb, &mockStore{})

	_, err := svc.Query(context.Background(), "q")
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}
