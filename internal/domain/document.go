package domain

import "time"

// DocumentInfo describes an uploaded knowledge document.
type DocumentInfo struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	ChunkCount  int
	CreatedAt   time.Time
}

// Chunk is one embedded fragment of a knowledge document.
type Chunk struct {
	ID           string
	DocumentID   string
	DocumentName string
	Content      string
	Metadata     map[string]string // loader-supplied metadata (source, page, ...)
	Vector       []float32         // not exposed to clients
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
