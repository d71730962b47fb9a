package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Supported upload media types.
const (
	MIMEPDF  = "application/pdf"
	MIMEText = "text/plain"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEWord = "application/msword"
	MIMEHTML = "text/html"
)

// Loader extracts text from uploaded documents and splits it into
// retrieval-sized chunks.
type Loader struct {
	splitter textsplitter.RecursiveCharacter
	logger   *zap.Logger
}

// New creates a loader with the given chunking parameters.
func New(chunkSize, chunkOverlap int, logger *zap.Logger) *Loader {
	return &Loader{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		logger: logger,
	}
}

// Extract converts a document payload into ordered chunk texts.
// The media type selects the extraction path; unknown types return
// domain.ErrUnsupportedFileType.
func (l *Loader) Extract(ctx context.Context, data []byte, contentType string) ([]string, error) {
	var (
		docs []schema.Document
		err  error
	)

	switch contentType {
	case MIMEPDF:
		docs, err = documentloaders.NewPDF(bytes.NewReader(data), int64(len(data))).LoadAndSplit(ctx, l.splitter)
		if err != nil {
			return nil, fmt.Errorf("load pdf: %w", err)
		}
	case MIMEText:
		docs, err = documentloaders.NewText(bytes.NewReader(data)).LoadAndSplit(ctx, l.splitter)
		if err != nil {
			return nil, fmt.Errorf("load text: %w", err)
		}
	case MIMEDocx, MIMEWord:
		text, derr := extractDocx(data)
		if derr != nil {
			return nil, fmt.Errorf("load docx: %w", derr)
		}
		return l.splitText(text)
	case MIMEHTML:
		text, herr := extractHTML(bytes.NewReader(data))
		if herr != nil {
			return nil, fmt.Errorf("load html: %w", herr)
		}
		return l.splitText(text)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, contentType)
	}

	chunks := make([]string, 0, len(docs))
	for _, doc := range docs {
		chunks = append(chunks, doc.PageContent)
	}

	l.logger.Debug("Document split into chunks",
		zap.String("content_type", contentType),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func (l *Loader) splitText(text string) ([]string, error) {
	chunks, err := l.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	l.logger.Debug("Document split into chunks", zap.Int("chunks", len(chunks)))
	return chunks, nil
}
