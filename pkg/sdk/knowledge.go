package moneyez

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"
)

// KnowledgeService manages knowledge base documents.
type KnowledgeService struct {
	c *Client
}

// Upload indexes a document. Every call creates a new document with a
// fresh id, re-uploading a file name does not replace the earlier one.
func (s *KnowledgeService) Upload(ctx context.Context, filename string, data []byte, contentType string) (_ DocumentInfo, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("knowledge.upload", start, err) }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("moneyez: build upload: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return DocumentInfo{}, fmt.Errorf("moneyez: build upload: %w", err)
	}
	if err = mw.Close(); err != nil {
		return DocumentInfo{}, fmt.Errorf("moneyez: build upload: %w", err)
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/api/knowledge/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return DocumentInfo{}, err
	}

	var info DocumentInfo
	if err = s.c.doJSON(req, &info); err != nil {
		return DocumentInfo{}, err
	}
	return info, nil
}

// List returns all indexed documents.
func (s *KnowledgeService) List(ctx context.Context) (_ []DocumentSummary, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("knowledge.list", start, err) }()

	req, err := s.c.newRequest(ctx, http.MethodGet, "/api/knowledge/documents", nil, "")
	if err != nil {
		return nil, err
	}

	var env envelope
	if err = s.c.doJSON(req, &env); err != nil {
		return nil, err
	}
	if env.Status != http.StatusOK {
		err = env.apiError()
		return nil, err
	}

	var docs []DocumentSummary
	if err = json.Unmarshal(env.Data, &docs); err != nil {
		return nil, fmt.Errorf("moneyez: decode response: %w", err)
	}
	return docs, nil
}

// Delete removes a document and its indexed chunks.
func (s *KnowledgeService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("knowledge.delete", start, err) }()

	req, err := s.c.newRequest(ctx, http.MethodDelete, "/api/knowledge/delete/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	return s.c.doJSON(req, nil)
}
