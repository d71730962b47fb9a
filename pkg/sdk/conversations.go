package moneyez

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ConversationService manages conversation thread registrations.
type ConversationService struct {
	c *Client
}

// Create registers a thread under the caller-provided id.
func (s *ConversationService) Create(ctx context.Context, id, title string) (_ Conversation, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("conversation.create", start, err) }()

	body, err := json.Marshal(struct {
		ConversationID string `json:"conversation_id"`
		Title          string `json:"title"`
	}{ConversationID: id, Title: title})
	if err != nil {
		return Conversation{}, fmt.Errorf("moneyez: encode request: %w", err)
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/api/conversations", bytes.NewReader(body), "application/json")
	if err != nil {
		return Conversation{}, err
	}

	var conv Conversation
	if err = s.c.doJSON(req, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Get fetches a thread by id.
func (s *ConversationService) Get(ctx context.Context, id string) (_ Conversation, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("conversation.get", start, err) }()

	req, err := s.c.newRequest(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, "")
	if err != nil {
		return Conversation{}, err
	}

	var conv Conversation
	if err = s.c.doJSON(req, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// List returns all registered threads in creation order.
func (s *ConversationService) List(ctx context.Context) (_ []Conversation, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("conversation.list", start, err) }()

	req, err := s.c.newRequest(ctx, http.MethodGet, "/api/conversations", nil, "")
	if err != nil {
		return nil, err
	}

	var convs []Conversation
	if err = s.c.doJSON(req, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// UpdateTitle renames a thread.
func (s *ConversationService) UpdateTitle(ctx context.Context, id, title string) (_ Conversation, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("conversation.update", start, err) }()

	body, err := json.Marshal(struct {
		Title string `json:"title"`
	}{Title: title})
	if err != nil {
		return Conversation{}, fmt.Errorf("moneyez: encode request: %w", err)
	}

	req, err := s.c.newRequest(ctx, http.MethodPut, "/api/conversations/"+url.PathEscape(id), bytes.NewReader(body), "application/json")
	if err != nil {
		return Conversation{}, err
	}

	var conv Conversation
	if err = s.c.doJSON(req, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Delete removes a thread and the agent's memory of it.
func (s *ConversationService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("conversation.delete", start, err) }()

	req, err := s.c.newRequest(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	return s.c.doJSON(req, nil)
}
