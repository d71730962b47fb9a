package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Registry is the in-process conversation thread store.
type Registry struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conversations: make(map[string]domain.Conversation)}
}

// Create registers a new conversation under the provided id.
func (r *Registry) Create(ctx context.Context, id, title string) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; ok {
		return domain.Conversation{}, domain.ErrConversationExists
	}

	now := time.Now()
	conv := domain.Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.conversations[id] = conv
	return conv, nil
}

// Get returns a conversation by id.
func (r *Registry) Get(ctx context.Context, id string) (domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return conv, nil
}

// List returns all registered conversations.
func (r *Registry) List(ctx context.Context) ([]domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Conversation, 0, len(r.conversations))
	for _, conv := range r.conversations {
		out = append(out, conv)
	}
	return out, nil
}

// UpdateTitle changes the title (when non-nil) and bumps the update time.
func (r *Registry) UpdateTitle(ctx context.Context, id string, title *string) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}

	if title != nil {
		conv.Title = *title
	}
	conv.UpdatedAt = time.Now()
	r.conversations[id] = conv
	return conv, nil
}

// Delete removes a conversation by id.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return domain.ErrConversationNotFound
	}
	delete(r.conversations, id)
	return nil
}
