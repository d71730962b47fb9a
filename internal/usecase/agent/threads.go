package agent

import (
	"sync"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// Threads keeps per-conversation message history in memory, keyed by
// conversation id. History survives across turns within one process.
type Threads struct {
	mu      sync.RWMutex
	threads map[string][]domain.Message
}

// NewThreads creates an empty thread store.
func NewThreads() *Threads {
	return &Threads{threads: make(map[string][]domain.Message)}
}

// History returns a copy of the thread messages, oldest first.
func (t *Threads) History(conversationID string) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	msgs, ok := t.threads[conversationID]
	if !ok {
		return nil
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Put replaces the thread history.
func (t *Threads) Put(conversationID string, msgs []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := make([]domain.Message, len(msgs))
	copy(stored, msgs)
	t.threads[conversationID] = stored
}

// Drop removes a thread and its history.
func (t *Threads) Drop(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.threads, conversationID)
}

// Len reports how many threads are live.
func (t *Threads) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.threads)
}
