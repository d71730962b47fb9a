package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	created, err := r.Create(ctx, "conv-1", "Ngân sách tháng 8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "conv-1" || created.Title != "Ngân sách tháng 8" {
		t.Errorf("unexpected conversation: %+v", created)
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("expected created_at == updated_at on create, got %+v", created)
	}

	got, err := r.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected round trip, got %+v", got)
	}
}

func TestRegistry_CreateDuplicate(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	if _, err := r.Create(ctx, "conv-1", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := r.Create(ctx, "conv-1", "b")
	if !errors.Is(err, domain.ErrConversationExists) {
		t.Errorf("expected ErrConversationExists, got %v", err)
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestRegistry_UpdateTitle(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	created, err := r.Create(ctx, "conv-1", "old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title := "new"
	updated, err := r.UpdateTitle(ctx, "conv-1", &title)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "new" {
		t.Errorf("expected updated title, got %q", updated.Title)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("expected updated_at bump")
	}

	// nil title keeps the old one but still bumps updated_at
	kept, err := r.UpdateTitle(ctx, "conv-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kept.Title != "new" {
		t.Errorf("expected title unchanged for nil update, got %q", kept.Title)
	}

	_, err = r.UpdateTitle(ctx, "missing", &title)
	if !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	if _, err := r.Create(ctx, "conv-1", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Delete(ctx, "conv-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Delete(ctx, "conv-1"); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list after delete, got %d", len(list))
	}
}
