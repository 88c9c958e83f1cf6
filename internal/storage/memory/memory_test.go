package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/goodtune/studytime/internal/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := s.Get(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("expected v, got %q (%v)", value, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
