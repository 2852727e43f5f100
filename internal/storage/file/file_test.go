package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/storage"
)

func TestFileStoreSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := s.Load(ctx, "slot"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(ctx, "slot", []byte("one")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "slot", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Load(ctx, "slot")
	if err != nil || string(got) != "two" {
		t.Fatalf("load = %q, %v", got, err)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "nested"))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}

	if err := s.Delete(ctx, "slot"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "slot"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../escape", "a/b"} {
		if err := s.Save(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}
