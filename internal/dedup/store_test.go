package dedup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_MarkAndSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if store.Seen("msg-1") {
		t.Error("Seen() should be false for a new store")
	}

	if err := store.MarkProcessed("msg-1"); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	if !store.Seen("msg-1") {
		t.Error("Seen() should be true after MarkProcessed")
	}
	if store.Seen("msg-2") {
		t.Error("Seen() should be false for an unknown ID")
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestStore_MarkProcessed_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.MarkProcessed("msg-1"); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkProcessed("msg-1"); err != nil {
		t.Fatal(err)
	}

	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkProcessed("msg-1"); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkProcessed("msg-2"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() on existing file error = %v", err)
	}

	if !reopened.Seen("msg-1") || !reopened.Seen("msg-2") {
		t.Error("reopened store should contain previously processed IDs")
	}
	if reopened.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reopened.Count())
	}
}

func TestStore_Prune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	store.seen["old-1"] = time.Now().Add(-48 * time.Hour)
	store.seen["old-2"] = time.Now().Add(-25 * time.Hour)
	if err := store.MarkProcessed("fresh"); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	if removed != 2 {
		t.Errorf("Prune() removed = %d, want 2", removed)
	}
	if store.Seen("old-1") || store.Seen("old-2") {
		t.Error("pruned IDs should no longer be seen")
	}
	if !store.Seen("fresh") {
		t.Error("fresh ID should survive pruning")
	}
}

func TestNewStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path); err == nil {
		t.Error("NewStore() should fail on a corrupt file")
	}
}
