package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, "counter", []byte(`42`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "settings", []byte(`{"theme":"dark"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := store.Load(ctx, "counter")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "42" {
		t.Errorf("expected 42, got %s", data)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "counter" || keys[1] != "settings" {
		t.Errorf("expected sorted keys [counter settings], got %v", keys)
	}

	if err := store.Delete(ctx, "counter"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "counter"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte("original")
	if err := store.Save(ctx, "k", buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	buf[0] = 'X'

	data, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("stored data aliased the caller's buffer: %s", data)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Save(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	store.Close()

	if err := store.Save(ctx, "k", []byte("v")); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from Save, got %v", err)
	}
	if _, err := store.Load(ctx, "k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from Load, got %v", err)
	}
	if _, err := store.List(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from List, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed from Delete, got %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewFileStore(root)

	if err := store.Save(ctx, "app/counter", []byte(`7`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The key maps to a relative path under root.
	raw, err := os.ReadFile(filepath.Join(root, "app", "counter"))
	if err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	if string(raw) != "7" {
		t.Errorf("expected file content 7, got %s", raw)
	}

	data, err := store.Load(ctx, "app/counter")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "7" {
		t.Errorf("expected 7, got %s", data)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "app/counter" {
		t.Errorf("expected [app/counter], got %v", keys)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	if err := store.Save(ctx, "state", []byte("v1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "state", []byte("v2")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := store.Load(ctx, "state")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("expected v2, got %s", data)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreMissingRoot(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "never-created"))
	keys, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewFileStore(root)

	if err := store.Save(ctx, "app/state", []byte("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, "app/state"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "app")); !os.IsNotExist(err) {
		t.Error("expected the empty parent directory to be pruned")
	}

	// A second delete of the same key succeeds.
	if err := store.Delete(ctx, "app/state"); err != nil {
		t.Errorf("expected nil for a missing key, got %v", err)
	}
}

func TestFileStoreListSkipsDotfiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewFileStore(root)

	if err := store.Save(ctx, "visible", []byte("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".tmp-leftover"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "visible" {
		t.Errorf("expected [visible], got %v", keys)
	}
}
