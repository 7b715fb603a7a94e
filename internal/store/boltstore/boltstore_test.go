package boltstore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBoltstoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, "pending")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if ok, err := s.Contains(ctx, "X"); err != nil || ok {
		t.Fatalf("Contains(X) = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "X", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := s.Get(ctx, "X")
	if err != nil || !ok || value != "1" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}

	if err := s.Delete(ctx, "X"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Contains(ctx, "X"); ok {
		t.Fatalf("expected deleted")
	}
}

func TestBoltstoreIterateKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, "pending")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, "1"); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	seen := map[string]bool{}
	if err := s.IterateKeys(ctx, func(key string) error {
		seen[key] = true
		return nil
	}); err != nil {
		t.Fatalf("IterateKeys: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if !seen[k] {
			t.Fatalf("missing key %s in iteration", k)
		}
	}
}

func TestBoltstoreReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, "pending")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, "pending")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("Get after reopen = %q, %v, %v", value, ok, err)
	}
}
