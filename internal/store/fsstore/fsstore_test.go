package fsstore

import (
	"context"
	"testing"
)

func TestFsstoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if ok, err := s.Contains(ctx, "missing"); err != nil || ok {
		t.Fatalf("Contains(missing) = %v, %v", ok, err)
	}

	if err := s.Set(ctx, "2006/10/11/123", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ok, err := s.Contains(ctx, "2006/10/11/123"); err != nil || !ok {
		t.Fatalf("Contains = %v, %v", ok, err)
	}
	value, ok, err := s.Get(ctx, "2006/10/11/123")
	if err != nil || !ok || value != "1" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}

	var keys []string
	if err := s.IterateKeys(ctx, func(key string) error {
		keys = append(keys, key)
		return nil
	}); err != nil {
		t.Fatalf("IterateKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "2006/10/11/123" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := s.Delete(ctx, "2006/10/11/123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Contains(ctx, "2006/10/11/123"); ok {
		t.Fatalf("expected key deleted")
	}
	if err := s.Delete(ctx, "2006/10/11/123"); err != nil {
		t.Fatalf("Delete of already-absent key should not error: %v", err)
	}
}

func TestFsstoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Set(ctx, "k", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", "2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || value != "2" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}
}
