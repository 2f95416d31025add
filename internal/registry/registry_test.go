package registry

import (
	"context"
	"testing"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	seen, err := m.Contains(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if seen {
		t.Error("empty registry reported doc-1 as processed")
	}

	if err := m.Add(ctx, "doc-1"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// Re-adding is a no-op.
	if err := m.Add(ctx, "doc-1"); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}

	seen, err = m.Contains(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Contains() error = %v", err)
	}
	if !seen {
		t.Error("registry lost doc-1 after Add")
	}

	seen, _ = m.Contains(ctx, "doc-2")
	if seen {
		t.Error("registry reported unknown doc-2 as processed")
	}
}
