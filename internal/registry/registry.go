// Package registry tracks which documents have already been ingested into
// the graph, giving ProcessDocument its idempotency. The default
// implementation is in-memory and engine-owned; tracking is lost across
// restarts unless the Postgres implementation is used.
package registry

import (
	"context"
	"sync"
)

// ProcessedDocuments records document ids that have completed ingestion.
type ProcessedDocuments interface {
	// Contains reports whether the document id has been recorded.
	Contains(ctx context.Context, documentID string) (bool, error)
	// Add records the document id.
	Add(ctx context.Context, documentID string) error
}

// Memory is a mutex-guarded in-memory ProcessedDocuments.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) Contains(_ context.Context, documentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[documentID]
	return ok, nil
}

func (m *Memory) Add(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[documentID] = struct{}{}
	return nil
}
