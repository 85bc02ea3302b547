// Package store provides Backend implementations.
package store

import (
	"context"
	"sync"
)

// =============================================================================
// MEMORY BACKEND - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{documents: make(map[string][]byte)}
}

// Load returns the latest saved document, or (nil, nil) for a collection
// that has never been written.
func (m *Memory) Load(_ context.Context, collection string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[collection]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

// Save replaces the collection's document wholesale.
func (m *Memory) Save(_ context.Context, collection string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(doc))
	copy(stored, doc)
	m.documents[collection] = stored
	return nil
}
