package docstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Store resolves document metadata by id.
type Store interface {
	Title(ctx context.Context, documentID string) (string, error)
}

// Memory is a map-backed Store.
type Memory struct {
	mu     sync.RWMutex
	titles map[string]string
}

func NewMemory() *Memory {
	return &Memory{titles: make(map[string]string)}
}

// Put creates or renames a document.
func (m *Memory) Put(documentID, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles[documentID] = title
}

func (m *Memory) Title(_ context.Context, documentID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title, ok := m.titles[documentID]
	if !ok {
		return "", ErrNotFound
	}
	return title, nil
}
