// Package memory provides process-local implementations of the storage ports.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// SlotStore is a map-backed ports.SlotStore. Contents are lost on restart,
// which makes it the storage.driver for tests and throwaway runs.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

var _ ports.SlotStore = (*SlotStore)(nil)

// NewSlotStore creates an empty slot store.
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.slots[key]
	if !ok {
		return nil, domain.NewNotFoundError("slot", key)
	}

	return bytes.Clone(v), nil
}

// Put stores a copy of value.
func (s *SlotStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = bytes.Clone(value)

	return nil
}

// Delete removes key if present.
func (s *SlotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)

	return nil
}
