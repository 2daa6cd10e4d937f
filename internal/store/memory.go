package store

import (
	"context"
	"sync"

	"sealedstate/internal/domain"
)

// Memory is a KeyedStore held in process memory.
type Memory struct {
	mu sync.RWMutex
	m  map[domain.UserAddress][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[domain.UserAddress][]byte)}
}

// Get returns a copy of the value stored under addr.
func (s *Memory) Get(_ context.Context, addr domain.UserAddress) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[addr]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put stores a copy of value under addr.
func (s *Memory) Put(_ context.Context, addr domain.UserAddress, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[addr] = append([]byte(nil), value...)
	return nil
}

// Len returns the number of stored addresses.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

var _ domain.KeyedStore = (*Memory)(nil)
