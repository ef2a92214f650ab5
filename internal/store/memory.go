package store

import (
	"context"
	"sync"
)

// MemoryStore keeps tokens for the lifetime of the process only.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[Kind]string
}

var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[Kind]string)}
}

func (s *MemoryStore) Token(_ context.Context, kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tokens[kind]
	if !ok {
		return "", ErrNoToken
	}
	return v, nil
}

func (s *MemoryStore) SetToken(_ context.Context, kind Kind, value string) error {
	if err := checkSet(kind, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[kind] = value
	return nil
}

func (s *MemoryStore) ClearToken(_ context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, kind)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
