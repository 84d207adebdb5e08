package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var errClosed = errors.New("store closed")

// MemoryStore is an in-process Store. Data is lost on Close.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, unavailable("get", key, err, "context")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, unavailable("get", key, errClosed, "memory")
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set", key, err, "context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return unavailable("set", key, errClosed, "memory")
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("remove", key, err, "context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return unavailable("remove", key, errClosed, "memory")
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, unavailable("keys", "", errClosed, "memory")
	}
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}
