// Package memory provides an in-process db.Store used by tests and by
// deployments that run without a Redis instance. Data does not survive a
// restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Flowzym/UpperWork-Navigator-sub000/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store is a map-backed db.Store guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Del removes a key. Deleting a missing key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Exists reports whether a key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

// Scan returns all keys matching the glob pattern. Only '*' wildcards are
// supported, which covers every pattern the repositories use.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if globMatch(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// globMatch matches '*' wildcards the way Redis SCAN does for the simple
// patterns used here.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
