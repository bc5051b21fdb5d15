// Package cache holds short-lived copies of reconciled results.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Store is a TTL cache bounded by entry count. When full, the oldest
// inserted key is evicted.
type Store[V any] struct {
	entries map[string]entry[V]
	order   []string // insertion order for eviction
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
}

// NewStore creates a store. maxSize <= 0 means unbounded.
func NewStore[V any](maxSize int, ttl time.Duration) *Store[V] {
	return &Store[V]{
		entries: make(map[string]entry[V]),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value for key if present and unexpired
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !s.now().Before(e.expires) {
		s.remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous value
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		s.remove(key)
	}
	for s.maxSize > 0 && len(s.entries) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.entries, oldest)
		s.order = s.order[1:]
	}

	s.entries[key] = entry[V]{value: value, expires: s.now().Add(s.ttl)}
	s.order = append(s.order, key)
}

// Len returns the number of stored entries, expired ones included
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Purge drops every entry
func (s *Store[V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[V])
	s.order = nil
}

func (s *Store[V]) remove(key string) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
