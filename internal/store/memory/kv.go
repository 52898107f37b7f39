package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
	page      bool      // written through Set, dropped by FlushPages
}

// Store is a TTL-aware key/value map. It serves as the page cache and as
// the ephemeral preview store when Redis is not configured.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore creates a store; defaultTTL applies to Set (0 = no expiry).
func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the value and whether it was present.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a rendered page with the default TTL.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.put(key, value, s.defaultTTL, true)
	return nil
}

// Save stores value with an explicit TTL.
func (s *Store) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.put(key, value, ttl, false)
	return nil
}

func (s *Store) put(key string, value []byte, ttl time.Duration, page bool) {
	v := make([]byte, len(value))
	copy(v, value)

	e := entry{value: v, page: page}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

// Load is Get under the preview store's name.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return s.Get(ctx, key)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored keys, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Sweep drops expired entries.
func (s *Store) Sweep(context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Remove is Delete under the preview store's name.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.Delete(ctx, key)
}

// FlushPages drops every cached page and reports how many there were.
// Preview drafts stored with Save survive.
func (s *Store) FlushPages(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if e.page {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}
