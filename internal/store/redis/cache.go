package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Get returns a rendered page. A missing key is a miss, not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, PageKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to get cached page: %w", err)
	}
	return data, true, nil
}

// Set stores a rendered page with the store's page TTL
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, PageKey(key), value, s.pageTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// Delete evicts a rendered page
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, PageKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to evict page: %w", err)
	}
	return nil
}

// FlushPages removes every rendered page, used after a template reload
// changes how pages look.
func (s *Store) FlushPages(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixPage+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("failed to delete page key: %w", err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("failed to flush pages: %w", err)
	}
	return n, nil
}

// Save stores a session preview draft
func (s *Store) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

// Load returns a session preview draft
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load preview: %w", err)
	}
	return data, true, nil
}

// Remove drops a session preview draft
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to remove preview: %w", err)
	}
	return nil
}
