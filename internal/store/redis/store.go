package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPageTTL bounds how long a rendered page may be served from cache
	DefaultPageTTL = 24 * time.Hour
	// DefaultPreviewTTL bounds the lifetime of an unsaved session draft
	DefaultPreviewTTL = time.Hour
)

// Store handles Redis operations for rendered pages and session previews
type Store struct {
	client  *redis.Client
	pageTTL time.Duration
}

// NewStore creates a new Redis store. pageTTL <= 0 uses DefaultPageTTL.
func NewStore(client *redis.Client, pageTTL time.Duration) *Store {
	if pageTTL <= 0 {
		pageTTL = DefaultPageTTL
	}
	return &Store{
		client:  client,
		pageTTL: pageTTL,
	}
}

// Ping reports whether Redis answers, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
