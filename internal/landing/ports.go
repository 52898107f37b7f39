package landing

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// Repository persists landing pages. Finders return (nil, nil) when no row matches.
type Repository interface {
	FindByResourceID(ctx context.Context, resourceID int64) (*domain.LandingPage, error)
	FindByDoiPrefixAndSlug(ctx context.Context, doiPrefix, slug string) (*domain.LandingPage, error)
	// FindDraftByResourceAndSlug only matches pages without a DOI prefix.
	FindDraftByResourceAndSlug(ctx context.Context, resourceID int64, slug string) (*domain.LandingPage, error)
	SlugTaken(ctx context.Context, doiPrefix, slug string, excludeID int64) (bool, error)
	Insert(ctx context.Context, page *domain.LandingPage) error
	Update(ctx context.Context, page *domain.LandingPage) error
	Delete(ctx context.Context, id int64) error
	IncrementViewCount(ctx context.Context, id int64) error
}

// ResourceReader loads the owning resource. Returns (nil, nil) when absent.
type ResourceReader interface {
	GetResource(ctx context.Context, id int64) (*domain.Resource, error)
}

// Cache holds rendered public pages.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Notifier pushes metadata to the DOI registry. It never fails: every
// problem is reported in the outcome.
type Notifier interface {
	Sync(ctx context.Context, res *domain.Resource, page *domain.LandingPage) domain.SyncOutcome
}

// TemplateSet is the closed set of templates a page may use.
type TemplateSet interface {
	Lookup(name string) (domain.Template, bool)
	All() []domain.Template
}

// CacheKey is the one cache entry per resource.
func CacheKey(resourceID int64) string {
	return fmt.Sprintf("landing_page.%d", resourceID)
}
