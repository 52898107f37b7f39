// Package memory provides in-process implementations of the landing page
// repository, the resource reader and the key/value stores. They back the
// service when Redis is not configured and every unit test.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// LandingPages is an in-memory landing page repository.
type LandingPages struct {
	mu     sync.RWMutex
	pages  map[int64]*domain.LandingPage // ID -> page
	nextID int64
	now    func() time.Time
}

func NewLandingPages() *LandingPages {
	return &LandingPages{
		pages: make(map[int64]*domain.LandingPage),
		now:   time.Now,
	}
}

func clonePage(p *domain.LandingPage) *domain.LandingPage {
	c := *p
	if p.FtpURL != nil {
		v := *p.FtpURL
		c.FtpURL = &v
	}
	if p.DoiPrefix != nil {
		v := *p.DoiPrefix
		c.DoiPrefix = &v
	}
	if p.PublishedAt != nil {
		v := *p.PublishedAt
		c.PublishedAt = &v
	}
	return &c
}

func (s *LandingPages) find(match func(p *domain.LandingPage) bool) *domain.LandingPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.pages {
		if match(p) {
			return clonePage(p)
		}
	}
	return nil
}

func (s *LandingPages) FindByResourceID(_ context.Context, resourceID int64) (*domain.LandingPage, error) {
	return s.find(func(p *domain.LandingPage) bool { return p.ResourceID == resourceID }), nil
}

func (s *LandingPages) FindByDoiPrefixAndSlug(_ context.Context, doiPrefix, slug string) (*domain.LandingPage, error) {
	return s.find(func(p *domain.LandingPage) bool {
		return p.DoiPrefix != nil && *p.DoiPrefix == doiPrefix && p.Slug == slug
	}), nil
}

func (s *LandingPages) FindDraftByResourceAndSlug(_ context.Context, resourceID int64, slug string) (*domain.LandingPage, error) {
	return s.find(func(p *domain.LandingPage) bool {
		return p.ResourceID == resourceID && p.Slug == slug && p.DoiPrefix == nil
	}), nil
}

func (s *LandingPages) SlugTaken(_ context.Context, doiPrefix, slug string, excludeID int64) (bool, error) {
	p := s.find(func(p *domain.LandingPage) bool {
		return p.ID != excludeID && p.DoiPrefix != nil && *p.DoiPrefix == doiPrefix && p.Slug == slug
	})
	return p != nil, nil
}

func (s *LandingPages) Insert(_ context.Context, page *domain.LandingPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pages {
		if p.ResourceID == page.ResourceID {
			return domain.ErrDuplicateLandingPage
		}
		if slugClash(p, page) {
			return domain.ErrSlugConflict
		}
	}

	s.nextID++
	now := s.now().UTC()
	page.ID = s.nextID
	page.CreatedAt = now
	page.UpdatedAt = now
	s.pages[page.ID] = clonePage(page)
	return nil
}

func (s *LandingPages) Update(_ context.Context, page *domain.LandingPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.pages[page.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for id, p := range s.pages {
		if id != page.ID && slugClash(p, page) {
			return domain.ErrSlugConflict
		}
	}

	// view_count only moves through IncrementViewCount
	page.ViewCount = existing.ViewCount
	page.UpdatedAt = s.now().UTC()
	s.pages[page.ID] = clonePage(page)
	return nil
}

func (s *LandingPages) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.pages, id)
	return nil
}

func (s *LandingPages) IncrementViewCount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ViewCount++
	return nil
}

// Count returns the number of stored pages.
func (s *LandingPages) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pages)
}

func slugClash(a, b *domain.LandingPage) bool {
	return a.DoiPrefix != nil && b.DoiPrefix != nil &&
		*a.DoiPrefix == *b.DoiPrefix && a.Slug == b.Slug
}
