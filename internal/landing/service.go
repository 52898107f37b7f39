// Package landing implements the landing page lifecycle: curation
// (create, update, delete), public resolution with caching and preview
// tokens, and the DataCite sync hook.
package landing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/logger"
	"github.com/MrSnakeDoc/landing/internal/metrics"
)

const (
	maxSlugCandidates = 100
	maxSlugRetries    = 3
)

type Options struct {
	Pages     Repository
	Resources ResourceReader
	Cache     Cache
	Renderer  Renderer
	Notifier  Notifier
	Templates TemplateSet
	URLs      domain.URLBuilder
	Metrics   *metrics.Metrics // optional
	Logger    logger.Logger
	Now       func() time.Time // for testing, defaults to time.Now
}

type Service struct {
	pages     Repository
	resources ResourceReader
	cache     Cache
	renderer  Renderer
	notifier  Notifier
	templates TemplateSet
	urls      domain.URLBuilder
	metrics   *metrics.Metrics
	logger    logger.Logger
	now       func() time.Time
}

func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		pages:     opts.Pages,
		resources: opts.Resources,
		cache:     opts.Cache,
		renderer:  opts.Renderer,
		notifier:  opts.Notifier,
		templates: opts.Templates,
		urls:      opts.URLs,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Result is returned by create and update.
type Result struct {
	Page *domain.LandingPage
	Sync domain.SyncOutcome
}

// URLs exposes the builder used for public and preview URLs.
func (s *Service) URLs() domain.URLBuilder {
	return s.urls
}

// Templates returns the current template registry content.
func (s *Service) Templates() []domain.Template {
	return s.templates.All()
}

// Get returns the page of a resource, or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, resourceID int64) (*domain.LandingPage, error) {
	page, err := s.pages.FindByResourceID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load landing page: %w", err)
	}
	if page == nil {
		return nil, domain.ErrNotFound
	}
	return page, nil
}

// Create adds the landing page of a resource. A page always gets a fresh
// preview token; it starts as draft unless in.Status asks for published.
func (s *Service) Create(ctx context.Context, resourceID int64, in Input) (*Result, error) {
	res, err := s.loadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	v, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.pages.FindByResourceID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load landing page: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateLandingPage
	}

	token, err := domain.NewPreviewToken()
	if err != nil {
		return nil, err
	}

	page := &domain.LandingPage{
		ResourceID:   resourceID,
		PreviewToken: token,
		Template:     v.template.Name,
		FtpURL:       v.ftpURL,
		Status:       domain.StatusDraft,
	}
	if v.status != nil {
		// draft -> anything is always allowed
		_ = page.TransitionTo(*v.status, s.now())
	}
	page.CaptureIdentifier(res.Identifier())

	if err := s.saveWithSlug(ctx, page, domain.Slugify(res.Title), true, s.pages.Insert); err != nil {
		return nil, err
	}

	s.metrics.Mutation("create")
	s.logger.Info("landing page created",
		logger.Int64("resource_id", resourceID),
		logger.Int64("landing_page_id", page.ID),
		logger.String("status", string(page.Status)),
		logger.String("path", domain.CanonicalPath(page)))

	return &Result{Page: page, Sync: s.sync(ctx, res, page)}, nil
}

// Update replaces template and ftp_url, applies an optional status change
// and refreshes the slug from the resource title. The cache entry of the
// resource is always evicted before returning.
func (s *Service) Update(ctx context.Context, resourceID int64, in Input) (*Result, error) {
	page, err := s.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	res, err := s.loadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	v, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	if v.status != nil {
		if err := page.TransitionTo(*v.status, s.now()); err != nil {
			return nil, err
		}
	}
	page.Template = v.template.Name
	page.FtpURL = v.ftpURL

	captured := page.CaptureIdentifier(res.Identifier())
	base := domain.Slugify(res.Title)
	reslug := captured || !domain.SlugMatchesBase(page.Slug, base)

	if err := s.saveWithSlug(ctx, page, base, reslug, s.pages.Update); err != nil {
		return nil, err
	}

	if err := s.evict(ctx, resourceID); err != nil {
		return nil, err
	}

	s.metrics.Mutation("update")
	s.logger.Info("landing page updated",
		logger.Int64("resource_id", resourceID),
		logger.Int64("landing_page_id", page.ID),
		logger.String("status", string(page.Status)),
		logger.String("path", domain.CanonicalPath(page)))

	return &Result{Page: page, Sync: s.sync(ctx, res, page)}, nil
}

// Delete removes a draft page. Published pages are permanent.
func (s *Service) Delete(ctx context.Context, resourceID int64) error {
	page, err := s.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if err := page.CheckDeletable(); err != nil {
		return err
	}

	if err := s.pages.Delete(ctx, page.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete landing page: %w", err)
	}

	if err := s.evict(ctx, resourceID); err != nil {
		return err
	}

	s.metrics.Mutation("delete")
	s.logger.Info("landing page deleted",
		logger.Int64("resource_id", resourceID),
		logger.Int64("landing_page_id", page.ID))
	return nil
}

func (s *Service) loadResource(ctx context.Context, resourceID int64) (*domain.Resource, error) {
	res, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource %d: %w", resourceID, err)
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

// saveWithSlug persists page, picking a free slug within its DOI when
// reslug is set. A concurrent writer taking the same slug is retried.
func (s *Service) saveWithSlug(
	ctx context.Context,
	page *domain.LandingPage,
	base string,
	reslug bool,
	save func(context.Context, *domain.LandingPage) error,
) error {
	for attempt := 0; attempt < maxSlugRetries; attempt++ {
		if reslug {
			slug, err := s.freeSlug(ctx, page, base)
			if err != nil {
				return err
			}
			page.Slug = slug
		}

		err := save(ctx, page)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrSlugConflict):
			s.logger.Warn("slug taken concurrently, retrying",
				logger.Int64("resource_id", page.ResourceID),
				logger.String("slug", page.Slug))
			reslug = true
		case errors.Is(err, domain.ErrDuplicateLandingPage), errors.Is(err, domain.ErrNotFound):
			return err
		default:
			return fmt.Errorf("failed to save landing page: %w", err)
		}
	}
	return fmt.Errorf("failed to save landing page: no free slug after %d attempts", maxSlugRetries)
}

// freeSlug returns base, base-2, base-3... whichever is unused within the
// page's DOI. Draft pages live in a namespace keyed by resource id, so the
// base is always free there.
func (s *Service) freeSlug(ctx context.Context, page *domain.LandingPage, base string) (string, error) {
	if !page.HasIdentifier() {
		return base, nil
	}
	for n := 1; n <= maxSlugCandidates; n++ {
		candidate := domain.SlugWithSuffix(base, n)
		taken, err := s.pages.SlugTaken(ctx, *page.DoiPrefix, candidate, page.ID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q under %s", base, *page.DoiPrefix)
}

func (s *Service) evict(ctx context.Context, resourceID int64) error {
	if err := s.cache.Delete(ctx, CacheKey(resourceID)); err != nil {
		s.logger.Error("failed to evict landing page cache",
			logger.Int64("resource_id", resourceID),
			logger.Error(err))
		return fmt.Errorf("failed to evict cache for resource %d: %w", resourceID, err)
	}
	return nil
}

func (s *Service) sync(ctx context.Context, res *domain.Resource, page *domain.LandingPage) domain.SyncOutcome {
	out := s.notifier.Sync(ctx, res, page)
	s.metrics.Sync(string(out.Status))

	if out.Status == domain.SyncFailed {
		msg := ""
		if out.ErrorMessage != nil {
			msg = *out.ErrorMessage
		}
		s.logger.Warn("datacite sync failed",
			logger.Int64("resource_id", res.ID),
			logger.Bool("attempted", out.Attempted),
			logger.String("error_message", msg))
	}
	return out
}
