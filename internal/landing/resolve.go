package landing

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

// CacheStatus tells how a public page was produced.
type CacheStatus string

const (
	CacheHit    CacheStatus = "hit"
	CacheMiss   CacheStatus = "miss"
	CacheBypass CacheStatus = "bypass"
)

type uncountedKey struct{}

// Uncounted marks ctx so that resolving a published page does not move its
// view count. HEAD requests from link checkers use it.
func Uncounted(ctx context.Context) context.Context {
	return context.WithValue(ctx, uncountedKey{}, true)
}

func counted(ctx context.Context) bool {
	skip, _ := ctx.Value(uncountedKey{}).(bool)
	return !skip
}

// Rendered is a public page ready to be written.
type Rendered struct {
	Body    []byte
	Cache   CacheStatus
	Preview bool
}

// ResolveIdentifier serves /{doiPrefix}/{slug}. token is nil when the
// request carries no preview parameter.
func (s *Service) ResolveIdentifier(ctx context.Context, doiPrefix, slug string, token *string) (*Rendered, error) {
	page, err := s.pages.FindByDoiPrefixAndSlug(ctx, doiPrefix, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identifier path: %w", err)
	}
	if page == nil {
		return nil, domain.ErrNotFound
	}
	return s.serve(ctx, page, token)
}

// ResolveDraft serves /draft-{resourceID}/{slug}. Pages that already carry
// a DOI are not reachable this way.
func (s *Service) ResolveDraft(ctx context.Context, resourceID int64, slug string, token *string) (*Rendered, error) {
	page, err := s.pages.FindDraftByResourceAndSlug(ctx, resourceID, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve draft path: %w", err)
	}
	if page == nil {
		return nil, domain.ErrNotFound
	}
	return s.serve(ctx, page, token)
}

// LegacyURL returns the current public URL of a resource's page, for the
// /datasets/{id} redirect.
func (s *Service) LegacyURL(ctx context.Context, resourceID int64) (string, error) {
	page, err := s.Get(ctx, resourceID)
	if err != nil {
		return "", err
	}
	return s.urls.PublicURL(page), nil
}

// serve applies the access rules:
//   - a preview token must match exactly (403 otherwise) and bypasses the cache
//   - without a token, drafts are not found
//   - published pages are served from cache, rendered on miss
func (s *Service) serve(ctx context.Context, page *domain.LandingPage, token *string) (*Rendered, error) {
	if token != nil {
		if !domain.TokenMatches(page.PreviewToken, *token) {
			s.logger.Debug("preview token rejected",
				logger.Int64("resource_id", page.ResourceID))
			return nil, domain.ErrForbidden
		}
		body, err := s.render(ctx, page, true)
		if err != nil {
			return nil, err
		}
		s.metrics.Render(string(CacheBypass))
		return &Rendered{Body: body, Cache: CacheBypass, Preview: true}, nil
	}

	if !page.IsPublished() {
		return nil, domain.ErrNotFound
	}

	key := CacheKey(page.ResourceID)
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("landing page cache read failed, rendering",
			logger.String("key", key),
			logger.Error(err))
	}
	if err == nil && ok {
		s.countView(ctx, page)
		s.metrics.Render(string(CacheHit))
		return &Rendered{Body: cached, Cache: CacheHit}, nil
	}

	body, err := s.render(ctx, page, false)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, body); err != nil {
		s.logger.Warn("failed to cache landing page",
			logger.String("key", key),
			logger.Error(err))
	} else {
		s.dropIfStale(ctx, key, page)
	}

	s.countView(ctx, page)
	s.metrics.Render(string(CacheMiss))
	return &Rendered{Body: body, Cache: CacheMiss}, nil
}

func (s *Service) render(ctx context.Context, page *domain.LandingPage, preview bool) ([]byte, error) {
	res, err := s.loadResource(ctx, page.ResourceID)
	if err != nil {
		return nil, err
	}

	body, err := s.renderer.Render(ctx, View{
		Resource:      res,
		Page:          page,
		Template:      s.templateFor(page.Template),
		IsPreview:     preview,
		PublicURL:     s.urls.PublicURL(page),
		CanonicalPath: domain.CanonicalPath(page),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render landing page: %w", err)
	}
	return body, nil
}

// templateFor tolerates templates removed from the registry after the
// page was saved.
func (s *Service) templateFor(name string) domain.Template {
	if t, ok := s.templates.Lookup(name); ok {
		return t
	}
	return domain.Template{Name: name, Label: name}
}

// dropIfStale re-reads the page after its render was cached. An update
// that committed while rendering either evicts after the Set or is visible
// to this read, so an outdated body never outlives the update.
func (s *Service) dropIfStale(ctx context.Context, key string, rendered *domain.LandingPage) {
	current, err := s.pages.FindByResourceID(ctx, rendered.ResourceID)
	if err == nil && sameRevision(rendered, current) {
		return
	}

	s.logger.Debug("landing page changed while rendering, dropping cache entry",
		logger.Int64("resource_id", rendered.ResourceID),
		logger.Error(err))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to drop stale landing page",
			logger.String("key", key),
			logger.Error(err))
	}
}

// sameRevision compares everything a render depends on. view_count moves
// on every hit and is left out.
func sameRevision(a, b *domain.LandingPage) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID &&
		a.Template == b.Template &&
		a.Status == b.Status &&
		a.Slug == b.Slug &&
		a.UpdatedAt.Equal(b.UpdatedAt) &&
		equalStr(a.FtpURL, b.FtpURL) &&
		equalStr(a.DoiPrefix, b.DoiPrefix)
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) countView(ctx context.Context, page *domain.LandingPage) {
	if !counted(ctx) {
		return
	}
	if err := s.pages.IncrementViewCount(ctx, page.ID); err != nil {
		s.logger.Warn("failed to increment view count",
			logger.Int64("landing_page_id", page.ID),
			logger.Error(err))
	}
}

// RenderUnsaved draws a resource with a configuration that was never
// persisted (session previews). It reuses the saved page's addressing when
// one exists. Never cached, never counted.
func (s *Service) RenderUnsaved(ctx context.Context, resourceID int64, in Input) ([]byte, error) {
	res, err := s.loadResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	v, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.FindByResourceID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load landing page: %w", err)
	}
	if page == nil {
		page = &domain.LandingPage{
			ResourceID: resourceID,
			Status:     domain.StatusDraft,
			Slug:       domain.Slugify(res.Title),
		}
		page.CaptureIdentifier(res.Identifier())
	}
	page.Template = v.template.Name
	page.FtpURL = v.ftpURL

	body, err := s.renderer.Render(ctx, View{
		Resource:      res,
		Page:          page,
		Template:      v.template,
		IsPreview:     true,
		PublicURL:     s.urls.PublicURL(page),
		CanonicalPath: domain.CanonicalPath(page),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}
	s.metrics.Render(string(CacheBypass))
	return body, nil
}

// CheckUnsaved validates a session preview configuration against an
// existing resource without rendering it.
func (s *Service) CheckUnsaved(ctx context.Context, resourceID int64, in Input) error {
	if _, err := s.loadResource(ctx, resourceID); err != nil {
		return err
	}
	_, err := s.validate(in)
	return err
}
