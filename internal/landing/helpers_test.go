package landing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/logger"
	"github.com/MrSnakeDoc/landing/internal/store/memory"
	"github.com/MrSnakeDoc/landing/internal/templates"
)

const testBaseURL = "https://landing.example.org"

var fixedNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// spyRenderer counts renders and delegates to the JSON renderer.
type spyRenderer struct {
	mu    sync.Mutex
	calls int
	views []View
	inner Renderer
}

func (r *spyRenderer) Render(ctx context.Context, v View) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	r.views = append(r.views, v)
	r.mu.Unlock()
	return r.inner.Render(ctx, v)
}

func (r *spyRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeNotifier records calls and returns a fixed outcome.
type fakeNotifier struct {
	mu      sync.Mutex
	calls   int
	outcome domain.SyncOutcome
}

func (n *fakeNotifier) Sync(_ context.Context, res *domain.Resource, page *domain.LandingPage) domain.SyncOutcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if res.Identifier() == nil {
		return domain.SyncNotRequiredOutcome()
	}
	return n.outcome
}

// failingCache fails every operation.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errCacheDown }
func (failingCache) Set(context.Context, string, []byte) error         { return errCacheDown }
func (failingCache) Delete(context.Context, string) error              { return errCacheDown }

type fixture struct {
	svc       *Service
	pages     *memory.LandingPages
	resources *memory.Resources
	cache     *memory.Store
	renderer  *spyRenderer
	notifier  *fakeNotifier
}

func newFixture(t *testing.T, resources ...*domain.Resource) *fixture {
	t.Helper()

	f := &fixture{
		pages:     memory.NewLandingPages(),
		resources: memory.NewResources(resources...),
		cache:     memory.NewStore(0),
		renderer:  &spyRenderer{inner: NewJSONRenderer()},
		notifier:  &fakeNotifier{outcome: domain.SyncSucceededOutcome("10.5880/X")},
	}
	f.svc = NewService(Options{
		Pages:     f.pages,
		Resources: f.resources,
		Cache:     f.cache,
		Renderer:  f.renderer,
		Notifier:  f.notifier,
		Templates: templates.NewRegistry(templates.Defaults()),
		URLs:      domain.NewURLBuilder(testBaseURL),
		Logger:    logger.New("error", false),
		Now:       func() time.Time { return fixedNow },
	})
	return f
}

func resourceWithDOI(id int64, doi, title string) *domain.Resource {
	return &domain.Resource{
		ID:              id,
		DOI:             strPtr(doi),
		Title:           title,
		Publisher:       "GFZ Data Services",
		PublicationYear: 2025,
		ResourceType:    "Dataset",
		Description:     `<p>Hourly records.</p><script>alert(1)</script>`,
		Creators:        []string{"Doe, Jane"},
	}
}

func resourceWithoutDOI(id int64, title string) *domain.Resource {
	return &domain.Resource{ID: id, Title: title}
}

func mustCreate(t *testing.T, f *fixture, resourceID int64, in Input) *domain.LandingPage {
	t.Helper()
	res, err := f.svc.Create(context.Background(), resourceID, in)
	if err != nil {
		t.Fatalf("Create(%d) error = %v", resourceID, err)
	}
	return res.Page
}

func viewCount(t *testing.T, f *fixture, resourceID int64) int64 {
	t.Helper()
	page, err := f.pages.FindByResourceID(context.Background(), resourceID)
	if err != nil || page == nil {
		t.Fatalf("page for resource %d not found: %v", resourceID, err)
	}
	return page.ViewCount
}
