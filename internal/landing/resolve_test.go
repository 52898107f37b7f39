package landing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/templates"
)

func TestResolve_DraftIsHiddenWithoutToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		resourceWithDOI(1, "10.5880/X", "With DOI"),
		resourceWithoutDOI(2, "Without DOI"),
	)
	withDOI := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate})
	noDOI := mustCreate(t, f, 2, Input{Template: templates.DefaultTemplate})

	if _, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", withDOI.Slug, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveIdentifier() error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.ResolveDraft(ctx, 2, noDOI.Slug, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveDraft() error = %v, want ErrNotFound", err)
	}
	if f.renderer.Calls() != 0 {
		t.Errorf("renderer called %d times for hidden drafts", f.renderer.Calls())
	}
}

func TestResolve_PreviewToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate})

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "exact token", token: page.PreviewToken},
		{name: "empty token", token: "", wantErr: domain.ErrForbidden},
		{name: "wrong token", token: strings.Repeat("0", 64), wantErr: domain.ErrForbidden},
		{name: "prefix of token", token: page.PreviewToken[:32], wantErr: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token
			out, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, &token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveIdentifier() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if out.Cache != CacheBypass || !out.Preview {
				t.Errorf("Rendered = %+v, want preview bypass", out)
			}
		})
	}

	if viewCount(t, f, 1) != 0 {
		t.Error("preview requests must not count as views")
	}
}

func TestResolve_PreviewOfPublishedBypassesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})

	if _, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil); err != nil {
		t.Fatalf("public resolve error = %v", err)
	}
	cachedBefore, _, _ := f.cache.Get(ctx, CacheKey(1))

	token := page.PreviewToken
	out, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, &token)
	if err != nil {
		t.Fatalf("preview resolve error = %v", err)
	}
	if out.Cache != CacheBypass {
		t.Errorf("Cache = %s, want bypass", out.Cache)
	}

	cachedAfter, _, _ := f.cache.Get(ctx, CacheKey(1))
	if string(cachedAfter) != string(cachedBefore) {
		t.Error("preview must neither read nor write the cache")
	}

	var body map[string]any
	if err := json.Unmarshal(out.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["is_preview"] != true {
		t.Errorf("is_preview = %v, want true", body["is_preview"])
	}
}

func TestResolve_PublishedIsCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})

	first, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
	if err != nil {
		t.Fatalf("first resolve error = %v", err)
	}
	second, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
	if err != nil {
		t.Fatalf("second resolve error = %v", err)
	}

	if first.Cache != CacheMiss || second.Cache != CacheHit {
		t.Errorf("cache statuses = %s, %s; want miss, hit", first.Cache, second.Cache)
	}
	if string(first.Body) != string(second.Body) {
		t.Error("cached body differs from the rendered one")
	}
	if f.renderer.Calls() != 1 {
		t.Errorf("renderer called %d times, want 1", f.renderer.Calls())
	}
	if got := viewCount(t, f, 1); got != 2 {
		t.Errorf("view count = %d, want 2 (hits count too)", got)
	}
}

func TestResolve_UpdateIsVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})

	if _, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil); err != nil {
		t.Fatalf("resolve error = %v", err)
	}

	if _, err := f.svc.Update(ctx, 1, Input{Template: templates.DefaultFtpTemplate, FtpURL: strPtr("ftp://ftp.example.org/x")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	out, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
	if err != nil {
		t.Fatalf("resolve after update error = %v", err)
	}
	if out.Cache != CacheMiss {
		t.Errorf("Cache = %s, want miss after update", out.Cache)
	}

	var body struct {
		Template struct {
			Name string `json:"name"`
		} `json:"template"`
		LandingPage struct {
			FtpURL *string `json:"ftp_url"`
		} `json:"landing_page"`
	}
	if err := json.Unmarshal(out.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Template.Name != templates.DefaultFtpTemplate {
		t.Errorf("template = %q, want %q", body.Template.Name, templates.DefaultFtpTemplate)
	}
	if body.LandingPage.FtpURL == nil || *body.LandingPage.FtpURL != "ftp://ftp.example.org/x" {
		t.Errorf("ftp_url = %v, want the updated value", body.LandingPage.FtpURL)
	}
}

func TestResolve_ConcurrentViewsAreNotLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil); err != nil {
				t.Errorf("resolve error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := viewCount(t, f, 1); got != n {
		t.Errorf("view count = %d, want %d", got, n)
	}
}

func TestResolve_DraftNamespace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithoutDOI(9, "Ocean Floor"))
	page := mustCreate(t, f, 9, Input{Template: templates.DefaultTemplate, Status: "published"})

	if got := domain.CanonicalPath(page); got != "/draft-9/ocean-floor" {
		t.Fatalf("CanonicalPath = %q, want /draft-9/ocean-floor", got)
	}

	out, err := f.svc.ResolveDraft(ctx, 9, "ocean-floor", nil)
	if err != nil {
		t.Fatalf("ResolveDraft() error = %v", err)
	}
	if out.Cache != CacheMiss {
		t.Errorf("Cache = %s, want miss", out.Cache)
	}

	if _, err := f.svc.ResolveDraft(ctx, 9, "other-slug", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("wrong slug error = %v, want ErrNotFound", err)
	}
}

func TestResolve_DraftPathGoneOnceDOIAssigned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithoutDOI(9, "Ocean Floor"))
	mustCreate(t, f, 9, Input{Template: templates.DefaultTemplate, Status: "published"})

	f.resources.Put(resourceWithDOI(9, "10.5880/OCEAN", "Ocean Floor"))
	if _, err := f.svc.Update(ctx, 9, Input{Template: templates.DefaultTemplate}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := f.svc.ResolveDraft(ctx, 9, "ocean-floor", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("draft path error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.ResolveIdentifier(ctx, "10.5880/OCEAN", "ocean-floor", nil); err != nil {
		t.Errorf("identifier path error = %v", err)
	}

	url, err := f.svc.LegacyURL(ctx, 9)
	if err != nil {
		t.Fatalf("LegacyURL() error = %v", err)
	}
	if url != testBaseURL+"/10.5880/OCEAN/ocean-floor" {
		t.Errorf("LegacyURL() = %q", url)
	}
}

func TestResolve_CacheOutageFallsBackToRendering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})
	f.svc.cache = failingCache{}

	out, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
	if err != nil {
		t.Fatalf("ResolveIdentifier() error = %v", err)
	}
	if out.Cache != CacheMiss || len(out.Body) == 0 {
		t.Errorf("Rendered = %+v, want a fresh render", out)
	}
	if viewCount(t, f, 1) != 1 {
		t.Error("view should be counted on a cache outage")
	}
}

func TestResolve_RemovedTemplateStillRenders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultFtpTemplate, FtpURL: strPtr("https://x.org"), Status: "published"})

	f.svc.templates = templates.NewRegistry([]domain.Template{{Name: templates.DefaultTemplate, Label: "GFZ"}})

	out, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
	if err != nil {
		t.Fatalf("ResolveIdentifier() error = %v", err)
	}
	if !strings.Contains(string(out.Body), templates.DefaultFtpTemplate) {
		t.Error("page should still render with its stored template name")
	}
}

func TestRenderUnsaved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))

	body, err := f.svc.RenderUnsaved(ctx, 1, Input{Template: templates.DefaultFtpTemplate, FtpURL: strPtr("ftp://ftp.example.org/1")})
	if err != nil {
		t.Fatalf("RenderUnsaved() error = %v", err)
	}
	if !strings.Contains(string(body), `"is_preview":true`) {
		t.Error("unsaved render must be flagged as preview")
	}
	if f.pages.Count() != 0 {
		t.Error("RenderUnsaved must not persist a page")
	}

	var verr *domain.ValidationError
	if _, err := f.svc.RenderUnsaved(ctx, 1, Input{Template: "nope"}); !errors.As(err, &verr) {
		t.Errorf("invalid input error = %v, want ValidationError", err)
	}
	if _, err := f.svc.RenderUnsaved(ctx, 2, Input{Template: templates.DefaultTemplate}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing resource error = %v, want ErrNotFound", err)
	}
}

// gateRenderer holds its first render until release is closed.
type gateRenderer struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
	inner   Renderer
}

func (r *gateRenderer) Render(ctx context.Context, v View) ([]byte, error) {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.started)
		<-r.release
	}
	return r.inner.Render(ctx, v)
}

func TestResolve_UpdateDuringRenderIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})

	gate := &gateRenderer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		inner:   NewJSONRenderer(),
	}
	f.svc.renderer = gate

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
		done <- err
	}()

	<-gate.started
	newURL := "ftp://ftp.example.org/new"
	if _, err := f.svc.Update(ctx, 1, Input{Template: templates.DefaultTemplate, FtpURL: &newURL}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("ResolveIdentifier() during update error = %v", err)
	}

	out, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil)
	if err != nil {
		t.Fatalf("ResolveIdentifier() error = %v", err)
	}
	if out.Cache != CacheMiss {
		t.Errorf("Cache = %q, want miss after the update", out.Cache)
	}
	if !strings.Contains(string(out.Body), newURL) {
		t.Errorf("body does not carry the updated ftp_url: %s", out.Body)
	}
}

func TestSameRevision(t *testing.T) {
	base := func() *domain.LandingPage {
		return &domain.LandingPage{ID: 1, Template: "default_gfz", Status: domain.StatusPublished, Slug: "title", DoiPrefix: strPtr("10.5880/X")}
	}

	tests := []struct {
		name   string
		mutate func(p *domain.LandingPage)
		want   bool
	}{
		{name: "identical", mutate: func(*domain.LandingPage) {}, want: true},
		{name: "view count ignored", mutate: func(p *domain.LandingPage) { p.ViewCount = 9 }, want: true},
		{name: "ftp url set", mutate: func(p *domain.LandingPage) { p.FtpURL = strPtr("ftp://x") }, want: false},
		{name: "template", mutate: func(p *domain.LandingPage) { p.Template = "other" }, want: false},
		{name: "slug", mutate: func(p *domain.LandingPage) { p.Slug = "title-2" }, want: false},
		{name: "updated at", mutate: func(p *domain.LandingPage) { p.UpdatedAt = fixedNow }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base()
			tt.mutate(b)
			if got := sameRevision(base(), b); got != tt.want {
				t.Errorf("sameRevision() = %v, want %v", got, tt.want)
			}
		})
	}
	if sameRevision(base(), nil) {
		t.Error("sameRevision() with a deleted page should be false")
	}
}

func TestResolve_UncountedSkipsViewCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, resourceWithDOI(1, "10.5880/X", "Title"))
	page := mustCreate(t, f, 1, Input{Template: templates.DefaultTemplate, Status: "published"})

	for i := 0; i < 2; i++ {
		if _, err := f.svc.ResolveIdentifier(Uncounted(ctx), "10.5880/X", page.Slug, nil); err != nil {
			t.Fatalf("ResolveIdentifier() error = %v", err)
		}
	}
	if got := viewCount(t, f, 1); got != 0 {
		t.Errorf("view_count = %d after uncounted resolves, want 0", got)
	}

	if _, err := f.svc.ResolveIdentifier(ctx, "10.5880/X", page.Slug, nil); err != nil {
		t.Fatalf("ResolveIdentifier() error = %v", err)
	}
	if got := viewCount(t, f, 1); got != 1 {
		t.Errorf("view_count = %d, want 1", got)
	}
}
