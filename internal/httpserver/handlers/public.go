package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/landing"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

// previewToken returns nil when the request has no preview parameter at
// all. An empty ?preview= is a (wrong) token, not an absent one.
func previewToken(r *http.Request) *string {
	q := r.URL.Query()
	if !q.Has("preview") {
		return nil
	}
	t := q.Get("preview")
	return &t
}

// resolveContext skips view counting for HEAD, which chi's GetHead routes
// to the GET handlers.
func resolveContext(r *http.Request) context.Context {
	if r.Method == http.MethodHead {
		return landing.Uncounted(r.Context())
	}
	return r.Context()
}

// writePage writes a rendered public page. Previews are never stored by
// browsers or proxies and never indexed.
func writePage(w http.ResponseWriter, body []byte, cache landing.CacheStatus, isPreview bool) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Landing-Cache", string(cache))
	if isPreview {
		h.Set("Cache-Control", "no-store")
		h.Set("X-Robots-Tag", "noindex")
	} else {
		h.Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ResolveIdentifier handles GET /{doiPrefix}/{slug}. The DOI suffix may
// contain slashes, so the whole path is parsed here instead of by the router.
func ResolveIdentifier(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doi, slug, ok := domain.ParseIdentifierPath(r.URL.Path)
		if !ok {
			writeDomainError(w, r, d.Logger, domain.ErrNotFound)
			return
		}

		out, err := d.Landing.ResolveIdentifier(resolveContext(r), doi, slug, previewToken(r))
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}
		writePage(w, out.Body, out.Cache, out.Preview)
	}
}

// ResolveDraft handles GET /draft-{resourceID}/{slug}.
func ResolveDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "resourceID")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		out, err := d.Landing.ResolveDraft(resolveContext(r), id, chi.URLParam(r, "slug"), previewToken(r))
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}
		writePage(w, out.Body, out.Cache, out.Preview)
	}
}

// LegacyRedirect handles GET /datasets/{resourceID}: a permanent redirect
// to the page's current public URL.
func LegacyRedirect(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "resourceID")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		target, err := d.Landing.LegacyURL(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		d.Logger.Debug("legacy dataset path redirected",
			logger.Int64("resource_id", id),
			logger.String("target", target))
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}
}
