package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/landing/internal/httpserver/mw"
)

func init() { Register(registerPublic) }

// registerPublic mounts the resolution routes. Static prefixes (/draft-,
// /datasets/) win over the DOI pattern in chi's tree.
func registerPublic(r chi.Router, d deps.Deps) {
	// one limiter: all public routes share a client's budget
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.PublicRateBurst,
		RefillPerIPPerMin: d.PublicRatePerMinute,
		MaxEntries:        100_000,
		TrustProxy:        d.TrustProxy,
	})

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Get("/draft-{resourceID:[0-9]+}/{slug}", handlers.ResolveDraft(d))
		r.Get("/datasets/{resourceID:[0-9]+}", handlers.LegacyRedirect(d))
		r.Get(`/{prefix:10\.[0-9.]+}/*`, handlers.ResolveIdentifier(d))
	})
}
