package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/landing/internal/httpserver/mw"
)

func init() { Register(registerOperator) }

// healthz is open; everything else here is for operators only.
func registerOperator(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))

		r.Get("/readyz", handlers.Readyz(d))
		r.Get("/infra", handlers.Infra(d))
		if d.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
		}

		r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/reload", handlers.Reload(d))
	})
}
