package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/landing/internal/httpserver/mw"
)

func init() { Register(registerCuration) }

const (
	landingPagePath = "/resources/{id:[0-9]+}/landing-page"
	previewPath     = landingPagePath + "/preview"
)

func registerCuration(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

		r.Get("/landing-page-templates", handlers.ListTemplates(d))

		r.Post(landingPagePath, handlers.CreateLandingPage(d))
		r.Get(landingPagePath, handlers.GetLandingPage(d))
		r.Put(landingPagePath, handlers.UpdateLandingPage(d))
		r.Delete(landingPagePath, handlers.DeleteLandingPage(d))

		if d.Previews != nil {
			r.Post(previewPath, handlers.SavePreview(d))
			r.Get(previewPath, handlers.ShowPreview(d))
			r.Delete(previewPath, handlers.ClearPreview(d))
		}
	})
}
