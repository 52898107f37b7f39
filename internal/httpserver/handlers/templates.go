package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
)

type templatesResponse struct {
	Templates []domain.Template `json:"templates"`
}

// ListTemplates handles GET /landing-page-templates.
func ListTemplates(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := d.Landing.Templates()
		if list == nil {
			list = []domain.Template{}
		}
		writeJSON(w, http.StatusOK, templatesResponse{Templates: list})
	}
}
