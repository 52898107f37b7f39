package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/landing"
)

type landingPageRequest struct {
	Template string  `json:"template"`
	FtpURL   *string `json:"ftp_url"`
	Status   string  `json:"status"`
}

func (req landingPageRequest) input() landing.Input {
	return landing.Input{Template: req.Template, FtpURL: req.FtpURL, Status: req.Status}
}

type landingPageResponse struct {
	ID           int64               `json:"id"`
	ResourceID   int64               `json:"resource_id"`
	Template     string              `json:"template"`
	FtpURL       *string             `json:"ftp_url"`
	Status       domain.Status       `json:"status"`
	PreviewToken string              `json:"preview_token"`
	PreviewURL   string              `json:"preview_url"`
	PublicURL    string              `json:"public_url"`
	Slug         string              `json:"slug"`
	DoiPrefix    *string             `json:"doi_prefix"`
	PublishedAt  *time.Time          `json:"published_at"`
	ViewCount    int64               `json:"view_count"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	DataCiteSync *domain.SyncOutcome `json:"datacite_sync,omitempty"`
}

func newLandingPageResponse(urls domain.URLBuilder, p *domain.LandingPage) landingPageResponse {
	return landingPageResponse{
		ID:           p.ID,
		ResourceID:   p.ResourceID,
		Template:     p.Template,
		FtpURL:       p.FtpURL,
		Status:       p.Status,
		PreviewToken: p.PreviewToken,
		PreviewURL:   urls.PreviewURL(p),
		PublicURL:    urls.PublicURL(p),
		Slug:         p.Slug,
		DoiPrefix:    p.DoiPrefix,
		PublishedAt:  p.PublishedAt,
		ViewCount:    p.ViewCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func withSync(d deps.Deps, res *landing.Result) landingPageResponse {
	out := newLandingPageResponse(d.Landing.URLs(), res.Page)
	sync := res.Sync
	out.DataCiteSync = &sync
	return out
}

// CreateLandingPage handles POST /resources/{id}/landing-page.
func CreateLandingPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		var req landingPageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		res, err := d.Landing.Create(r.Context(), id, req.input())
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		w.Header().Set("Location", r.URL.Path)
		writeJSON(w, http.StatusCreated, withSync(d, res))
	}
}

// GetLandingPage handles GET /resources/{id}/landing-page.
func GetLandingPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		page, err := d.Landing.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newLandingPageResponse(d.Landing.URLs(), page))
	}
}

// UpdateLandingPage handles PUT /resources/{id}/landing-page.
func UpdateLandingPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		var req landingPageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		res, err := d.Landing.Update(r.Context(), id, req.input())
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, withSync(d, res))
	}
}

// DeleteLandingPage handles DELETE /resources/{id}/landing-page.
func DeleteLandingPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		if err := d.Landing.Delete(r.Context(), id); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
