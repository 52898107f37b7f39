package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/httpserver/deps"
	"github.com/MrSnakeDoc/landing/internal/landing"
	"github.com/MrSnakeDoc/landing/internal/logger"
	"github.com/MrSnakeDoc/landing/internal/preview"
)

type previewRequest struct {
	Template string  `json:"template"`
	FtpURL   *string `json:"ftp_url"`
}

// SavePreview handles POST /resources/{id}/landing-page/preview: the
// configuration is validated like a create and kept in the curator session.
func SavePreview(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		var req previewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		in := landing.Input{Template: req.Template, FtpURL: req.FtpURL}
		if err := d.Landing.CheckUnsaved(r.Context(), id, in); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		draft := preview.Draft{Template: req.Template, FtpURL: req.FtpURL}
		if err := d.Previews.Save(r.Context(), w, r, id, draft); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		d.Logger.Debug("preview draft stored", logger.Int64("resource_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ShowPreview handles GET /resources/{id}/landing-page/preview.
func ShowPreview(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		draft, err := d.Previews.Load(r.Context(), r, id)
		if errors.Is(err, preview.ErrNoDraft) {
			writeDomainError(w, r, d.Logger, domain.ErrNotFound)
			return
		}
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		body, err := d.Landing.RenderUnsaved(r.Context(), id, landing.Input{
			Template: draft.Template,
			FtpURL:   draft.FtpURL,
		})
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		writePage(w, body, landing.CacheBypass, true)
	}
}

// ClearPreview handles DELETE /resources/{id}/landing-page/preview.
func ClearPreview(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resourceID(r, "id")
		if err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}

		if err := d.Previews.Clear(r.Context(), r, id); err != nil {
			writeDomainError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
