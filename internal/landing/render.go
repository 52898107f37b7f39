package landing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// View is everything a template needs to draw a landing page.
type View struct {
	Resource      *domain.Resource
	Page          *domain.LandingPage
	Template      domain.Template
	IsPreview     bool
	PublicURL     string
	CanonicalPath string
}

// Renderer turns a view into the public payload.
type Renderer interface {
	Render(ctx context.Context, v View) ([]byte, error)
}

type payload struct {
	Template    templatePayload `json:"template"`
	IsPreview   bool            `json:"is_preview"`
	Resource    resourcePayload `json:"resource"`
	LandingPage pagePayload     `json:"landing_page"`
	URLs        urlsPayload     `json:"urls"`
}

type templatePayload struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type resourcePayload struct {
	ID              int64    `json:"id"`
	DOI             *string  `json:"doi"`
	Title           string   `json:"title"`
	Publisher       string   `json:"publisher,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	ResourceType    string   `json:"resource_type,omitempty"`
	Description     string   `json:"description,omitempty"`
	Creators        []string `json:"creators"`
}

type pagePayload struct {
	ID          int64      `json:"id,omitempty"`
	Status      string     `json:"status"`
	FtpURL      *string    `json:"ftp_url"`
	DoiPrefix   *string    `json:"doi_prefix"`
	Slug        string     `json:"slug"`
	PublishedAt *time.Time `json:"published_at"`
}

type urlsPayload struct {
	PublicURL     string `json:"public_url"`
	CanonicalPath string `json:"canonical_path"`
}

// JSONRenderer emits the payload consumed by the client-side page.
// Descriptions are curated rich text and go through a UGC sanitizer.
type JSONRenderer struct {
	policy *bluemonday.Policy
}

func NewJSONRenderer() *JSONRenderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("sub", "sup")
	policy.RequireNoFollowOnLinks(true)
	return &JSONRenderer{policy: policy}
}

func (r *JSONRenderer) Render(_ context.Context, v View) ([]byte, error) {
	if v.Resource == nil || v.Page == nil {
		return nil, fmt.Errorf("render: resource and page are required")
	}

	creators := v.Resource.Creators
	if creators == nil {
		creators = []string{}
	}

	p := payload{
		Template:  templatePayload{Name: v.Template.Name, Label: v.Template.Label},
		IsPreview: v.IsPreview,
		Resource: resourcePayload{
			ID:              v.Resource.ID,
			DOI:             v.Resource.Identifier(),
			Title:           v.Resource.Title,
			Publisher:       v.Resource.Publisher,
			PublicationYear: v.Resource.PublicationYear,
			ResourceType:    v.Resource.ResourceType,
			Description:     r.policy.Sanitize(v.Resource.Description),
			Creators:        creators,
		},
		LandingPage: pagePayload{
			ID:          v.Page.ID,
			Status:      string(v.Page.Status),
			FtpURL:      v.Page.FtpURL,
			DoiPrefix:   v.Page.DoiPrefix,
			Slug:        v.Page.Slug,
			PublishedAt: v.Page.PublishedAt,
		},
		URLs: urlsPayload{
			PublicURL:     v.PublicURL,
			CanonicalPath: v.CanonicalPath,
		},
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return body, nil
}
