package domain

import (
	"fmt"
	"time"
)

// Status is the publication state of a landing page.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus validates a wire value. An empty string is not a status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPublished:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// LandingPage is the public face of a curated resource.
//
// A page starts as a draft and can be published exactly once. A published
// page is permanent: it cannot go back to draft and cannot be deleted,
// because its DOI has been advertised and must keep resolving.
type LandingPage struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	ID int64

	// ResourceID is the owning resource. One page per resource.
	ResourceID int64

	// PreviewToken grants read access regardless of status.
	// Generated once at creation, never rotated, never expires.
	PreviewToken string

	// ─────────────────────────────
	// Curated configuration
	// ─────────────────────────────

	// Template is the rendering template name, from the template registry.
	Template string

	// FtpURL is an optional external download location.
	FtpURL *string

	// ─────────────────────────────
	// Addressing
	// ─────────────────────────────

	// DoiPrefix is the DOI captured from the resource, ex: 10.5880/GFZ.1.4.2024.001.
	// Nil while the resource has no DOI. Never changed once set.
	DoiPrefix *string

	// Slug is unique within DoiPrefix (or within the draft namespace).
	Slug string

	// ─────────────────────────────
	// Publication state
	// ─────────────────────────────

	Status Status

	// PublishedAt is set on the first transition to published and never cleared.
	PublishedAt *time.Time

	// ViewCount counts public, non-preview renders of the published page.
	ViewCount int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublished reports whether the page is publicly reachable without a token.
func (p *LandingPage) IsPublished() bool {
	return p.Status == StatusPublished
}

// HasIdentifier reports whether the page is addressed by DOI.
func (p *LandingPage) HasIdentifier() bool {
	return p.DoiPrefix != nil && *p.DoiPrefix != ""
}

// TransitionTo applies a status change. published -> draft is rejected with
// ErrCannotUnpublish and leaves the page untouched.
func (p *LandingPage) TransitionTo(to Status, now time.Time) error {
	switch {
	case p.Status == StatusPublished && to == StatusDraft:
		return ErrCannotUnpublish
	case to == StatusPublished:
		p.Status = StatusPublished
		if p.PublishedAt == nil {
			t := now.UTC()
			p.PublishedAt = &t
		}
	default:
		p.Status = to
	}
	return nil
}

// CheckDeletable returns ErrCannotDeletePublished for a published page.
func (p *LandingPage) CheckDeletable() error {
	if p.IsPublished() {
		return ErrCannotDeletePublished
	}
	return nil
}

// CaptureIdentifier copies doi into DoiPrefix when the page has none yet.
// It reports whether the page changed.
func (p *LandingPage) CaptureIdentifier(doi *string) bool {
	if p.HasIdentifier() || doi == nil || *doi == "" {
		return false
	}
	v := *doi
	p.DoiPrefix = &v
	return true
}
