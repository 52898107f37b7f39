package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

type pageRow struct {
	ID           int64          `db:"id"`
	ResourceID   int64          `db:"resource_id"`
	PreviewToken string         `db:"preview_token"`
	Template     string         `db:"template"`
	FtpURL       sql.NullString `db:"ftp_url"`
	DoiPrefix    sql.NullString `db:"doi_prefix"`
	Slug         string         `db:"slug"`
	Status       string         `db:"status"`
	PublishedAt  sql.NullTime   `db:"published_at"`
	ViewCount    int64          `db:"view_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

const pageColumns = `id, resource_id, preview_token, template, ftp_url, doi_prefix,
	slug, status, published_at, view_count, created_at, updated_at`

func (r pageRow) toDomain() *domain.LandingPage {
	p := &domain.LandingPage{
		ID:           r.ID,
		ResourceID:   r.ResourceID,
		PreviewToken: r.PreviewToken,
		Template:     r.Template,
		FtpURL:       nullString(r.FtpURL),
		DoiPrefix:    nullString(r.DoiPrefix),
		Slug:         r.Slug,
		Status:       domain.Status(r.Status),
		ViewCount:    r.ViewCount,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time.UTC()
		p.PublishedAt = &t
	}
	return p
}

type resourceRow struct {
	ID              int64          `db:"id"`
	DOI             sql.NullString `db:"doi"`
	Title           string         `db:"title"`
	Publisher       string         `db:"publisher"`
	PublicationYear sql.NullInt64  `db:"publication_year"`
	ResourceType    string         `db:"resource_type"`
	Description     string         `db:"description"`
	Creators        pq.StringArray `db:"creators"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r resourceRow) toDomain() *domain.Resource {
	return &domain.Resource{
		ID:              r.ID,
		DOI:             nullString(r.DOI),
		Title:           r.Title,
		Publisher:       r.Publisher,
		PublicationYear: int(r.PublicationYear.Int64),
		ResourceType:    r.ResourceType,
		Description:     r.Description,
		Creators:        []string(r.Creators),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
