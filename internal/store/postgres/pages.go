// Package postgres persists landing pages and reads resources from
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// LandingPages implements landing.Repository
type LandingPages struct {
	db *sqlx.DB
}

func NewLandingPages(db *sqlx.DB) *LandingPages {
	return &LandingPages{db: db}
}

func (s *LandingPages) get(ctx context.Context, query string, args ...any) (*domain.LandingPage, error) {
	var row pageRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *LandingPages) FindByResourceID(ctx context.Context, resourceID int64) (*domain.LandingPage, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM landing_pages WHERE resource_id = $1`, resourceID)
}

func (s *LandingPages) FindByDoiPrefixAndSlug(ctx context.Context, doiPrefix, slug string) (*domain.LandingPage, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM landing_pages WHERE doi_prefix = $1 AND slug = $2`, doiPrefix, slug)
}

// FindDraftByResourceAndSlug only matches pages still in the draft
// namespace (no DOI captured yet).
func (s *LandingPages) FindDraftByResourceAndSlug(ctx context.Context, resourceID int64, slug string) (*domain.LandingPage, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM landing_pages
		WHERE resource_id = $1 AND slug = $2 AND doi_prefix IS NULL`, resourceID, slug)
}

func (s *LandingPages) SlugTaken(ctx context.Context, doiPrefix, slug string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.GetContext(ctx, &taken, `SELECT EXISTS (
		SELECT 1 FROM landing_pages WHERE doi_prefix = $1 AND slug = $2 AND id <> $3
	)`, doiPrefix, slug, excludeID)
	return taken, err
}

func (s *LandingPages) Insert(ctx context.Context, page *domain.LandingPage) error {
	var out struct {
		ID        int64        `db:"id"`
		CreatedAt sql.NullTime `db:"created_at"`
		UpdatedAt sql.NullTime `db:"updated_at"`
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO landing_pages
			(resource_id, preview_token, template, ftp_url, doi_prefix, slug, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		page.ResourceID, page.PreviewToken, page.Template, toNullString(page.FtpURL),
		toNullString(page.DoiPrefix), page.Slug, string(page.Status), toNullTime(page.PublishedAt),
	).StructScan(&out)
	if err != nil {
		return mapError(err)
	}

	page.ID = out.ID
	page.CreatedAt = out.CreatedAt.Time.UTC()
	page.UpdatedAt = out.UpdatedAt.Time.UTC()
	return nil
}

// Update writes the mutable columns. view_count is left alone so that
// concurrent increments are never overwritten.
func (s *LandingPages) Update(ctx context.Context, page *domain.LandingPage) error {
	var updatedAt sql.NullTime
	err := s.db.QueryRowxContext(ctx, `
		UPDATE landing_pages
		SET template = $2, ftp_url = $3, doi_prefix = $4, slug = $5,
		    status = $6, published_at = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		page.ID, page.Template, toNullString(page.FtpURL), toNullString(page.DoiPrefix),
		page.Slug, string(page.Status), toNullTime(page.PublishedAt),
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return mapError(err)
	}
	page.UpdatedAt = updatedAt.Time.UTC()
	return nil
}

// Delete removes a draft page. The status condition keeps a page published
// between read and delete from disappearing.
func (s *LandingPages) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM landing_pages WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		var status string
		err := s.db.GetContext(ctx, &status, `SELECT status FROM landing_pages WHERE id = $1`, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrNotFound
		case err != nil:
			return err
		default:
			return domain.ErrCannotDeletePublished
		}
	}
	return nil
}

// IncrementViewCount is a single atomic UPDATE.
func (s *LandingPages) IncrementViewCount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE landing_pages SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
