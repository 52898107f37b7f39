package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

const (
	constraintResourceUnique = "landing_pages_resource_id_key"
	constraintSlugUnique     = "landing_pages_doi_prefix_slug_key"
	constraintPublishedGuard = "landing_pages_published_guard"
)

// mapError turns constraint violations into domain errors. Anything else
// is returned unchanged.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pgerrcode.UniqueViolation:
		switch pqErr.Constraint {
		case constraintResourceUnique:
			return domain.ErrDuplicateLandingPage
		case constraintSlugUnique:
			return domain.ErrSlugConflict
		}
	case pgerrcode.ForeignKeyViolation:
		return domain.ErrNotFound
	case pgerrcode.CheckViolation:
		if pqErr.Constraint == constraintPublishedGuard {
			return domain.ErrCannotUnpublish
		}
	}
	return err
}
