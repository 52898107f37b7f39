package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// Resources reads the research-data records that own landing pages.
type Resources struct {
	db *sqlx.DB
}

func NewResources(db *sqlx.DB) *Resources {
	return &Resources{db: db}
}

// GetResource returns nil, nil when the resource does not exist.
func (r *Resources) GetResource(ctx context.Context, id int64) (*domain.Resource, error) {
	var row resourceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, doi, title, publisher, publication_year, resource_type,
		       description, creators, updated_at
		FROM resources WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}
