package domain

import (
	"strings"
	"time"
)

// Resource is the curated metadata record a landing page belongs to.
// Its lifecycle is owned by the metadata editor; this service only reads it.
type Resource struct {
	ID              int64
	DOI             *string
	Title           string
	Publisher       string
	PublicationYear int
	ResourceType    string
	Description     string
	Creators        []string
	UpdatedAt       time.Time
}

// Identifier returns the trimmed DOI, or nil when the resource has none.
func (r *Resource) Identifier() *string {
	if r == nil || r.DOI == nil {
		return nil
	}
	doi := strings.TrimSpace(*r.DOI)
	if doi == "" {
		return nil
	}
	return &doi
}
