package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("invalid preview token")
	ErrDuplicateLandingPage  = errors.New("resource already has a landing page")
	ErrCannotUnpublish       = errors.New("a published landing page cannot be set back to draft")
	ErrCannotDeletePublished = errors.New("a published landing page cannot be deleted")

	// ErrSlugConflict is returned by stores when (doi_prefix, slug) is already taken.
	ErrSlugConflict = errors.New("slug already taken for this identifier")
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field error.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// OrNil returns e as an error when it holds at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
