// Package templates holds the closed set of landing page templates.
package templates

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

const (
	DefaultTemplate    = "default_gfz"
	DefaultFtpTemplate = "default_gfz_ftp"
)

// Defaults is the registry used when no file is configured.
func Defaults() []domain.Template {
	return []domain.Template{
		{Name: DefaultTemplate, Label: "GFZ Data Services"},
		{Name: DefaultFtpTemplate, Label: "GFZ Data Services (FTP download)", RequiresFtpURL: true},
	}
}

// Registry is safe for concurrent reads while a reload swaps the set.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]domain.Template
	ordered    []domain.Template
	lastReload time.Time
}

func NewRegistry(initial []domain.Template) *Registry {
	r := &Registry{}
	r.Replace(initial)
	return r
}

// Replace swaps the whole set.
func (r *Registry) Replace(list []domain.Template) {
	byName := make(map[string]domain.Template, len(list))
	ordered := make([]domain.Template, 0, len(list))
	for _, t := range list {
		if _, dup := byName[t.Name]; dup {
			continue
		}
		byName[t.Name] = t
		ordered = append(ordered, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = byName
	r.ordered = ordered
	r.lastReload = time.Now()
}

// Lookup returns the template by name.
func (r *Registry) Lookup(name string) (domain.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]
	return t, ok
}

// All returns the templates in declaration order.
func (r *Registry) All() []domain.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Template, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.ordered)
}

func (r *Registry) LastReload() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastReload
}
