package memory

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// Resources is an in-memory resource reader.
type Resources struct {
	mu        sync.RWMutex
	resources map[int64]*domain.Resource
}

func NewResources(list ...*domain.Resource) *Resources {
	r := &Resources{resources: make(map[int64]*domain.Resource, len(list))}
	for _, res := range list {
		r.Put(res)
	}
	return r
}

// Put adds or replaces a resource.
func (r *Resources) Put(res *domain.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *res
	r.resources[res.ID] = &c
}

func (r *Resources) GetResource(_ context.Context, id int64) (*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, nil
	}
	c := *res
	return &c, nil
}
