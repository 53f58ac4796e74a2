package orgs

import (
	"context"
	"sync"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// Repository reads organizations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
}

// InMemoryRepository keeps organizations in a map.
type InMemoryRepository struct {
	mu   sync.RWMutex
	orgs map[string]*Organization
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository(seed ...*Organization) *InMemoryRepository {
	r := &InMemoryRepository{orgs: make(map[string]*Organization)}
	for _, o := range seed {
		r.Put(o)
	}
	return r
}

// Put stores a copy of the organization.
func (r *InMemoryRepository) Put(o *Organization) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *o
	r.orgs[o.ID] = &copied
}

// GetByID returns the organization or a NotFound error.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, apperr.NotFound("orgs.get", "organization not found", ErrOrgNotFound)
	}
	copied := *o
	return &copied, nil
}
