package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, orgID, id string) (*Lead, error)
	GetByPhone(ctx context.Context, orgID, phone string) (*Lead, error)
	ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error)
	UpdateStatus(ctx context.Context, orgID, id string, status Status) error
	SetMetadata(ctx context.Context, orgID, id, key, value string) error
}

func notFound(op string) error {
	return apperr.NotFound(op, "lead not found", ErrLeadNotFound)
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create creates a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	lead := &Lead{
		ID:        uuid.New().String(),
		OrgID:     req.OrgID,
		Name:      req.Name,
		Phone:     NormalizePhone(req.Phone),
		Email:     req.Email,
		Status:    StatusNew,
		Source:    req.Source,
		Metadata:  copyMetadata(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return cloneLead(lead), nil
}

// GetByID retrieves a lead by ID within an organization
func (r *InMemoryRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return nil, notFound("leads.get")
	}
	return cloneLead(lead), nil
}

// GetByPhone finds the lead with the given phone within an organization.
func (r *InMemoryRepository) GetByPhone(ctx context.Context, orgID, phone string) (*Lead, error) {
	phone = NormalizePhone(phone)
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.OrgID == orgID && lead.Phone == phone {
			return cloneLead(lead), nil
		}
	}
	return nil, notFound("leads.get_by_phone")
}

// ListByOrg returns leads newest first.
func (r *InMemoryRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.RLock()
	var out []*Lead
	for _, lead := range r.leads {
		if lead.OrgID != orgID {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		out = append(out, cloneLead(lead))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*Lead{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateStatus sets the lead status.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, orgID, id string, status Status) error {
	if !status.Valid() {
		return apperr.Validation("leads.update_status", ErrInvalidStatus.Error(), map[string]any{"status": string(status)})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return notFound("leads.update_status")
	}
	lead.Status = status
	lead.UpdatedAt = r.now()
	return nil
}

// SetMetadata sets one metadata key.
func (r *InMemoryRepository) SetMetadata(ctx context.Context, orgID, id, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return notFound("leads.set_metadata")
	}
	if lead.Metadata == nil {
		lead.Metadata = make(map[string]string)
	}
	lead.Metadata[key] = value
	lead.UpdatedAt = r.now()
	return nil
}

func cloneLead(l *Lead) *Lead {
	copied := *l
	copied.Metadata = copyMetadata(l.Metadata)
	return &copied
}

func copyMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
