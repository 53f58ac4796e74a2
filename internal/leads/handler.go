package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Starter opens the WhatsApp conversation for a newly captured lead.
type Starter interface {
	StartConversation(ctx context.Context, lead *Lead, firstMessage string) error
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo    Repository
	starter Starter
	logger  *logging.Logger
}

// NewHandler creates a new leads handler. starter may be nil, in which case
// leads are stored without an opening message.
func NewHandler(repo Repository, starter Starter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:    repo,
		starter: starter,
		logger:  logger,
	}
}

// CreateLead handles POST /admin/orgs/{orgID}/leads requests
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		apperr.WriteError(w, apperr.Validation("leads.create", "invalid request body", nil))
		return
	}

	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		apperr.WriteError(w, apperr.Validation("leads.create", "missing org context", nil))
		return
	}
	req.OrgID = orgID
	if req.Source == "" {
		req.Source = "manual"
	}

	lead, created, err := h.createOrGet(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create lead", "error", err, "org_id", orgID)
		apperr.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	apperr.WriteJSON(w, status, lead)
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/orgs/{orgID}/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		apperr.WriteError(w, apperr.Validation("leads.list", "missing org context", nil))
		return
	}

	filter := ListLeadsFilter{
		Limit:  50,
		Offset: 0,
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = Status(status)
	}

	leads, err := h.repo.ListByOrg(r.Context(), orgID, filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err, "org_id", orgID)
		apperr.WriteError(w, err)
		return
	}

	apperr.WriteJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/orgs/{orgID}/leads/{leadID}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	lead, err := h.repo.GetByID(r.Context(), orgID, chi.URLParam(r, "leadID"))
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, lead)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus handles PATCH /admin/orgs/{orgID}/leads/{leadID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	leadID := chi.URLParam(r, "leadID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("leads.update_status", "invalid request body", nil))
		return
	}
	if err := h.repo.UpdateStatus(r.Context(), orgID, leadID, req.Status); err != nil {
		apperr.WriteError(w, err)
		return
	}
	h.logger.Info("lead status updated", "org_id", orgID, "lead_id", leadID, "status", req.Status)
	w.WriteHeader(http.StatusNoContent)
}

// createOrGet returns the existing lead for the phone when one exists so
// webhook re-deliveries do not duplicate leads or opening messages.
func (h *Handler) createOrGet(ctx context.Context, req *CreateLeadRequest) (*Lead, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	existing, err := h.repo.GetByPhone(ctx, req.OrgID, req.Phone)
	if err == nil {
		return existing, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, false, err
	}

	lead, err := h.repo.Create(ctx, req)
	if err != nil {
		return nil, false, err
	}
	h.logger.Info("lead created", "id", lead.ID, "org_id", lead.OrgID, "source", lead.Source)

	if h.starter != nil {
		if err := h.starter.StartConversation(ctx, lead, req.Message); err != nil {
			h.logger.Error("failed to start conversation", "error", err, "lead_id", lead.ID, "org_id", lead.OrgID)
		}
	}
	return lead, true, nil
}
