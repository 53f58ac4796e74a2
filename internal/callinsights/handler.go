package callinsights

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Handler serves transcript ingestion and insight endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/transcripts", h.Create)
	r.Get("/transcripts", h.List)
	r.Get("/transcripts/summary", h.Summary)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	var req CreateTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("callinsights.create", "invalid request body", nil))
		return
	}
	t, err := h.service.Ingest(r.Context(), orgID, req)
	if err != nil {
		h.logger.Error("transcript ingest failed", "org_id", orgID, "error", err)
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	list, err := h.service.Ranked(r.Context(), orgID)
	if err != nil {
		h.logger.Error("transcript list failed", "org_id", orgID, "error", err)
		apperr.WriteError(w, err)
		return
	}
	if list == nil {
		list = []Transcript{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"transcripts": list})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	var opts Options
	if v := r.URL.Query().Get("snippets"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			apperr.WriteError(w, apperr.Validation("callinsights.summary", "snippets must be an integer", nil))
			return
		}
		opts.Snippets = n
	}
	summary, err := h.service.Summary(r.Context(), orgID, opts)
	if err != nil {
		h.logger.Error("transcript summary failed", "org_id", orgID, "error", err)
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, summary)
}
