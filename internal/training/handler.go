package training

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Handler exposes admin endpoints for training data and the knowledge base.
type Handler struct {
	store     Store
	knowledge KnowledgeBase
	logger    *logging.Logger
}

func NewHandler(store Store, knowledge KnowledgeBase, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, knowledge: knowledge, logger: logger}
}

// Routes mounts the handler under an org-scoped router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/training", h.List)
	r.Post("/training", h.Create)
	r.Put("/training/{entryID}", h.Update)
	r.Delete("/training/{entryID}", h.Deactivate)
	r.Get("/knowledge", h.ListKnowledge)
	r.Post("/knowledge", h.AppendKnowledge)
	r.Put("/knowledge", h.ReplaceKnowledge)
}

type createRequest struct {
	DataType DataType `json:"data_type"`
	Content  string   `json:"content"`
}

type updateRequest struct {
	Content string `json:"content"`
}

type knowledgeRequest struct {
	Entries []string `json:"entries"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	entries, err := h.store.List(r.Context(), orgID)
	if err != nil {
		h.fail(w, "list training failed", err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("training.create", "invalid request body", nil))
		return
	}
	entry, err := h.store.Create(r.Context(), orgID, req.DataType, req.Content)
	if err != nil {
		h.fail(w, "create training failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("training.update", "invalid request body", nil))
		return
	}
	entry, err := h.store.Update(r.Context(), orgID, chi.URLParam(r, "entryID"), req.Content)
	if err != nil {
		h.fail(w, "update training failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	if err := h.store.Deactivate(r.Context(), orgID, chi.URLParam(r, "entryID")); err != nil {
		h.fail(w, "deactivate training failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.knowledge == nil {
		apperr.WriteJSON(w, http.StatusOK, map[string]any{"entries": []string{}})
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	entries, err := h.knowledge.List(r.Context(), orgID)
	if err != nil {
		h.fail(w, "list knowledge failed", err)
		return
	}
	if entries == nil {
		entries = []string{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) AppendKnowledge(w http.ResponseWriter, r *http.Request) {
	h.writeKnowledge(w, r, false)
}

func (h *Handler) ReplaceKnowledge(w http.ResponseWriter, r *http.Request) {
	h.writeKnowledge(w, r, true)
}

func (h *Handler) writeKnowledge(w http.ResponseWriter, r *http.Request, replace bool) {
	if h.knowledge == nil {
		http.Error(w, "knowledge base not configured", http.StatusServiceUnavailable)
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("training.knowledge", "invalid request body", nil))
		return
	}
	var err error
	if replace {
		err = h.knowledge.Replace(r.Context(), orgID, req.Entries)
	} else {
		err = h.knowledge.Append(r.Context(), orgID, req.Entries)
	}
	if err != nil {
		h.fail(w, "write knowledge failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(msg, "error", err)
	}
	apperr.WriteError(w, err)
}
