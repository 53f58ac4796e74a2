package bookings

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

// Handler serves the org-scoped booking admin endpoints.
type Handler struct {
	orchestrator *Orchestrator
	store        Store
	logger       *logging.Logger
}

func NewHandler(orchestrator *Orchestrator, store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, store: store, logger: logger}
}

// Routes mounts the booking endpoints. Expected under /admin/orgs/{orgID}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/bookings", h.list)
	r.Post("/bookings", h.create)
	r.Get("/bookings/{bookingID}", h.get)
	r.Post("/bookings/{bookingID}/cancel", h.cancel)
	r.Post("/bookings/{bookingID}/complete", h.complete)
	r.Post("/bookings/{bookingID}/no-show", h.noShow)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		LeadID: r.URL.Query().Get("lead_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		apperr.WriteError(w, apperr.Validation("bookings.list", "unknown status", map[string]any{"status": filter.Status}))
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	list, err := h.store.ListByOrg(r.Context(), orgID, filter)
	if err != nil {
		h.logger.Error("list bookings failed", "error", err, "org_id", orgID)
		apperr.WriteError(w, err)
		return
	}
	if list == nil {
		list = []Booking{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"bookings": list, "count": len(list)})
}

// create books a call for a lead from free text, as if the lead had sent it.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("bookings.book", "invalid request body", nil))
		return
	}
	req.OrgID, _ = tenancy.OrgIDFromContext(r.Context())
	b, err := h.orchestrator.Book(r.Context(), req)
	if err != nil && (apperr.Is(err, apperr.KindValidation) || apperr.Is(err, apperr.KindNotFound)) {
		apperr.WriteError(w, err)
		return
	}
	if err != nil {
		stage, _ := StageOf(err)
		apperr.WriteJSON(w, apperr.HTTPStatus(apperr.KindOf(err)), map[string]any{
			"error": map[string]any{
				"kind":    apperr.KindOf(err),
				"stage":   stage,
				"message": ApologyFor(err),
			},
		})
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	b, err := h.store.Get(r.Context(), orgID, chi.URLParam(r, "bookingID"))
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orchestrator.Cancel)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orchestrator.Complete)
}

func (h *Handler) noShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orchestrator.MarkNoShow)
}

type transitionFunc func(ctx context.Context, orgID, bookingID string) (*Booking, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	b, err := fn(r.Context(), orgID, chi.URLParam(r, "bookingID"))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.logger.Error("booking transition failed", "error", err, "org_id", orgID)
		}
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, b)
}
