package reminders

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Handler provides HTTP endpoints for the reminder admin dashboard.
type Handler struct {
	store   Store
	sweeper *Sweeper
	logger  *logging.Logger
	now     func() time.Time
}

// NewHandler creates a reminder HTTP handler. sweeper may be nil when sweeps
// only run out of process.
func NewHandler(store Store, sweeper *Sweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, sweeper: sweeper, logger: logger, now: time.Now}
}

// Routes mounts the org-scoped reminder endpoints.
// Expected to be mounted under /admin/orgs/{orgID}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/reminders", h.listReminders)
	r.Get("/reminders/stats", h.getStats)
	r.Get("/bookings/{bookingID}/reminders", h.listForBooking)
}

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	status := Status(r.URL.Query().Get("status"))
	switch status {
	case "", StatusPending, StatusSent, StatusFailed, StatusCancelled:
	default:
		apperr.WriteError(w, apperr.Validation("reminders.list", "unknown status", map[string]any{"status": status}))
		return
	}
	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	list, err := h.store.ListByOrg(r.Context(), orgID, status, limit)
	if err != nil {
		h.logger.Error("reminders handler: list reminders", "error", err, "org_id", orgID)
		apperr.WriteError(w, err)
		return
	}
	if list == nil {
		list = []Reminder{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"reminders": list,
		"count":     len(list),
	})
}

func (h *Handler) listForBooking(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	list, err := h.store.ListByBooking(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.logger.Error("reminders handler: list for booking", "error", err, "org_id", orgID)
		apperr.WriteError(w, err)
		return
	}
	scoped := make([]Reminder, 0, len(list))
	for _, rem := range list {
		if rem.OrgID == orgID {
			scoped = append(scoped, rem)
		}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"reminders": scoped,
		"count":     len(scoped),
	})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	stats, err := h.store.Stats(r.Context(), orgID)
	if err != nil {
		h.logger.Error("reminders handler: stats", "error", err, "org_id", orgID)
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, stats)
}

// Sweep handles POST /admin/reminders/sweep and runs one sweep inline.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		apperr.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reminder sweeper not configured"})
		return
	}
	result, err := h.sweeper.Sweep(r.Context(), h.now())
	if err != nil {
		h.logger.Error("reminders handler: sweep", "error", err)
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}
