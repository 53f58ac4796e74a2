package followups

import (
	"net/http"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Handler exposes a manual trigger for the follow-up sweep.
type Handler struct {
	sweeper *Sweeper
	logger  *logging.Logger
	now     func() time.Time
}

func NewHandler(sweeper *Sweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sweeper: sweeper, logger: logger, now: time.Now}
}

// Sweep handles POST /admin/followups/sweep.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		apperr.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "follow-ups not configured"})
		return
	}
	res, err := h.sweeper.Sweep(r.Context(), h.now().UTC())
	if err != nil {
		h.logger.Error("follow-up sweep failed", "error", err)
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}
