package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/internal/tenancy"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Dispatcher accepts inbound messages for processing, inline or queued.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg messaging.InboundMessage) error
}

// Handler serves the inbound webhook and the conversation admin endpoints.
type Handler struct {
	dispatcher Dispatcher
	assembler  *Assembler
	store      Store
	builders   map[Variant]PromptBuilder
	ledger     *CostLedger
	logger     *logging.Logger
	now        func() time.Time
}

func NewHandler(dispatcher Dispatcher, assembler *Assembler, store Store, builders map[Variant]PromptBuilder, ledger *CostLedger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		assembler:  assembler,
		store:      store,
		builders:   builders,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
	}
}

// Routes mounts the org-scoped admin endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/leads/{leadID}/prompt", h.PreviewPrompt)
	r.Get("/leads/{leadID}/messages", h.ListMessages)
}

type inboundWebhookRequest struct {
	OrgID     string    `json:"org_id"`
	From      string    `json:"from"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// InboundWebhook handles POST /webhooks/whatsapp for bridges that relay
// WhatsApp messages over HTTP.
func (h *Handler) InboundWebhook(w http.ResponseWriter, r *http.Request) {
	var req inboundWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("conversation.webhook", "invalid request body", nil))
		return
	}
	if strings.TrimSpace(req.OrgID) == "" || strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.Body) == "" {
		apperr.WriteError(w, apperr.Validation("conversation.webhook", "org_id, from and body are required", nil))
		return
	}
	received := req.Timestamp
	if received.IsZero() {
		received = h.now().UTC()
	}
	msg := messaging.InboundMessage{
		OrgID:             req.OrgID,
		From:              req.From,
		SenderName:        req.Name,
		Body:              req.Body,
		ProviderMessageID: req.MessageID,
		ReceivedAt:        received,
	}
	if err := h.dispatcher.Dispatch(r.Context(), msg); err != nil {
		h.logger.Error("inbound dispatch failed", "error", err, "org_id", req.OrgID)
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Costs handles GET /admin/costs.
func (h *Handler) Costs(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, h.ledger.Report(h.now()))
}

type promptPreviewResponse struct {
	LeadID  string   `json:"lead_id"`
	Prompts []Prompt `json:"prompts"`
}

// PreviewPrompt renders the system prompt a lead's next reply would use.
// ?variant=full|optimized selects one builder; by default both are shown.
func (h *Handler) PreviewPrompt(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	leadID := chi.URLParam(r, "leadID")

	variants := []Variant{VariantFull, VariantOptimized}
	if v := Variant(r.URL.Query().Get("variant")); v != "" {
		if _, ok := h.builders[v]; !ok {
			apperr.WriteError(w, apperr.Validation("conversation.prompt", "unknown variant", map[string]any{"variant": v}))
			return
		}
		variants = []Variant{v}
	}

	cc, err := h.assembler.Assemble(r.Context(), orgID, leadID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	resp := promptPreviewResponse{LeadID: leadID}
	for _, v := range variants {
		builder, ok := h.builders[v]
		if !ok {
			continue
		}
		p, err := builder.Build(cc)
		if err != nil {
			apperr.WriteError(w, err)
			return
		}
		resp.Prompts = append(resp.Prompts, p)
	}
	apperr.WriteJSON(w, http.StatusOK, resp)
}

// ListMessages returns the lead's recent messages, oldest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	conv, err := h.store.GetForLead(r.Context(), orgID, chi.URLParam(r, "leadID"))
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	msgs, err := h.store.RecentMessages(r.Context(), conv.ID, 50)
	if err != nil {
		h.logger.Error("list messages failed", "error", err, "conversation_id", conv.ID)
		apperr.WriteError(w, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"conversation": conv, "messages": msgs})
}
