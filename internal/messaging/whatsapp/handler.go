package whatsapp

import (
	"context"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Dispatcher receives inbound lead messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg messaging.InboundMessage) error
}

// Handler turns whatsmeow message events into InboundMessages for one
// organization and hands them to a Dispatcher one at a time.
type Handler struct {
	orgID      string
	dispatcher Dispatcher
	logger     *logging.Logger
	queue      chan messaging.InboundMessage
}

func NewHandler(orgID string, dispatcher Dispatcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		orgID:      orgID,
		dispatcher: dispatcher,
		logger:     logger.WithComponent("whatsapp"),
		queue:      make(chan messaging.InboundMessage, 100),
	}
}

// HandleEvent is registered with the whatsmeow client. It must not block.
func (h *Handler) HandleEvent(evt interface{}) {
	msg, ok := evt.(*events.Message)
	if !ok {
		return
	}
	inbound, ok := h.toInbound(msg)
	if !ok {
		return
	}
	select {
	case h.queue <- inbound:
	default:
		h.logger.Warn("inbound queue full, dropping message", "message_id", inbound.ProviderMessageID)
	}
}

// Run dispatches queued messages sequentially until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.queue:
			if err := h.dispatcher.Dispatch(ctx, msg); err != nil {
				h.logger.Error("inbound dispatch failed", "error", err, "message_id", msg.ProviderMessageID)
			}
		}
	}
}

func (h *Handler) toInbound(msg *events.Message) (messaging.InboundMessage, bool) {
	if msg.Info.IsFromMe || msg.Info.IsGroup {
		return messaging.InboundMessage{}, false
	}
	text := extractText(msg)
	if text == "" {
		return messaging.InboundMessage{}, false
	}
	return messaging.InboundMessage{
		OrgID:             h.orgID,
		From:              "+" + msg.Info.Sender.User,
		SenderName:        msg.Info.PushName,
		Body:              text,
		ProviderMessageID: string(msg.Info.ID),
		ReceivedAt:        msg.Info.Timestamp.UTC(),
	}, true
}

func extractText(msg *events.Message) string {
	m := msg.Message
	if m == nil {
		return ""
	}
	if m.GetConversation() != "" {
		return m.GetConversation()
	}
	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := m.GetImageMessage(); img != nil && img.GetCaption() != "" {
		return "[Image] " + img.GetCaption()
	}
	if vid := m.GetVideoMessage(); vid != nil && vid.GetCaption() != "" {
		return "[Video] " + vid.GetCaption()
	}
	return ""
}
