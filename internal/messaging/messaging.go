package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Sender delivers a text message to a phone number and returns the
// provider's message id.
type Sender interface {
	SendMessage(ctx context.Context, phone, text string) (string, error)
}

// InboundMessage is a message received from a lead.
type InboundMessage struct {
	OrgID             string    `json:"org_id"`
	From              string    `json:"from"`
	SenderName        string    `json:"name,omitempty"`
	Body              string    `json:"body"`
	ProviderMessageID string    `json:"message_id,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

// LogSender logs messages instead of delivering them. Used when no
// WhatsApp device is paired.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendMessage(ctx context.Context, phone, text string) (string, error) {
	id := "log-" + uuid.NewString()
	s.logger.Info("outbound message (not delivered)", "to", phone, "chars", len(text), "message_id", id)
	return id, nil
}
