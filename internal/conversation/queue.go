package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// inboundJob is the queued form of an inbound WhatsApp message.
type inboundJob struct {
	ID      string                   `json:"id"`
	Message messaging.InboundMessage `json:"message"`
}

func encodeJob(msg messaging.InboundMessage) (string, error) {
	body, err := json.Marshal(inboundJob{ID: uuid.NewString(), Message: msg})
	if err != nil {
		return "", fmt.Errorf("conversation: encode job: %w", err)
	}
	return string(body), nil
}

// QueueDispatcher defers inbound messages to a queue consumed by a Worker.
type QueueDispatcher struct {
	queue  queueClient
	logger *logging.Logger
}

func NewQueueDispatcher(queue queueClient, logger *logging.Logger) *QueueDispatcher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QueueDispatcher{queue: queue, logger: logger}
}

// Dispatch enqueues msg for asynchronous handling.
func (d *QueueDispatcher) Dispatch(ctx context.Context, msg messaging.InboundMessage) error {
	body, err := encodeJob(msg)
	if err != nil {
		return err
	}
	if err := d.queue.Send(ctx, body); err != nil {
		return err
	}
	d.logger.Debug("inbound message queued", "org_id", msg.OrgID, "message_id", msg.ProviderMessageID)
	return nil
}
