package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
)

type recordingHandler struct {
	mu   sync.Mutex
	msgs []messaging.InboundMessage
	done chan struct{}
}

func (h *recordingHandler) HandleInbound(ctx context.Context, msg messaging.InboundMessage) (*Outcome, error) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
	h.done <- struct{}{}
	return &Outcome{LeadID: "lead-1"}, nil
}

func TestQueueDispatcherAndWorker(t *testing.T) {
	queue := NewMemoryQueue(4)
	handler := &recordingHandler{done: make(chan struct{}, 2)}
	worker := NewWorker(handler, queue, nil, WithReceiveWaitSeconds(1), WithReceiveBatchSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	dispatcher := NewQueueDispatcher(queue, nil)
	require.NoError(t, dispatcher.Dispatch(ctx, inbound("+447700900123", "first", "wamid-1")))
	require.NoError(t, dispatcher.Dispatch(ctx, inbound("+447700900123", "second", "wamid-2")))

	for i := 0; i < 2; i++ {
		select {
		case <-handler.done:
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for worker")
		}
	}
	cancel()
	worker.Wait()

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.msgs, 2)
	assert.Equal(t, "first", handler.msgs[0].Body)
	assert.Equal(t, "wamid-2", handler.msgs[1].ProviderMessageID)
}

func TestWorkerDropsUndecodableJobs(t *testing.T) {
	queue := NewMemoryQueue(1)
	handler := &recordingHandler{done: make(chan struct{}, 1)}
	worker := NewWorker(handler, queue, nil)

	worker.handleMessage(context.Background(), queueMessage{ID: "q-1", Body: "{not json", ReceiptHandle: "r-1"})
	assert.Empty(t, handler.msgs)
}

func TestMemoryQueueReceiveTimeout(t *testing.T) {
	queue := NewMemoryQueue(1)
	msgs, err := queue.Receive(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = queue.Receive(ctx, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
