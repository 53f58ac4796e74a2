package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Schofield90/whatsapp-lead-system/internal/app/bootstrap"
	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/conversation"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// The worker owns the WhatsApp session in queued deployments: it receives
// device events, and it consumes the queue the API's webhook fills.
func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		logging.Default().Warn("failed to read .env", "error", err)
	}
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	if cfg.ConversationQueueURL == "" {
		logger.Error("conversation worker requires CONVERSATION_QUEUE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wa := bootstrap.ConnectWhatsApp(ctx, cfg, logger)
	var sender messaging.Sender
	if wa != nil {
		sender = wa
		defer wa.Close()
	}

	rt, err := bootstrap.Open(ctx, cfg, sender, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.Error("failed to start conversation worker", "error", err)
		os.Exit(1)
	}
	defer rt.Close()
	if rt.Queue == nil {
		logger.Error("conversation queue not configured")
		os.Exit(1)
	}

	if wa != nil {
		if err := bootstrap.StartWhatsApp(ctx, wa, cfg, rt.Dispatcher, logger); err != nil {
			logger.Error("whatsapp connect failed", "error", err)
		}
	}

	worker := conversation.NewWorker(rt.Conversation, rt.Queue, logger,
		conversation.WithReceiveWaitSeconds(20),
		conversation.WithReceiveBatchSize(10),
	)
	worker.Start(ctx)
	logger.Info("conversation worker started", "queue_url", cfg.ConversationQueueURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
}
