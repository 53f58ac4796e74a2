package bootstrap

import (
	"context"

	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging/whatsapp"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// ConnectWhatsApp opens the paired device store when WhatsApp is enabled.
// An unpaired device is reported and skipped; pair it with whatsapp-pair.
func ConnectWhatsApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *whatsapp.Client {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || !cfg.WhatsAppEnabled {
		logger.Info("whatsapp disabled; outbound messages will only be logged")
		return nil
	}
	if cfg.WhatsAppOrgID == "" {
		logger.Error("WHATSAPP_ORG_ID is required when whatsapp is enabled")
		return nil
	}
	client, err := whatsapp.NewClient(ctx, cfg.WhatsAppDBPath, cfg.WhatsAppLogLevel, logger)
	if err != nil {
		logger.Error("failed to open whatsapp device store", "error", err, "path", cfg.WhatsAppDBPath)
		return nil
	}
	if !client.IsLoggedIn() {
		logger.Error("whatsapp device is not paired; run whatsapp-pair first", "path", cfg.WhatsAppDBPath)
		client.Close()
		return nil
	}
	return client
}

// StartWhatsApp subscribes the inbound handler and opens the session. The
// handler dispatches until ctx is done.
func StartWhatsApp(ctx context.Context, client *whatsapp.Client, cfg *appconfig.Config, dispatcher whatsapp.Dispatcher, logger *logging.Logger) error {
	handler := whatsapp.NewHandler(cfg.WhatsAppOrgID, dispatcher, logger)
	client.AddHandler(handler)
	go handler.Run(ctx)
	return client.Connect(ctx, cfg.WhatsAppQRPNGPath)
}
