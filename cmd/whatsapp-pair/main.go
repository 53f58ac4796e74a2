package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging/whatsapp"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// whatsapp-pair links the device store to a phone. Run it once before
// starting the worker; the QR code is written as a PNG to
// WHATSAPP_QR_PNG_PATH.
func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		logging.Default().Warn("failed to read .env", "error", err)
	}
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	client, err := whatsapp.NewClient(ctx, cfg.WhatsAppDBPath, cfg.WhatsAppLogLevel, logger)
	if err != nil {
		logger.Error("failed to open device store", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if client.IsLoggedIn() {
		logger.Info("device already paired", "db_path", cfg.WhatsAppDBPath)
		return
	}

	if err := client.Connect(ctx, cfg.WhatsAppQRPNGPath); err != nil {
		logger.Error("pairing failed", "error", err)
		client.Close()
		os.Exit(1)
	}
	// Give the session a moment to persist the new device keys.
	time.Sleep(3 * time.Second)
	logger.Info("device paired", "db_path", cfg.WhatsAppDBPath)
}
