package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

var ErrNotConnected = errors.New("whatsapp: client not connected")

type messageSender interface {
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
	IsConnected() bool
}

// Client wraps a whatsmeow session stored in SQLite.
type Client struct {
	wa     *whatsmeow.Client
	logger *logging.Logger
}

// NewClient opens (or creates) the device store at dbPath.
func NewClient(ctx context.Context, dbPath, logLevel string, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if logLevel == "" {
		logLevel = "INFO"
	}
	container, err := sqlstore.New(ctx, "sqlite3", "file:"+dbPath+"?_foreign_keys=on", waLog.Stdout("Database", logLevel, true))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}
	return &Client{
		wa:     whatsmeow.NewClient(device, waLog.Stdout("Client", logLevel, true)),
		logger: logger.WithComponent("whatsapp"),
	}, nil
}

// AddHandler subscribes h to incoming events.
func (c *Client) AddHandler(h *Handler) {
	c.wa.AddEventHandler(h.HandleEvent)
}

// IsLoggedIn reports whether the device has been paired.
func (c *Client) IsLoggedIn() bool {
	return c.wa.Store.ID != nil
}

// Connect opens the session. An unpaired device is paired by QR code: each
// code is written to qrPath as a PNG and Connect returns once the phone has
// scanned it.
func (c *Client) Connect(ctx context.Context, qrPath string) error {
	if c.IsLoggedIn() {
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("whatsapp: connect: %w", err)
		}
		c.logger.Info("whatsapp connected", "jid", c.wa.Store.ID.String())
		return nil
	}

	qrChan, err := c.wa.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp: qr channel: %w", err)
	}
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			if err := WriteQR(evt.Code, qrPath); err != nil {
				c.logger.Error("failed to write pairing qr", "error", err)
				continue
			}
			c.logger.Info("scan the pairing qr code with WhatsApp", "path", qrPath)
		case "success":
			c.logger.Info("whatsapp paired")
			return nil
		case "timeout":
			return errors.New("whatsapp: pairing timed out")
		}
	}
	return ctx.Err()
}

// SendMessage sends a plain text message to phone.
func (c *Client) SendMessage(ctx context.Context, phone, text string) (string, error) {
	return send(ctx, c.wa, phone, text)
}

// Close disconnects without logging the device out.
func (c *Client) Close() {
	c.wa.Disconnect()
}

func send(ctx context.Context, api messageSender, phone, text string) (string, error) {
	if !api.IsConnected() {
		return "", ErrNotConnected
	}
	user := digitsOnly(phone)
	if user == "" {
		return "", fmt.Errorf("whatsapp: invalid phone %q", phone)
	}
	resp, err := api.SendMessage(ctx, types.NewJID(user, types.DefaultUserServer), &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: send: %w", err)
	}
	return string(resp.ID), nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
