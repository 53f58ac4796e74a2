package messaging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(logging.NewWithWriter(&buf, "info", "json"))
	id, err := s.SendMessage(context.Background(), "+447700900123", "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !strings.HasPrefix(id, "log-") {
		t.Fatalf("unexpected id %q", id)
	}
	if !strings.Contains(buf.String(), "+447700900123") {
		t.Fatalf("expected recipient in log, got %s", buf.String())
	}
}
