package whatsapp

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRPath = "whatsapp_qr.png"

// WriteQR renders a pairing code as a PNG at path.
func WriteQR(code, path string) error {
	if path == "" {
		path = defaultQRPath
	}
	if err := qrcode.WriteFile(code, qrcode.Medium, 512, path); err != nil {
		return fmt.Errorf("whatsapp: write qr png: %w", err)
	}
	return nil
}
