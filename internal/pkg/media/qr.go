package media

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the pixel size of share codes.
const DefaultQRSize = 256

// ShareQR renders content (usually a share URL) as a PNG QR code.
func ShareQR(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
