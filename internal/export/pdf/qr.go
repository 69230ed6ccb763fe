package pdf

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// encodeQRCode renders content as a square PNG of size pixels.
func encodeQRCode(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}
	return png, nil
}
