// Package qr renders pairing QR payloads for the terminal and as images.
package qr

import (
	"encoding/base64"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// ErrEmpty is returned for an empty payload.
var ErrEmpty = errors.New("qr payload is empty")

func encode(data string) (*qrcode.QRCode, error) {
	if data == "" {
		return nil, ErrEmpty
	}
	q, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return q, nil
}

// Terminal renders data with half-height block characters. Inverted output
// suits light terminal backgrounds.
func Terminal(data string, inverted bool) (string, error) {
	q, err := encode(data)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(inverted), nil
}

// PNG encodes data as a PNG image.
func PNG(data string, size int) ([]byte, error) {
	q, err := encode(data)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}

// WritePNG writes data as a PNG file at path.
func WritePNG(path, data string, size int) error {
	if data == "" {
		return ErrEmpty
	}
	if size <= 0 {
		size = DefaultSize
	}
	if err := qrcode.WriteFile(data, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("failed to write QR image: %w", err)
	}
	return nil
}

// DataURL returns the PNG as a data: URL for embedding in HTML.
func DataURL(data string) (string, error) {
	png, err := PNG(data, DefaultSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
