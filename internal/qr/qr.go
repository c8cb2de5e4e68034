// Package qr renders the scannable verification reference for a ticket:
// a QR code encoding the URL of the ticket's detail page.
package qr

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

// pngSize is the pixel edge length of generated QR images. Large enough
// to scan from a phone screen held up to a reader.
const pngSize = 256

// PNG returns a QR code image for the given content.
func PNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, pngSize)
}

// DataURL returns the QR code as a base64 data URL suitable for
// embedding directly in an <img> tag or a JSON API response.
func DataURL(content string) (string, error) {
	png, err := PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
