// Package qr is the QR encoding collaborator: a pure function from text to
// a raster image.
package qr

import qrcode "github.com/skip2/go-qrcode"

type Encoder interface {
	Encode(text string) ([]byte, error)
}

type pngEncoder struct {
	size int
}

// NewEncoder returns an Encoder producing PNG images of the given pixel size.
func NewEncoder(size int) Encoder {
	if size <= 0 {
		size = 256
	}
	return &pngEncoder{size: size}
}

func (e *pngEncoder) Encode(text string) ([]byte, error) {
	return qrcode.Encode(text, qrcode.Medium, e.size)
}
