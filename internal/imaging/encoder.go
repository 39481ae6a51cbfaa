package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	"github.com/gen2brain/webp"
)

// Encoder writes an image in one target format at a fixed quality.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	// Ext is the file extension, without the dot, for encoded output.
	Ext() string
}

// NewEncoder returns the encoder for format ("webp" or "jpeg") at quality
// 1..100.
func NewEncoder(format string, quality int) (Encoder, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("encoder quality %d out of range 1..100", quality)
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "webp":
		return webpEncoder{quality: quality}, nil
	case "jpeg", "jpg":
		return jpegEncoder{quality: quality}, nil
	default:
		return nil, fmt.Errorf("unsupported target format %q", format)
	}
}

type webpEncoder struct {
	quality int
}

func (e webpEncoder) Encode(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, webp.Options{Quality: e.quality, Method: 6})
}

func (webpEncoder) Ext() string { return "webp" }

type jpegEncoder struct {
	quality int
}

func (e jpegEncoder) Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: e.quality})
}

func (jpegEncoder) Ext() string { return "jpg" }
