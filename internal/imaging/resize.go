// Package imaging normalizes uploaded avatar images: any accepted input is
// decoded, scaled to a fixed 200x200 square and re-encoded as PNG before it
// is persisted.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

const avatarSize = 200

// Normalize decodes a JPEG or PNG image and returns it scaled to 200x200,
// PNG-encoded.
func Normalize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
