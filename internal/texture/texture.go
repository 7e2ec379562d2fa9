// Package texture decodes glTF image payloads into RGBA pixels ready for upload.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned when neither the mime type nor the payload
// identifies a supported image format.
var ErrUnknownFormat = errors.New("texture: unknown image format")

// Decode decodes an image payload. When mime is empty the format is sniffed
// from the leading bytes.
func Decode(data []byte, mime string) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("texture: empty payload")
	}
	if mime == "" {
		mime = Sniff(data)
	}

	switch strings.ToLower(mime) {
	case "image/tga", "image/x-tga", "image/x-targa":
		return DecodeTGA(data)
	case "image/png", "image/jpeg", "image/jpg", "image/webp", "image/bmp", "image/x-ms-bmp":
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("texture: decode %s: %w", mime, err)
		}
		return ImageToRGBA(img), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, mime)
	}
}

// Sniff returns the mime type of an image payload, or "" when unknown.
// TGA has no magic number, so it is assumed for headers that look like an
// uncompressed or RLE true-color file.
func Sniff(data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if looksLikeTGA(data) {
		return "image/tga"
	}
	return ""
}

// ImageToRGBA converts img to *image.RGBA, returning it unchanged when it
// already is one with a zero origin.
func ImageToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// FlipVertical mirrors img top to bottom in place.
func FlipVertical(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

// IsPowerOfTwo reports whether both dimensions are powers of two, which
// mipmapped and repeating samplers need on WebGL 1 class hardware.
func IsPowerOfTwo(img image.Image) bool {
	b := img.Bounds()
	pot := func(n int) bool { return n > 0 && n&(n-1) == 0 }
	return pot(b.Dx()) && pot(b.Dy())
}
