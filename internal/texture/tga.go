package texture

import (
	"fmt"
	"image"
)

// TGA image types handled by DecodeTGA.
const (
	TGATypeUncompressed = 2
	TGATypeRLE          = 10
)

const tgaHeaderSize = 18

func looksLikeTGA(data []byte) bool {
	if len(data) < tgaHeaderSize || data[1] != 0 {
		return false
	}
	if t := data[2]; t != TGATypeUncompressed && t != TGATypeRLE {
		return false
	}
	bpp := data[16]
	return bpp == 24 || bpp == 32
}

// tgaWriter stores BGR(A) pixels in file order into an RGBA image.
type tgaWriter struct {
	img         *image.RGBA
	width       int
	height      int
	bpp         int
	topToBottom bool
	next        int
}

func (w *tgaWriter) full() bool { return w.next >= w.width*w.height }

func (w *tgaWriter) put(px []byte) {
	x := w.next % w.width
	y := w.next / w.width
	if !w.topToBottom {
		y = w.height - 1 - y
	}
	i := w.img.PixOffset(x, y)
	w.img.Pix[i+0] = px[2]
	w.img.Pix[i+1] = px[1]
	w.img.Pix[i+2] = px[0]
	w.img.Pix[i+3] = 255
	if w.bpp == 4 {
		w.img.Pix[i+3] = px[3]
	}
	w.next++
}

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// files with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("tga: header truncated")
	}
	if data[1] != 0 {
		return nil, fmt.Errorf("tga: color-mapped images not supported")
	}
	kind := int(data[2])
	if kind != TGATypeUncompressed && kind != TGATypeRLE {
		return nil, fmt.Errorf("tga: unsupported image type %d", kind)
	}
	bits := int(data[16])
	if bits != 24 && bits != 32 {
		return nil, fmt.Errorf("tga: unsupported bit depth %d", bits)
	}

	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	start := tgaHeaderSize + int(data[0])
	if start > len(data) {
		return nil, fmt.Errorf("tga: id field truncated")
	}

	w := &tgaWriter{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		bpp:         bits / 8,
		topToBottom: data[17]&0x20 != 0,
	}
	body := data[start:]

	if kind == TGATypeUncompressed {
		if len(body) < width*height*w.bpp {
			return nil, fmt.Errorf("tga: pixel data truncated")
		}
		for off := 0; !w.full(); off += w.bpp {
			w.put(body[off : off+w.bpp])
		}
		return w.img, nil
	}

	off := 0
	for !w.full() && off < len(body) {
		header := body[off]
		off++
		run := int(header&0x7f) + 1
		if header&0x80 != 0 {
			if off+w.bpp > len(body) {
				break
			}
			px := body[off : off+w.bpp]
			off += w.bpp
			for ; run > 0 && !w.full(); run-- {
				w.put(px)
			}
			continue
		}
		for ; run > 0 && !w.full() && off+w.bpp <= len(body); run-- {
			w.put(body[off : off+w.bpp])
			off += w.bpp
		}
	}
	if !w.full() {
		return nil, fmt.Errorf("tga: rle data truncated after %d of %d pixels", w.next, width*height)
	}
	return w.img, nil
}
