package pixel

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/BeatGlow/display/v2/draw"
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by most image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	clear(p.Pix)
}

// Region copies the rows of r, clipped to the image, into dst and returns
// the filled part. dst grows when it is too small.
func (p *Buffer) Region(r image.Rectangle, bytesPerPixel int, dst []byte) []byte {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return dst[:0]
	}
	var (
		row  = r.Dx() * bytesPerPixel
		size = row * r.Dy()
	)
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := (y-p.Rect.Min.Y)*p.Stride + (r.Min.X-p.Rect.Min.X)*bytesPerPixel
		copy(dst[(y-r.Min.Y)*row:], p.Pix[src:src+row])
	}
	return dst
}

func makeBuffer(w, h, stride, size int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, size),
		Stride: stride,
	}
}

// CRGB16Image is a 16-bits per pixel 5-6-5-bit RGB image.
type CRGB16Image struct {
	Buffer
	Order binary.ByteOrder
}

func NewCRGB16Image(w, h int) *CRGB16Image {
	return &CRGB16Image{
		Buffer: makeBuffer(w, h, w*2, w*2*h),
		Order:  binary.BigEndian,
	}
}

func (p *CRGB16Image) ColorModel() color.Model {
	return CRGB16Model
}

func (p *CRGB16Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

func (p *CRGB16Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	v := p.Order.Uint16(p.Pix[p.PixOffset(x, y):])
	return CRGB16{v}
}

func (p *CRGB16Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := crgb16Model(c).(CRGB16).V
	p.Order.PutUint16(p.Pix[p.PixOffset(x, y):], v)
}

func (p *CRGB16Image) Fill(c color.Color) {
	value := crgb16Model(c).(CRGB16).V
	bytes := make([]byte, 2)
	p.Order.PutUint16(bytes, value)
	for i, l := 0, len(p.Pix); i < l; i += 2 {
		copy(p.Pix[i:], bytes)
	}
}

// Pixels copies the pixels of r into dst, row major.
func (p *CRGB16Image) Pixels(r image.Rectangle, dst []byte) []byte {
	return p.Region(r, 2, dst)
}

// Interface checks.
var (
	_ Image = (*CRGB16Image)(nil)
)
