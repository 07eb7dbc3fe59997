package draw

import (
	"image"
	"image/color"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Face is an alias for [golang.org/x/image/font.Face].
type Face = font.Face

// SmallFace is the 7x13 bitmap face.
var SmallFace Face = basicfont.Face7x13

// NewFace parses a TrueType font and returns a face of size points at 72 DPI,
// so one point is one pixel.
func NewFace(ttf []byte, size float64) (Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// RegularFace returns Go Regular at size points.
func RegularFace(size float64) (Face, error) {
	return NewFace(goregular.TTF, size)
}

// TextWidth is the advance of s in pixels.
func TextWidth(face Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// Text draws s with the baseline starting at p.
func Text(dst Image, face Face, p image.Point, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(p.X, p.Y),
	}
	d.DrawString(s)
}

// TextCentered draws s centered in r.
func TextCentered(dst Image, face Face, r image.Rectangle, s string, c color.Color) {
	var (
		m = face.Metrics()
		w = TextWidth(face, s)
		h = (m.Ascent + m.Descent).Ceil()
	)
	Text(dst, face, image.Pt(
		r.Min.X+(r.Dx()-w)/2,
		r.Min.Y+(r.Dy()-h)/2+m.Ascent.Ceil(),
	), s, c)
}
