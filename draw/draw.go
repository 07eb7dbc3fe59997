// Package draw has the drawing primitives the views and test commands use on
// top of image/draw.
package draw

import (
	"image"
	"image/draw"
)

type (
	// Image is an alias for [image/draw.Image].
	Image = draw.Image

	// Op is an alias for [image/draw.Op].
	Op = draw.Op
)

// Compositing operators.
const (
	Over = draw.Over
	Src  = draw.Src
)

// Draw composes src into the rectangle r of dst, with sp in src aligned to
// r.Min.
func Draw(dst Image, r image.Rectangle, src image.Image, sp image.Point, op Op) {
	draw.Draw(dst, r, src, sp, op)
}
