package draw

import (
	"image"
	"image/color"
)

// Box fills rect.
func Box(dst Image, rect image.Rectangle, c color.Color) {
	Draw(dst, rect, image.NewUniform(c), image.Point{}, Src)
}

// HorizontalLine draws w pixels right of (x,y), starting at (x,y).
func HorizontalLine(dst Image, x, y, w int, c color.Color) {
	Box(dst, image.Rect(x, y, x+w, y+1), c)
}

// VerticalLine draws h pixels down from (x,y), starting at (x,y).
func VerticalLine(dst Image, x, y, h int, c color.Color) {
	Box(dst, image.Rect(x, y, x+1, y+h), c)
}

// Rectangle draws the one pixel outline inside rect.
func Rectangle(dst Image, rect image.Rectangle, c color.Color) {
	if rect.Empty() {
		return
	}
	HorizontalLine(dst, rect.Min.X, rect.Min.Y, rect.Dx(), c)
	HorizontalLine(dst, rect.Min.X, rect.Max.Y-1, rect.Dx(), c)
	VerticalLine(dst, rect.Min.X, rect.Min.Y, rect.Dy(), c)
	VerticalLine(dst, rect.Max.X-1, rect.Min.Y, rect.Dy(), c)
}

// Line draws the segment from a to b, both ends included.
func Line(dst Image, a, b image.Point, c color.Color) {
	var (
		dx, sx = span(a.X, b.X)
		dy, sy = span(a.Y, b.Y)
		e      = dx - dy
	)
	for p := a; ; {
		dst.Set(p.X, p.Y, c)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			p.X += sx
		}
		if e2 < dx {
			e += dx
			p.Y += sy
		}
	}
}

// span returns the distance from a to b and the step direction.
func span(a, b int) (int, int) {
	if b < a {
		return a - b, -1
	}
	return b - a, 1
}
