package pixel

import "image/color"

// CRGB16Model converts colors to CRGB16.
var CRGB16Model color.Model = color.ModelFunc(crgb16Model)

// Palette used by the dashboard screens.
var (
	Black  = CRGB16{0x0000}
	White  = CRGB16{0xFFFF}
	Red    = CRGB16{0xF800}
	Green  = CRGB16{0x07E0}
	Blue   = CRGB16{0x001F}
	Navy   = CRGB16{0x000F}
	Yellow = CRGB16{0xFFE0}
	Orange = CRGB16{0xFD20}
	Gray   = CRGB16{0x8410}
)

// CRGB16 represents a 16-bit 5-6-5 RGB color.
type CRGB16 struct {
	// CRed, 5, CGreen, 6, CBlue, 5
	V uint16
}

func (c CRGB16) RGBA() (r, g, b, a uint32) {
	// Build a 5- or 6-bit value at the top of the low byte of each component.
	red := (c.V & 0xF800) >> 8
	grn := (c.V & 0x07E0) >> 3
	blu := (c.V & 0x001F) << 3
	// Duplicate the high bits in the low bits.
	red |= red >> 5
	grn |= grn >> 6
	blu |= blu >> 5
	// Duplicate the whole value in the high byte.
	red |= red << 8
	grn |= grn << 8
	blu |= blu << 8
	return uint32(red), uint32(grn), uint32(blu), 0xffff
}

// Bytes returns the big endian encoding sent to the controller.
func (c CRGB16) Bytes() [2]byte {
	return [2]byte{byte(c.V >> 8), byte(c.V)}
}

func crgb16Model(c color.Color) color.Color {
	switch c := c.(type) {
	case CRGB16:
		return c
	default:
		r, g, b, _ := c.RGBA()
		r = (r & 0xF800)
		g = (g & 0xFC00) >> 5
		b = (b & 0xF800) >> 11
		return CRGB16{uint16(r | g | b)}
	}
}
