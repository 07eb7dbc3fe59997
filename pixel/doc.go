// Package pixel implements the RGB565 color and image types used for LCD framebuffers.
//
// The types are compatible with Go's native [color.Color] and [image.Image] / [draw.Image]
// interfaces, and keep their pixels in the byte order the display controller expects.
package pixel
