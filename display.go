// Package display streams framebuffer regions to small SPI attached LCD
// controllers.
//
// The Engine accepts a rectangle in logical display coordinates together with
// its pixels, maps it to the controller's memory window and sends it in
// bursts no larger than the transport allows.
package display

import (
	"errors"
	"fmt"
	"image"
)

// Errors
var (
	ErrTransportOpen  = errors.New("display: transport open failed")
	ErrBringup        = errors.New("display: controller bring-up failed")
	ErrWrite          = errors.New("display: write failed")
	ErrConfig         = errors.New("display: invalid configuration")
	ErrNotInitialized = errors.New("display: engine is not initialized")
	ErrBounds         = errors.New("display: out of display bounds")
	ErrBufferSize     = errors.New("display: pixel buffer size does not match region")
)

// Rotation defines pixel rotation.
type Rotation uint8

// Supported rotations.
const (
	NoRotation Rotation = iota
	Rotate90            // Rotate 90° clock wise
	Rotate180           // Rotate 180°
	Rotate270           // Rotate 270° clock wise
)

func (r Rotation) String() string {
	switch r % 4 {
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return "0°"
	}
}

// Landscape reports whether the controller swaps rows and columns.
func (r Rotation) Landscape() bool {
	return r%4 == Rotate90 || r%4 == Rotate270
}

// ParseRotation parses a rotation in degrees or one of its aliases.
func ParseRotation(s string) (Rotation, error) {
	switch s {
	case "", "no", "0":
		return NoRotation, nil
	case "90", "right", "cw":
		return Rotate90, nil
	case "180", "flip":
		return Rotate180, nil
	case "270", "left", "ccw":
		return Rotate270, nil
	default:
		return NoRotation, fmt.Errorf("display: invalid rotation %q", s)
	}
}

// Rect is a region with inclusive corners.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// RectOf converts an image rectangle, whose maximum is exclusive.
func RectOf(r image.Rectangle) Rect {
	return Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X - 1, Y2: r.Max.Y - 1}
}

// Image returns the equivalent image rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2+1, r.Y2+1)
}

func (r Rect) Dx() int { return r.X2 - r.X1 + 1 }
func (r Rect) Dy() int { return r.Y2 - r.Y1 + 1 }

// Empty reports whether the corners are inverted.
func (r Rect) Empty() bool {
	return r.X2 < r.X1 || r.Y2 < r.Y1
}

// In reports whether r lies within a width by height area at the origin.
func (r Rect) In(width, height int) bool {
	return !r.Empty() && r.X1 >= 0 && r.Y1 >= 0 && r.X2 < width && r.Y2 < height
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Offset is the position of the visible area inside the controller memory.
type Offset struct {
	Col int
	Row int
}

// Physical translates a logical rectangle into controller coordinates. In
// landscape the controller exchanges rows and columns, so the offsets swap.
func Physical(r Rect, offset Offset, rotation Rotation) Rect {
	dx, dy := offset.Col, offset.Row
	if rotation.Landscape() {
		dx, dy = offset.Row, offset.Col
	}
	return Rect{X1: r.X1 + dx, Y1: r.Y1 + dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
}

// Config is the engine configuration.
type Config struct {
	// Width of the display in pixels, in the configured rotation.
	Width int

	// Height of the display in pixels, in the configured rotation.
	Height int

	// Rotation of the display.
	Rotation Rotation

	// Offset of the visible area in controller memory.
	Offset Offset

	// BytesPerPixel of the pixel encoding, 2 for RGB565.
	BytesPerPixel int

	// TransferBudget is the largest number of bytes per burst. It must be a
	// multiple of one full display row.
	TransferBudget int
}

// ConfigError describes an invalid Config.
type ConfigError struct {
	Field  string
	Reason string
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("display: invalid %s: %s", err.Field, err.Reason)
}

func (err *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// Validate checks the configuration.
func (config *Config) Validate() error {
	switch {
	case config.Width <= 0:
		return &ConfigError{"width", fmt.Sprintf("%d is not positive", config.Width)}
	case config.Height <= 0:
		return &ConfigError{"height", fmt.Sprintf("%d is not positive", config.Height)}
	case config.BytesPerPixel <= 0:
		return &ConfigError{"bytes per pixel", fmt.Sprintf("%d is not positive", config.BytesPerPixel)}
	case config.Offset.Col < 0 || config.Offset.Row < 0:
		return &ConfigError{"offset", "offsets can not be negative"}
	case config.TransferBudget <= 0:
		return &ConfigError{"transfer budget", fmt.Sprintf("%d is not positive", config.TransferBudget)}
	}
	if row := config.RowBytes(); config.TransferBudget%row != 0 {
		return &ConfigError{"transfer budget", fmt.Sprintf("%d bytes is not a multiple of the %d byte row", config.TransferBudget, row)}
	}
	return nil
}

// RowBytes is the size of one full display row.
func (config *Config) RowBytes() int {
	return config.Width * config.BytesPerPixel
}

// LinesPerChunk is the number of full display rows per burst.
func (config *Config) LinesPerChunk() int {
	return config.TransferBudget / config.RowBytes()
}

// Controller drives a display controller on behalf of the Engine.
type Controller interface {
	String() string

	// Bringup sends the controller initialization sequence.
	Bringup() error

	// SetWindow selects the controller memory area the next writes fill,
	// in controller coordinates with inclusive corners.
	SetWindow(x1, y1, x2, y2 int) error

	// Write starts sending pixel data into the window. The data must not be
	// modified until Wait returns.
	Write(p []byte) error

	// Wait blocks until the outstanding Write completed.
	Wait() error

	// Close the controller and its transport.
	Close() error
}

// Opener opens the transport and returns its controller.
type Opener func() (Controller, error)
