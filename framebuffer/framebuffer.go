// Package framebuffer drives a panel through the operating system's native
// framebuffer, such as the /dev/fbN device of a kernel fbtft driver.
//
// The Device implements display.Controller: windows set by the engine are
// filled in the mapped framebuffer memory. The kernel driver owns the panel
// bring-up, rotation and offsets, so the engine should run unrotated and
// without offsets on top of it.
package framebuffer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2"
)

var (
	// ErrNotSupported is returned by Open on systems without fbdev.
	ErrNotSupported = errors.New("framebuffer: not supported")

	// ErrFormat is returned for framebuffers not in 16-bit RGB565.
	ErrFormat = errors.New("framebuffer: unsupported pixel format")
)

const bytesPerPixel = 2

// Device is a 16-bit framebuffer.
type Device struct {
	name   string
	mem    []byte
	width  int
	height int
	stride int
	order  binary.ByteOrder
	logger *zap.Logger

	window display.Rect
	x, y   int

	// release unmaps the memory and closes the device.
	release func() error
}

// New returns a Device over framebuffer memory of width by height pixels
// with stride bytes per line, storing pixels in order.
func New(name string, mem []byte, width, height, stride int, order binary.ByteOrder, logger *zap.Logger) (*Device, error) {
	if width <= 0 || height <= 0 || stride < width*bytesPerPixel || len(mem) < (height-1)*stride+width*bytesPerPixel {
		return nil, fmt.Errorf("framebuffer: %d bytes can not hold %dx%d with stride %d", len(mem), width, height, stride)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		name:    name,
		mem:     mem,
		width:   width,
		height:  height,
		stride:  stride,
		order:   order,
		logger:  logger.Named("framebuffer"),
		release: func() error { return nil },
	}, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("framebuffer %s %dx%d", d.name, d.width, d.height)
}

// Size is the resolution of the framebuffer.
func (d *Device) Size() (width, height int) {
	return d.width, d.height
}

// Bringup is done by the kernel driver.
func (d *Device) Bringup() error {
	d.logger.With(
		zap.Int("width", d.width),
		zap.Int("height", d.height),
		zap.Int("stride", d.stride),
	).Info("startup")
	return nil
}

func (d *Device) SetWindow(x1, y1, x2, y2 int) error {
	r := display.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
	if !r.In(d.width, d.height) {
		return fmt.Errorf("%w: window %s outside %dx%d framebuffer", display.ErrBounds, r, d.width, d.height)
	}
	d.window = r
	d.x, d.y = x1, y1
	return nil
}

// Write fills the window with big endian RGB565 pixels, continuing where the
// previous Write stopped.
func (d *Device) Write(p []byte) error {
	for i := 0; i+bytesPerPixel <= len(p); i += bytesPerPixel {
		d.order.PutUint16(d.mem[d.y*d.stride+d.x*bytesPerPixel:], binary.BigEndian.Uint16(p[i:]))
		if d.x++; d.x > d.window.X2 {
			d.x = d.window.X1
			if d.y++; d.y > d.window.Y2 {
				d.y = d.window.Y1
			}
		}
	}
	return nil
}

// Wait returns immediately, writes to the mapped memory are synchronous.
func (d *Device) Wait() error {
	return nil
}

func (d *Device) Close() error {
	d.logger.Info("shutdown")
	return d.release()
}

var _ display.Controller = (*Device)(nil)
