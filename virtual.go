package display

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2/conn"
	"github.com/BeatGlow/display/v2/pixel"
)

// Controller memory of the ST7735S.
const (
	VirtualRAMWidth  = 132
	VirtualRAMHeight = 162
)

// ErrVirtualFault is the error injected by Virtual.FailAt.
var ErrVirtualFault = errors.New("display: injected write fault")

// Virtual is an in-memory controller. It keeps a copy of the controller
// memory with an address pointer that advances through the window like the
// real controller does.
type Virtual struct {
	// Limit is the reported burst limit, zero for none.
	Limit int

	// FailAt makes the n-th write (counting from 1) fail once.
	FailAt int

	config   Config
	logger   *zap.Logger
	ram      []byte
	stride   int
	ramRows  int
	window   Rect
	x, y     int
	up       bool
	pending  bool
	windows  int
	writes   int
	received int
}

// NewVirtual returns a virtual controller for the engine configuration.
func NewVirtual(config *Config, logger *zap.Logger) *Virtual {
	if logger == nil {
		logger = zap.NewNop()
	}
	cols, rows := VirtualRAMWidth, VirtualRAMHeight
	if config.Rotation.Landscape() {
		cols, rows = rows, cols
	}
	bpp := max(config.BytesPerPixel, 1)
	return &Virtual{
		config:  *config,
		logger:  logger.Named("virtual"),
		ram:     make([]byte, cols*rows*bpp),
		stride:  cols * bpp,
		ramRows: rows,
	}
}

func (v *Virtual) String() string {
	return fmt.Sprintf("virtual %dx%d", v.config.Width, v.config.Height)
}

func (v *Virtual) MaxTxSize() int {
	return v.Limit
}

func (v *Virtual) Bringup() error {
	v.up = true
	v.logger.With(
		zap.Stringer("rotation", v.config.Rotation),
		zap.Int("col", v.config.Offset.Col),
		zap.Int("row", v.config.Offset.Row),
	).Info("startup")
	return nil
}

func (v *Virtual) SetWindow(x1, y1, x2, y2 int) error {
	if !v.up {
		return errors.New("display: virtual controller is not brought up")
	}
	if v.pending {
		return conn.ErrBusy
	}
	r := Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
	if !r.In(v.stride/v.bpp(), v.ramRows) {
		return fmt.Errorf("%w: window %s outside controller memory", ErrBounds, r)
	}
	v.window = r
	v.x, v.y = x1, y1
	v.windows++
	v.logger.With(zap.Stringer("window", r)).Debug("set-window")
	return nil
}

func (v *Virtual) Write(p []byte) error {
	if !v.up {
		return errors.New("display: virtual controller is not brought up")
	}
	if v.pending {
		return conn.ErrBusy
	}
	if v.Limit > 0 && len(p) > v.Limit {
		return conn.ErrTooLarge
	}
	v.writes++
	if v.FailAt > 0 && v.writes == v.FailAt {
		v.FailAt = 0
		return ErrVirtualFault
	}

	bpp := v.bpp()
	for i := 0; i+bpp <= len(p); i += bpp {
		copy(v.ram[v.y*v.stride+v.x*bpp:], p[i:i+bpp])
		if v.x++; v.x > v.window.X2 {
			v.x = v.window.X1
			if v.y++; v.y > v.window.Y2 {
				v.y = v.window.Y1
			}
		}
	}
	v.received += len(p)
	v.pending = true
	v.logger.With(zap.Int("size", len(p))).Debug("write")
	return nil
}

func (v *Virtual) Wait() error {
	v.pending = false
	return nil
}

func (v *Virtual) Close() error {
	v.up = false
	v.logger.With(
		zap.Int("windows", v.windows),
		zap.Int("writes", v.writes),
		zap.Int("bytes", v.received),
	).Info("shutdown")
	return nil
}

// Writes is the number of bursts received.
func (v *Virtual) Writes() int {
	return v.writes
}

// Image returns the visible area of the controller memory in logical
// coordinates.
func (v *Virtual) Image() *pixel.CRGB16Image {
	img := pixel.NewCRGB16Image(v.config.Width, v.config.Height)
	visible := Physical(Rect{X2: v.config.Width - 1, Y2: v.config.Height - 1}, v.config.Offset, v.config.Rotation)
	bpp := v.bpp()
	for y := 0; y < v.config.Height; y++ {
		src := (visible.Y1+y)*v.stride + visible.X1*bpp
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], v.ram[src:src+v.config.Width*bpp])
	}
	return img
}

func (v *Virtual) bpp() int {
	return max(v.config.BytesPerPixel, 1)
}
