package display

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/display/v2/conn"
)

// Registers (from st7789.pdf) that differ from the ST7735S.
const (
	st7789PORCTRL  = 0xB2 // Porch Setting
	st7789GCTRL    = 0xB7 // Gate Control
	st7789VCOMS    = 0xBB // VCOM Setting
	st7789LCMCTRL  = 0xC0 // LCM Control
	st7789VDVVRHEN = 0xC2 // VDV and VRH Command Enable
	st7789VRHS     = 0xC3 // VRH Set
	st7789VDVSET   = 0xC4 // VDV Set
	st7789FRCTR2   = 0xC6 // Frame Rate Control in Normal Mode
	st7789PWCTRL1  = 0xD0 // Power Control 1
)

// ST7789 panel size of the 1.14" 135x240 module of the M5StickC Plus. The
// visible area starts at column 52, row 40.
const (
	ST7789Width  = 135
	ST7789Height = 240
)

// ST7789 drives a Sitronix ST7789V2. Window addressing, bursts and power
// commands are shared with the ST7735S, only the bring-up differs.
type ST7789 struct {
	*ST7735
}

// NewST7789 returns a controller for the panel on bus.
func NewST7789(bus conn.Bus, config *ST7735Config, logger *zap.Logger) *ST7789 {
	c := *config
	if c.Width == 0 {
		c.Width = ST7789Width
	}
	if c.Height == 0 {
		c.Height = ST7789Height
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := NewST7735(bus, &c, nil)
	d.model = "st7789"
	d.logger = logger.Named("st7789")
	return &ST7789{ST7735: d}
}

func (d *ST7789) String() string {
	return fmt.Sprintf("ST7789V2 %dx%d on %s", d.width, d.height, d.bus)
}

// st7789madctl returns the memory access control value for a rotation, in
// RGB order.
func st7789madctl(rotation Rotation) byte {
	switch rotation & 3 {
	case Rotate90:
		return st7735ColumnAddressOrder | st7735PageColumnOrder
	case Rotate180:
		return st7735ColumnAddressOrder | st7735PageAddressOrder
	case Rotate270:
		return st7735PageAddressOrder | st7735PageColumnOrder
	default:
		return 0
	}
}

// Bringup resets the controller and sends its initialization sequence.
func (d *ST7789) Bringup() (err error) {
	if err = d.bus.Reset(gpio.High); err != nil {
		return
	}
	d.sleep(10 * time.Millisecond)
	if err = d.bus.Reset(gpio.Low); err != nil {
		return
	}
	d.sleep(10 * time.Millisecond)
	if err = d.bus.Reset(gpio.High); err != nil {
		return
	}
	d.sleep(120 * time.Millisecond)

	if err = d.commands([][]byte{{st7735SLPOUT}}); err != nil {
		return
	}
	d.sleep(150 * time.Millisecond)

	if err = d.commands([][]byte{
		{st7735MADCTL, st7789madctl(d.rotation)},
		{st7735COLMOD, 0x05},        // 16-bits per pixel
		{st7789PORCTRL, 0x0C, 0x0C}, // default
		{st7789GCTRL, 0x35},         // 13.26V / -10.43V
		{st7789VCOMS, 0x1A},         // 0.75V
		{st7789LCMCTRL, 0x2C},       // default
		{st7789VDVVRHEN, 0x01},      // default
		{st7789VRHS, 0x0B},
		{st7789VDVSET, 0x20},        // 0V
		{st7789FRCTR2, 0x0F},        // 60Hz
		{st7789PWCTRL1, 0xA4, 0xA1}, // default
		{st7735INVON},
		{st7735GMCTRP1, 0xD0, 0x00, 0x02, 0x07, 0x0A, 0x28, 0x32, 0x44, 0x42, 0x06, 0x0E, 0x12, 0x14, 0x17},
		{st7735GMCTRN1, 0xD0, 0x00, 0x02, 0x07, 0x0A, 0x28, 0x31, 0x54, 0x47, 0x0E, 0x1C, 0x17, 0x1B, 0x1E},
		{st7735NORON},
		{st7735DISPON},
	}); err != nil {
		return
	}
	d.sleep(100 * time.Millisecond)

	d.logger.With(
		zap.Stringer("rotation", d.rotation),
		zap.Uint8("madctl", st7789madctl(d.rotation)),
	).Debug("bringup done")

	return d.SetBrightness(0xFF)
}
