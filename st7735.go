package display

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/BeatGlow/display/v2/conn"
)

// Registers (from st7735s.pdf).
const (
	st7735NOP     = 0x00
	st7735SWRESET = 0x01
	st7735SLPIN   = 0x10
	st7735SLPOUT  = 0x11
	st7735NORON   = 0x13
	st7735INVOFF  = 0x20
	st7735INVON   = 0x21
	st7735DISPOFF = 0x28
	st7735DISPON  = 0x29
	st7735CASET   = 0x2A
	st7735RASET   = 0x2B
	st7735RAMWR   = 0x2C
	st7735MADCTL  = 0x36
	st7735COLMOD  = 0x3A
	st7735FRMCTR1 = 0xB1
	st7735FRMCTR2 = 0xB2
	st7735FRMCTR3 = 0xB3
	st7735INVCTR  = 0xB4
	st7735PWCTR1  = 0xC0
	st7735PWCTR2  = 0xC1
	st7735PWCTR3  = 0xC2
	st7735PWCTR4  = 0xC3
	st7735PWCTR5  = 0xC4
	st7735VMCTR1  = 0xC5
	st7735GMCTRP1 = 0xE0
	st7735GMCTRN1 = 0xE1
)

// Memory Data Access Control (MADCTL) bit fields.
const (
	_                           byte = 1 << iota // D0: reserved
	_                                            // D1: reserved
	st7735DisplayDataLatchOrder                  // D2: MH
	st7735BGROrder                               // D3: RGB
	st7735LineAddressOrder                       // D4: ML
	st7735PageColumnOrder                        // D5: MV
	st7735ColumnAddressOrder                     // D6: MX
	st7735PageAddressOrder                       // D7: MY
)

// ST7735 panel sizes of the 0.96" 80x160 green tab module.
const (
	ST7735Width  = 80
	ST7735Height = 160
)

// ST7735 drives a Sitronix ST7735S controller.
type ST7735 struct {
	model     string
	bus       conn.Bus
	rotation  Rotation
	width     int
	height    int
	backlight gpio.PinOut
	logger    *zap.Logger

	// sleep is replaced in tests.
	sleep func(time.Duration)
}

// ST7735Config describes the panel attached to the controller.
type ST7735Config struct {
	// Width and Height of the panel in portrait orientation.
	Width  int
	Height int

	// Rotation of the display.
	Rotation Rotation

	// Backlight pin, optional.
	Backlight gpio.PinOut
}

// NewST7735 returns a controller for the panel on bus.
func NewST7735(bus conn.Bus, config *ST7735Config, logger *zap.Logger) *ST7735 {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &ST7735{
		model:     "st7735",
		bus:       bus,
		rotation:  config.Rotation & 3,
		width:     config.Width,
		height:    config.Height,
		backlight: config.Backlight,
		logger:    logger.Named("st7735"),
		sleep:     time.Sleep,
	}
	if d.width == 0 {
		d.width = ST7735Width
	}
	if d.height == 0 {
		d.height = ST7735Height
	}
	if d.backlight == gpio.INVALID {
		d.backlight = nil
	}
	return d
}

func (d *ST7735) String() string {
	return fmt.Sprintf("ST7735S %dx%d on %s", d.width, d.height, d.bus)
}

// MaxTxSize is the burst limit of the bus.
func (d *ST7735) MaxTxSize() int {
	return d.bus.MaxTxSize()
}

func (d *ST7735) commands(commands [][]byte) error {
	for _, command := range commands {
		if err := d.bus.Command(command[0], command[1:]...); err != nil {
			return fmt.Errorf("%s: command %#02x: %w", d.model, command[0], err)
		}
	}
	return nil
}

// madctl returns the memory access control value for a rotation, in BGR
// order.
func madctl(rotation Rotation) byte {
	switch rotation & 3 {
	case Rotate90:
		return st7735PageAddressOrder | st7735PageColumnOrder | st7735BGROrder
	case Rotate180:
		return st7735BGROrder
	case Rotate270:
		return st7735ColumnAddressOrder | st7735PageColumnOrder | st7735BGROrder
	default:
		return st7735PageAddressOrder | st7735ColumnAddressOrder | st7735BGROrder
	}
}

// Bringup resets the controller and sends its initialization sequence.
func (d *ST7735) Bringup() (err error) {
	// reset the device.
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

	if err = d.commands([][]byte{{st7735SWRESET}}); err != nil {
		return
	}
	d.sleep(150 * time.Millisecond)
	if err = d.commands([][]byte{{st7735SLPOUT}}); err != nil {
		return
	}
	d.sleep(255 * time.Millisecond)

	var (
		colEnd = d.width - 1
		rowEnd = d.height - 1
	)
	if err = d.commands([][]byte{
		{st7735FRMCTR1, 0x01, 0x2C, 0x2D},
		{st7735FRMCTR2, 0x01, 0x2C, 0x2D},
		{st7735FRMCTR3, 0x01, 0x2C, 0x2D, 0x01, 0x2C, 0x2D},
		{st7735INVCTR, 0x07},
		{st7735PWCTR1, 0xA2, 0x02, 0x84},
		{st7735PWCTR2, 0xC5},
		{st7735PWCTR3, 0x0A, 0x00},
		{st7735PWCTR4, 0x8A, 0x2A},
		{st7735PWCTR5, 0x8A, 0xEE},
		{st7735VMCTR1, 0x0E},
		{st7735INVOFF},
		{st7735MADCTL, madctl(d.rotation)},
		{st7735COLMOD, 0x05}, // 16-bits per pixel
		{st7735CASET, 0x00, 0x00, byte(colEnd >> 8), byte(colEnd)},
		{st7735RASET, 0x00, 0x00, byte(rowEnd >> 8), byte(rowEnd)},
		{st7735INVON}, // the IPS panel is inverted
		{st7735GMCTRP1, 0x02, 0x1C, 0x07, 0x12, 0x37, 0x32, 0x29, 0x2D, 0x29, 0x25, 0x2B, 0x39, 0x00, 0x01, 0x03, 0x10},
		{st7735GMCTRN1, 0x03, 0x1D, 0x07, 0x06, 0x2E, 0x2C, 0x29, 0x2D, 0x2E, 0x2E, 0x37, 0x3F, 0x00, 0x00, 0x02, 0x10},
		{st7735NORON},
	}); err != nil {
		return
	}
	d.sleep(10 * time.Millisecond)
	if err = d.commands([][]byte{{st7735DISPON}}); err != nil {
		return
	}
	d.sleep(100 * time.Millisecond)

	d.logger.With(
		zap.Stringer("rotation", d.rotation),
		zap.Uint8("madctl", madctl(d.rotation)),
	).Debug("bringup done")

	return d.SetBrightness(0xFF)
}

// SetWindow selects the memory area written by the following data.
func (d *ST7735) SetWindow(x1, y1, x2, y2 int) error {
	return d.commands([][]byte{
		{st7735CASET, byte(x1 >> 8), byte(x1), byte(x2 >> 8), byte(x2)}, // Column address
		{st7735RASET, byte(y1 >> 8), byte(y1), byte(y2 >> 8), byte(y2)}, // Row address
		{st7735RAMWR}, // Write to RAM
	})
}

func (d *ST7735) Write(p []byte) error {
	return d.bus.Start(p)
}

func (d *ST7735) Wait() error {
	return d.bus.Wait()
}

// Show toggles the display on or off.
func (d *ST7735) Show(show bool) error {
	command := byte(st7735DISPOFF)
	if show {
		command = st7735DISPON
	}
	return d.commands([][]byte{{command}})
}

// Sleep toggles the controller sleep mode.
func (d *ST7735) Sleep(sleep bool) error {
	command := byte(st7735SLPOUT)
	if sleep {
		command = st7735SLPIN
	}
	return d.commands([][]byte{{command}})
}

// SetBrightness sets the backlight PWM duty cycle, if there is a backlight
// pin.
func (d *ST7735) SetBrightness(level uint8) error {
	if d.backlight == nil {
		return nil
	}
	const (
		step = gpio.DutyMax / 0xFF
		rate = 2 * physic.KiloHertz
	)
	d.logger.With(zap.Uint8("level", level)).Debug("backlight")
	return d.backlight.PWM(step*gpio.Duty(level), rate)
}

func (d *ST7735) Close() error {
	if err := d.bus.Wait(); err != nil {
		d.logger.With(zap.Error(err)).Warn("outstanding burst failed")
	}
	err := d.Show(false)
	if err == nil {
		err = d.Sleep(true)
	}
	if err != nil {
		_ = d.bus.Close()
		return err
	}
	return d.bus.Close()
}
