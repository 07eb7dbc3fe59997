// Package config loads the dashboard configuration.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/conn"
)

// Display transports.
const (
	TransportSPI         = "spi"
	TransportSerial      = "serial"
	TransportFramebuffer = "fbdev"
	TransportVirtual     = "virtual"
)

// Display controllers.
const (
	ControllerST7735 = "st7735"
	ControllerST7789 = "st7789"
)

// Config is the dashboard configuration.
type Config struct {
	Display DisplayConfig `json:"display"`
	SPI     SPIConfig     `json:"spi"`
	Serial  SerialConfig  `json:"serial"`
	Fbdev   FbdevConfig   `json:"fbdev"`
	I2C     I2CConfig     `json:"i2c"`
	Buttons ButtonsConfig `json:"buttons"`
	Sensors SensorsConfig `json:"sensors"`
}

// DisplayConfig describes the panel.
type DisplayConfig struct {
	Transport  string `json:"transport"`  // spi, serial, fbdev, virtual
	Controller string `json:"controller"` // st7735, st7789

	// Width and Height of the panel in its native portrait orientation.
	Width  int `json:"width"`
	Height int `json:"height"`

	Rotation       int `json:"rotation"` // degrees
	OffsetCol      int `json:"offset_col"`
	OffsetRow      int `json:"offset_row"`
	BytesPerPixel  int `json:"bytes_per_pixel"`
	TransferBudget int `json:"transfer_budget"`

	// Backlight is the LDO2 level, 0..12.
	Backlight int `json:"backlight"`
}

// SPIConfig selects the SPI port and control pins.
type SPIConfig struct {
	Port    string `json:"port"`
	SpeedHz int64  `json:"speed_hz"`
	Mode    int    `json:"mode"`
	Reset   string `json:"reset"`
	DC      string `json:"dc"`
	CS      string `json:"cs,omitempty"`
}

// SerialConfig selects the USB serial bridge.
type SerialConfig struct {
	Name     string `json:"name"`
	BaudRate int    `json:"baud_rate"`
	MaxFrame int    `json:"max_frame"`
}

// FbdevConfig selects the framebuffer of a kernel panel driver.
type FbdevConfig struct {
	Device string `json:"device"`
}

// I2CConfig selects the bus of the sensor and power chips.
type I2CConfig struct {
	Enabled bool   `json:"enabled"`
	Bus     string `json:"bus"`
}

// ButtonsConfig names the button pins.
type ButtonsConfig struct {
	Next     string   `json:"next"`
	Prev     string   `json:"prev"`
	Interval Duration `json:"interval"`
}

// SensorsConfig sets the sensor polling.
type SensorsConfig struct {
	Interval Duration `json:"interval"`

	// Altitude of the station in meters, for the sea level pressure.
	Altitude float64 `json:"altitude"`
}

// Duration is a time.Duration written as a string, "1s" or "10ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the M5StickC configuration.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Transport:      TransportSPI,
			Controller:     ControllerST7735,
			Width:          display.ST7735Width,
			Height:         display.ST7735Height,
			OffsetCol:      26,
			OffsetRow:      1,
			BytesPerPixel:  2,
			TransferBudget: 3200,
			Backlight:      12,
		},
		SPI: SPIConfig{
			SpeedHz: int64(conn.DefaultSPIConfig.Speed / physic.Hertz),
			Mode:    int(conn.DefaultSPIConfig.Mode),
			Reset:   "GPIO18",
			DC:      "GPIO23",
		},
		Serial: SerialConfig{
			Name:     conn.DefaultSerialConfig.Name,
			BaudRate: conn.DefaultSerialConfig.BaudRate,
			MaxFrame: conn.DefaultSerialConfig.MaxFrame,
		},
		Fbdev: FbdevConfig{
			Device: "/dev/fb1",
		},
		I2C: I2CConfig{
			Enabled: true,
		},
		Buttons: ButtonsConfig{
			Next:     "GPIO39",
			Prev:     "GPIO37",
			Interval: Duration(10 * time.Millisecond),
		},
		Sensors: SensorsConfig{
			Interval: Duration(time.Second),
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(fs afero.Fs, path string) (*Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	c := Default()
	if err = json.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	if err = c.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Save writes the configuration to path.
func (c *Config) Save(fs afero.Fs, path string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(afero.WriteFile(fs, path, append(b, '\n'), 0o644), "config: write")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Display.Transport {
	case TransportSPI, TransportSerial, TransportFramebuffer, TransportVirtual:
	default:
		return fmt.Errorf("config: unknown display transport %q", c.Display.Transport)
	}
	switch c.Display.Controller {
	case ControllerST7735, ControllerST7789:
	default:
		return fmt.Errorf("config: unknown display controller %q", c.Display.Controller)
	}
	if _, err := c.Rotation(); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.Display.Backlight < 0 || c.Display.Backlight > 12 {
		return fmt.Errorf("config: backlight %d out of range 0..12", c.Display.Backlight)
	}
	if c.Display.Transport == TransportSPI && (c.SPI.Reset == "" || c.SPI.DC == "") {
		return errors.New("config: SPI transport needs reset and dc pins")
	}
	if c.Buttons.Interval <= 0 || c.Sensors.Interval <= 0 {
		return errors.New("config: polling intervals must be positive")
	}
	dc, err := c.DisplayConfig()
	if err != nil {
		return err
	}
	return dc.Validate()
}

// Rotation is the configured display rotation.
func (c *Config) Rotation() (display.Rotation, error) {
	return display.ParseRotation(strconv.Itoa(c.Display.Rotation))
}

// DisplayConfig returns the engine configuration. Width and height are
// swapped for landscape rotations.
func (c *Config) DisplayConfig() (*display.Config, error) {
	rotation, err := c.Rotation()
	if err != nil {
		return nil, err
	}
	dc := &display.Config{
		Width:          c.Display.Width,
		Height:         c.Display.Height,
		Rotation:       rotation,
		Offset:         display.Offset{Col: c.Display.OffsetCol, Row: c.Display.OffsetRow},
		BytesPerPixel:  c.Display.BytesPerPixel,
		TransferBudget: c.Display.TransferBudget,
	}
	if rotation.Landscape() {
		dc.Width, dc.Height = dc.Height, dc.Width
	}
	return dc, nil
}

// SPIConfig returns the bus configuration. The pins are looked up in the
// periph.io registry, so the host drivers must be loaded first.
func (c *Config) SPIConfig() *conn.SPIConfig {
	sc := &conn.SPIConfig{
		Port:      c.SPI.Port,
		Speed:     physic.Frequency(c.SPI.SpeedHz) * physic.Hertz,
		Mode:      spi.Mode(c.SPI.Mode),
		BatchSize: c.Display.TransferBudget,
		Reset:     gpioreg.ByName(c.SPI.Reset),
		DC:        gpioreg.ByName(c.SPI.DC),
	}
	if c.SPI.CS != "" {
		sc.CS = gpioreg.ByName(c.SPI.CS)
	}
	return sc
}

// SerialConfig returns the bridge configuration.
func (c *Config) SerialConfig() *conn.SerialConfig {
	return &conn.SerialConfig{
		Name:     c.Serial.Name,
		BaudRate: c.Serial.BaudRate,
		MaxFrame: c.Serial.MaxFrame,
	}
}
