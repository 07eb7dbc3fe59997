package conn

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SPIConfig describes the SPI bus configuration.
type SPIConfig struct {
	// Port is the periph.io port name, empty selects the first port.
	Port string

	// Speed is the SPI clock frequency.
	Speed physic.Frequency

	// Mode is the SPI clock polarity and phase.
	Mode spi.Mode

	// DataLow drives the D/C line low for data instead of high.
	DataLow bool

	// BatchSize caps the bytes per SPI transaction. The port limit is used
	// when it is smaller.
	BatchSize int

	// Reset, DC and CS pins. CS is optional when the port drives it.
	Reset gpio.PinOut
	DC    gpio.PinOut
	CS    gpio.PinOut
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	Speed:     26 * physic.MegaHertz,
	Mode:      spi.Mode0,
	BatchSize: 4096,
}

// SPI is a Bus over a periph.io SPI connection with GPIO driven D/C, reset
// and chip select lines.
type SPI struct {
	closer    io.Closer
	conn      spi.Conn
	logger    *zap.Logger
	reset     gpio.PinOut
	dc        gpio.PinOut
	dcLevel   gpio.Level
	dcSet     bool
	cs        gpio.PinOut
	dataLow   bool
	batchSize int
	closed    bool
	burst
}

// OpenSPI opens the configured SPI port.
func OpenSPI(config *SPIConfig, logger *zap.Logger) (*SPI, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	if config.Speed == 0 {
		config.Speed = DefaultSPIConfig.Speed
	}

	port, err := spireg.Open(config.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "conn: open SPI port %q", config.Port)
	}

	c, err := port.Connect(config.Speed, config.Mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, errors.Wrapf(err, "conn: connect SPI port %q at %s", config.Port, config.Speed)
	}

	bus, err := NewSPI(port, c, config, logger)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return bus, nil
}

// NewSPI wraps an already connected SPI port. The closer is closed by Close.
func NewSPI(closer io.Closer, c spi.Conn, config *SPIConfig, logger *zap.Logger) (*SPI, error) {
	if config.Reset == nil || config.Reset == gpio.INVALID {
		return nil, ErrResetPin
	}
	if config.DC == nil || config.DC == gpio.INVALID {
		return nil, ErrDCPin
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	batchSize := config.BatchSize
	if l, ok := c.(conn.Limits); ok {
		if limit := l.MaxTxSize(); limit > 0 && (batchSize <= 0 || limit < batchSize) {
			batchSize = limit
		}
	}

	cs := config.CS
	if cs == gpio.INVALID {
		cs = nil
	}

	return &SPI{
		closer:    closer,
		conn:      c,
		logger:    logger.Named("spi"),
		reset:     config.Reset,
		dc:        config.DC,
		cs:        cs,
		dataLow:   config.DataLow,
		batchSize: batchSize,
	}, nil
}

func (c *SPI) String() string {
	return fmt.Sprintf("SPI %s", c.conn)
}

func (c *SPI) Close() error {
	if c.closed {
		return nil
	}
	err := c.wait()
	c.closed = true
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (c *SPI) Reset(level gpio.Level) error {
	return c.reset.Out(level)
}

func (c *SPI) MaxTxSize() int {
	return c.batchSize
}

func (c *SPI) updateDC(level gpio.Level) error {
	if !c.dcSet || c.dcLevel != level {
		if err := c.dc.Out(level); err != nil {
			return err
		}
		c.dcLevel, c.dcSet = level, true
	}
	return nil
}

func (c *SPI) updateCS(level gpio.Level) error {
	if c.cs == nil {
		return nil
	}
	return c.cs.Out(level)
}

func (c *SPI) Command(cmd byte, args ...byte) (err error) {
	if c.closed {
		return ErrClosed
	}
	if c.busy() {
		return ErrBusy
	}
	if err = c.updateCS(gpio.Low); err != nil {
		return
	}
	defer func() {
		if err != nil {
			// Release the controller so the next transaction starts clean.
			_ = c.updateCS(gpio.High)
		}
	}()
	if err = c.updateDC(gpio.Level(c.dataLow)); err != nil {
		return
	}
	if err = c.tx([]byte{cmd}); err != nil {
		return
	}
	if len(args) > 0 {
		if err = c.updateDC(gpio.Level(!c.dataLow)); err != nil {
			return
		}
		if err = chunked(args, c.batchSize, c.tx); err != nil {
			return
		}
	}
	return c.updateCS(gpio.High)
}

func (c *SPI) Start(p []byte) error {
	if c.closed {
		return ErrClosed
	}
	if c.busy() {
		return ErrBusy
	}
	if len(p) == 0 {
		return nil
	}
	if err := c.updateDC(gpio.Level(!c.dataLow)); err != nil {
		return err
	}
	if err := c.updateCS(gpio.Low); err != nil {
		return err
	}
	return c.start(func() error {
		if err := chunked(p, c.batchSize, c.tx); err != nil {
			_ = c.updateCS(gpio.High)
			return err
		}
		return c.updateCS(gpio.High)
	})
}

func (c *SPI) Wait() error {
	return c.wait()
}

func (c *SPI) tx(w []byte) error {
	if err := c.conn.Tx(w, nil); err != nil {
		c.logger.With(zap.Int("size", len(w)), zap.Error(err)).Debug("transfer failed")
		return errors.Wrap(err, "conn: SPI transfer")
	}
	return nil
}
