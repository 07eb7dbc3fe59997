package conn

import (
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

// I2C is a shared I²C bus for the peripheral chips next to the display.
type I2C struct {
	bus i2c.BusCloser
}

// OpenI2C opens the named I²C bus, an empty name opens the first one.
func OpenI2C(name string) (*I2C, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "conn: open I²C bus %q", name)
	}
	return &I2C{bus: bus}, nil
}

func (c *I2C) String() string {
	return fmt.Sprintf("I²C bus %s", c.bus)
}

func (c *I2C) Close() error {
	return c.bus.Close()
}

// Tx does a write then read transaction with the device at addr.
func (c *I2C) Tx(addr uint16, w, r []byte) error {
	return c.bus.Tx(addr, w, r)
}

// SetSpeed changes the bus clock.
func (c *I2C) SetSpeed(f physic.Frequency) error {
	return c.bus.SetSpeed(f)
}

var _ i2c.Bus = (*I2C)(nil)
