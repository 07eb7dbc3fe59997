package sensor

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
)

// DHT12Addr is the fixed bus address of the DHT12.
const DHT12Addr = 0x5C

// DHT12 is the temperature and humidity sensor on the ENV hat.
type DHT12 struct {
	dev    *i2c.Dev
	logger *zap.Logger
}

// NewDHT12 returns the sensor at its fixed address on bus.
func NewDHT12(bus i2c.Bus, logger *zap.Logger) *DHT12 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DHT12{
		dev:    &i2c.Dev{Bus: bus, Addr: DHT12Addr},
		logger: logger.Named("dht12"),
	}
}

func (d *DHT12) String() string {
	return fmt.Sprintf("DHT12 at %#02x", d.dev.Addr)
}

// Environment reads one measurement.
func (d *DHT12) Environment() (Environment, error) {
	var b [5]byte
	if err := d.dev.Tx([]byte{0x00}, b[:]); err != nil {
		return Environment{}, errors.Wrap(err, "sensor: read DHT12")
	}
	if sum := b[0] + b[1] + b[2] + b[3]; sum != b[4] {
		d.logger.With(zap.Binary("frame", b[:])).Debug("bad checksum")
		return Environment{}, errors.Wrapf(ErrChecksum, "DHT12 sum %#02x, expected %#02x", sum, b[4])
	}
	return decodeDHT12(b), nil
}

func decodeDHT12(b [5]byte) Environment {
	e := Environment{
		Humidity:     float64(b[0]) + float64(b[1])/10,
		TemperatureC: float64(b[2]) + float64(b[3]&0x7F)/10,
	}
	if b[3]&0x80 != 0 {
		e.TemperatureC = -e.TemperatureC
	}
	return e
}
