package sensor

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
)

// BMP280Addr is the bus address of the BMP280 on the ENV hat (SDO low).
const BMP280Addr = 0x76

// Registers (from bst-bmp280-ds001.pdf).
const (
	bmp280Calib    = 0x88 // dig_T1 .. dig_P9, 24 bytes little endian
	bmp280ID       = 0xD0
	bmp280CtrlMeas = 0xF4
	bmp280Config   = 0xF5
	bmp280Press    = 0xF7 // press_msb .. temp_xlsb, 6 bytes
)

// Chip IDs, the BME280 shares the pressure and temperature part.
const (
	bmp280ChipID = 0x58
	bme280ChipID = 0x60
)

var (
	// ErrChipID is returned when the device at the address is not a BMP280.
	ErrChipID = errors.New("sensor: unexpected chip id")

	// ErrNotInitialized is returned when the calibration was not loaded.
	ErrNotInitialized = errors.New("sensor: not initialized")
)

// BMP280 is the barometric pressure sensor on the ENV hat.
type BMP280 struct {
	// Altitude of the station in meters, for the sea level pressure.
	Altitude float64

	dev    *i2c.Dev
	calib  *bmp280Calibration
	logger *zap.Logger
}

type bmp280Calibration struct {
	t1                             uint16
	t2, t3                         int16
	p1                             uint16
	p2, p3, p4, p5, p6, p7, p8, p9 int16
}

// NewBMP280 returns the sensor at its ENV hat address on bus.
func NewBMP280(bus i2c.Bus, logger *zap.Logger) *BMP280 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BMP280{
		dev:    &i2c.Dev{Bus: bus, Addr: BMP280Addr},
		logger: logger.Named("bmp280"),
	}
}

func (b *BMP280) String() string {
	return fmt.Sprintf("BMP280 at %#02x", b.dev.Addr)
}

// Init checks the chip, loads its calibration and starts normal mode with
// x1 oversampling, 1 s standby and the filter off.
func (b *BMP280) Init() error {
	var id [1]byte
	if err := b.read(bmp280ID, id[:]); err != nil {
		return err
	}
	if id[0] != bmp280ChipID && id[0] != bme280ChipID {
		return errors.Wrapf(ErrChipID, "BMP280 %#02x", id[0])
	}

	var raw [24]byte
	if err := b.read(bmp280Calib, raw[:]); err != nil {
		return err
	}
	u := func(i int) uint16 { return binary.LittleEndian.Uint16(raw[i:]) }
	s := func(i int) int16 { return int16(u(i)) }
	calib := &bmp280Calibration{
		t1: u(0), t2: s(2), t3: s(4),
		p1: u(6), p2: s(8), p3: s(10), p4: s(12), p5: s(14),
		p6: s(16), p7: s(18), p8: s(20), p9: s(22),
	}

	if err := b.write(bmp280Config, 0b101_000_00); err != nil { // t_sb 1000 ms, filter off
		return err
	}
	if err := b.write(bmp280CtrlMeas, 0b001_001_11); err != nil { // osrs_t x1, osrs_p x1, normal
		return err
	}
	b.calib = calib
	b.logger.With(zap.Uint8("id", id[0])).Debug("initialized")
	return nil
}

// Atmosphere reads the latest measurement.
func (b *BMP280) Atmosphere() (Atmosphere, error) {
	if b.calib == nil {
		return Atmosphere{}, ErrNotInitialized
	}
	var raw [6]byte
	if err := b.read(bmp280Press, raw[:]); err != nil {
		return Atmosphere{}, err
	}
	var (
		adcP = int32(raw[0])<<12 | int32(raw[1])<<4 | int32(raw[2])>>4
		adcT = int32(raw[3])<<12 | int32(raw[4])<<4 | int32(raw[5])>>4
	)
	t, fine := b.calib.temperature(adcT)
	p, ok := b.calib.pressure(adcP, fine)
	if !ok {
		return Atmosphere{}, errors.New("sensor: BMP280 pressure compensation failed")
	}
	return Atmosphere{TemperatureC: t, PressureHPa: p / 100, Altitude: b.Altitude}, nil
}

// temperature returns °C and the fine temperature the pressure
// compensation needs.
func (c *bmp280Calibration) temperature(adc int32) (float64, float64) {
	var (
		v1 = (float64(adc)/16384 - float64(c.t1)/1024) * float64(c.t2)
		d  = float64(adc)/131072 - float64(c.t1)/8192
		v2 = d * d * float64(c.t3)
	)
	fine := v1 + v2
	return fine / 5120, fine
}

// pressure returns Pa.
func (c *bmp280Calibration) pressure(adc int32, fine float64) (float64, bool) {
	v1 := fine/2 - 64000
	v2 := v1 * v1 * float64(c.p6) / 32768
	v2 += v1 * float64(c.p5) * 2
	v2 = v2/4 + float64(c.p4)*65536
	v1 = (float64(c.p3)*v1*v1/524288 + float64(c.p2)*v1) / 524288
	v1 = (1 + v1/32768) * float64(c.p1)
	if v1 == 0 {
		return 0, false
	}
	p := 1048576 - float64(adc)
	p = (p - v2/4096) * 6250 / v1
	v1 = float64(c.p9) * p * p / 2147483648
	v2 = p * float64(c.p8) / 32768
	return p + (v1+v2+float64(c.p7))/16, true
}

func (b *BMP280) read(reg byte, r []byte) error {
	if err := b.dev.Tx([]byte{reg}, r); err != nil {
		return errors.Wrapf(err, "sensor: read BMP280 register %#02x", reg)
	}
	return nil
}

func (b *BMP280) write(reg, value byte) error {
	if err := b.dev.Tx([]byte{reg, value}, nil); err != nil {
		return errors.Wrapf(err, "sensor: write BMP280 register %#02x", reg)
	}
	return nil
}
