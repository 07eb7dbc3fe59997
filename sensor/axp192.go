package sensor

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
)

// AXP192Addr is the fixed bus address of the AXP192.
const AXP192Addr = 0x34

// AXP192 registers
const (
	axpPowerOutCtrl   = 0x12
	axpIPSOutMgmt     = 0x30
	axpShutdownLED    = 0x32
	axpChargeCtrl1    = 0x33
	axpChargeCtrl2    = 0x34
	axpBackupCharge   = 0x35
	axpPEKSetting     = 0x36
	axpVHTHCharge     = 0x39
	axpLDO23Voltage   = 0x28
	axpADCEnable1     = 0x82
	axpADCSampleRate  = 0x84
	axpGPIO0Function  = 0x90
	axpGPIO0Voltage   = 0x91
	axpCoulombCtrl    = 0xB8
	axpACINVoltage    = 0x56
	axpACINCurrent    = 0x58
	axpVBUSVoltage    = 0x5A
	axpVBUSCurrent    = 0x5C
	axpTemperature    = 0x5E
	axpTSVoltage      = 0x62
	axpBatteryPower   = 0x70
	axpBatteryVoltage = 0x78
	axpChargeCurrent  = 0x7A
	axpDischargeCurr  = 0x7C
	axpAPSVoltage     = 0x7E
	axpCoulombCounter = 0xB0
)

// axpADCRate is the sample rate selected by the init table (0x84 = 0xF2).
const axpADCRate = 200

// MaxBacklight is the brightest LDO2 setting, 3.0 V.
const MaxBacklight = 12

// axp192Init powers the M5StickC rails and enables every ADC.
var axp192Init = []struct{ reg, value byte }{
	{axpLDO23Voltage, 0xCC},  // LDO2 = LDO3 = 3.0 V
	{axpADCSampleRate, 0xF2}, // 200 Hz, TS 80 µA
	{axpADCEnable1, 0xFF},
	{axpChargeCtrl1, 0xC0}, // 4.2 V, 100 mA
	{axpChargeCtrl2, 0x41},
	{axpGPIO0Function, 0x02}, // GPIO0 as LDO for the microphone
	{axpGPIO0Voltage, 0xF0},  // 3.3 V
	{axpPEKSetting, 0x09},    // power off after 6 s
	{axpIPSOutMgmt, 0x80},    // VBUS regardless of N_VBUSEN
	{axpVHTHCharge, 0xFC},
	{axpBackupCharge, 0xA2}, // RTC battery 3.0 V, 200 µA
	{axpShutdownLED, 0x42},
	{axpCoulombCtrl, 0x80},
	{axpPowerOutCtrl, 0x4F}, // all rails but DC-DC2, EXTEN on
}

// AXP192 is the power management chip of the M5StickC. Its LDO2 rail feeds
// the display backlight.
type AXP192 struct {
	dev    *i2c.Dev
	logger *zap.Logger
}

// NewAXP192 returns the chip at its fixed address on bus.
func NewAXP192(bus i2c.Bus, logger *zap.Logger) *AXP192 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AXP192{
		dev:    &i2c.Dev{Bus: bus, Addr: AXP192Addr},
		logger: logger.Named("axp192"),
	}
}

func (a *AXP192) String() string {
	return fmt.Sprintf("AXP192 at %#02x", a.dev.Addr)
}

// Init writes the power-on register table.
func (a *AXP192) Init() error {
	for _, w := range axp192Init {
		if err := a.write(w.reg, w.value); err != nil {
			return err
		}
	}
	a.logger.Debug("initialized")
	return nil
}

// SetBacklight sets the LDO2 voltage to 1.8 V + level×0.1 V, clamped to
// 0..MaxBacklight. LDO3 is left as it is.
func (a *AXP192) SetBacklight(level int) error {
	level = lo.Clamp(level, 0, MaxBacklight)
	var v [1]byte
	if err := a.read(axpLDO23Voltage, v[:]); err != nil {
		return err
	}
	a.logger.With(zap.Int("level", level)).Debug("backlight")
	return a.write(axpLDO23Voltage, byte(level)<<4|v[0]&0x0F)
}

// Power reads all ADC channels and the coulomb counter.
func (a *AXP192) Power() (Power, error) {
	var (
		p   Power
		err error
	)
	adc12 := func(reg byte, lsb float64) float64 {
		if err != nil {
			return 0
		}
		var b [2]byte
		err = a.read(reg, b[:])
		return float64(uint16(b[0])<<4|uint16(b[1]&0x0F)) * lsb
	}
	adc13 := func(reg byte, lsb float64) float64 {
		if err != nil {
			return 0
		}
		var b [2]byte
		err = a.read(reg, b[:])
		return float64(uint16(b[0])<<5|uint16(b[1]&0x1F)) * lsb
	}

	p.ACINVoltage = adc12(axpACINVoltage, 1.7e-3)
	p.ACINCurrent = adc12(axpACINCurrent, 0.625)
	p.VBUSVoltage = adc12(axpVBUSVoltage, 1.7e-3)
	p.VBUSCurrent = adc12(axpVBUSCurrent, 0.375)
	p.Temperature = adc12(axpTemperature, 0.1) - 144.7
	p.TSVoltage = adc12(axpTSVoltage, 0.8e-3)
	p.BatteryVoltage = adc12(axpBatteryVoltage, 1.1e-3)
	p.ChargeCurrent = adc13(axpChargeCurrent, 0.5)
	p.DischargeCurrent = adc13(axpDischargeCurr, 0.5)
	p.APSVoltage = adc12(axpAPSVoltage, 1.4e-3)
	if err != nil {
		return Power{}, err
	}

	var b [8]byte
	if err = a.read(axpBatteryPower, b[:3]); err != nil {
		return Power{}, err
	}
	// 1.1 mV × 0.5 mA = 0.55 µW per LSB, reported in mW
	p.BatteryPower = float64(uint32(b[0])<<16|uint32(b[1])<<8|uint32(b[2])) * 1.1 * 0.5 / 1000

	if err = a.read(axpCoulombCounter, b[:]); err != nil {
		return Power{}, err
	}
	in, out := binary.BigEndian.Uint32(b[:4]), binary.BigEndian.Uint32(b[4:])
	p.BatteryCapacity = 65536 * 0.5 * float64(int64(in)-int64(out)) / 3600 / axpADCRate
	return p, nil
}

func (a *AXP192) read(reg byte, r []byte) error {
	if err := a.dev.Tx([]byte{reg}, r); err != nil {
		return errors.Wrapf(err, "sensor: read AXP192 register %#02x", reg)
	}
	return nil
}

func (a *AXP192) write(reg, value byte) error {
	if err := a.dev.Tx([]byte{reg, value}, nil); err != nil {
		return errors.Wrapf(err, "sensor: write AXP192 register %#02x", reg)
	}
	return nil
}
