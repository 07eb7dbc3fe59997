// Package sensor reads the environment hat and the power management chip of
// the M5StickC over I²C.
package sensor

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrChecksum is returned when a sensor frame fails its checksum.
	ErrChecksum = errors.New("sensor: checksum mismatch")

	// ErrAbsent marks a reading from a source that is not configured.
	ErrAbsent = errors.New("sensor: not present")
)

// Environment is a temperature and relative humidity measurement.
type Environment struct {
	TemperatureC float64 // °C
	Humidity     float64 // %RH
}

// TemperatureF is the temperature in °F.
func (e Environment) TemperatureF() float64 {
	return e.TemperatureC*9/5 + 32
}

// HeatIndexF is the apparent temperature in °F, using the NWS Rothfusz
// regression with the low humidity and high humidity adjustments.
func (e Environment) HeatIndexF() float64 {
	t, rh := e.TemperatureF(), e.Humidity
	hi := 0.5 * (t + 61.0 + (t-68.0)*1.2 + rh*0.094)
	if (hi+t)/2 < 80 {
		return hi
	}

	hi = -42.379 + 2.04901523*t + 10.14333127*rh -
		0.22475541*t*rh - 0.00683783*t*t -
		0.05481717*rh*rh + 0.00122874*t*t*rh +
		0.00085282*t*rh*rh - 0.00000199*t*t*rh*rh
	switch {
	case rh < 13 && t >= 80 && t <= 112:
		hi -= (13 - rh) / 4 * math.Sqrt((17-math.Abs(t-95))/17)
	case rh > 85 && t >= 80 && t <= 87:
		hi += (rh - 85) / 10 * (87 - t) / 5
	}
	return hi
}

// HeatIndexC is the apparent temperature in °C.
func (e Environment) HeatIndexC() float64 {
	return (e.HeatIndexF() - 32) * 5 / 9
}

// DewPointC approximates the dew point in °C, within 0.25 °C for 0..70 °C.
func (e Environment) DewPointC() float64 {
	t, d := e.TemperatureC, 1-0.01*e.Humidity
	return t - (14.55+0.114*t)*d -
		math.Pow((2.5+0.007*t)*d, 3) -
		(15.9+0.117*t)*math.Pow(d, 14)
}

func (e Environment) String() string {
	return fmt.Sprintf("%.1f°C %.1f%%RH", e.TemperatureC, e.Humidity)
}

// Atmosphere is a barometric measurement taken at Altitude meters.
type Atmosphere struct {
	TemperatureC float64 // °C
	PressureHPa  float64 // hPa, at the station
	Altitude     float64 // m
}

// TemperatureF is the temperature in °F.
func (a Atmosphere) TemperatureF() float64 {
	return a.TemperatureC*9/5 + 32
}

// SeaLevelHPa reduces the station pressure to sea level with the
// barometric formula.
func (a Atmosphere) SeaLevelHPa() float64 {
	lapse := 0.0065 * a.Altitude
	return a.PressureHPa / math.Pow(1-lapse/(a.TemperatureC+lapse+273.15), 5.257)
}

// SeaLevelInHg is the sea level pressure in inches of mercury.
func (a Atmosphere) SeaLevelInHg() float64 {
	return a.SeaLevelHPa() / hPaPerInHg
}

const hPaPerInHg = 33.8639

func (a Atmosphere) String() string {
	return fmt.Sprintf("%.1f°C %.1fhPa", a.TemperatureC, a.PressureHPa)
}

// Power is a set of measurements from the power management chip.
type Power struct {
	ACINVoltage      float64 // V
	ACINCurrent      float64 // mA
	VBUSVoltage      float64 // V
	VBUSCurrent      float64 // mA
	BatteryVoltage   float64 // V
	ChargeCurrent    float64 // mA
	DischargeCurrent float64 // mA
	BatteryPower     float64 // mW
	BatteryCapacity  float64 // mAh, from the coulomb counter
	APSVoltage       float64 // V
	TSVoltage        float64 // V
	Temperature      float64 // °C, internal
}

// Charging reports if the battery is taking more current than it delivers.
func (p Power) Charging() bool {
	return p.ChargeCurrent > p.DischargeCurrent
}

// Reading is one poll of all sources.
type Reading struct {
	Time     time.Time
	Env      Environment
	EnvErr   error
	Air      Atmosphere
	AirErr   error
	Power    Power
	PowerErr error
}

// EnvironmentSensor measures temperature and humidity.
type EnvironmentSensor interface {
	fmt.Stringer
	Environment() (Environment, error)
}

// AtmosphereSensor measures barometric pressure.
type AtmosphereSensor interface {
	fmt.Stringer
	Atmosphere() (Atmosphere, error)
}

// PowerSensor measures supply voltages and currents.
type PowerSensor interface {
	fmt.Stringer
	Power() (Power, error)
}

// Fixed returns the same measurements on every read. It stands in for the
// hardware in virtual runs.
type Fixed struct {
	Env    Environment
	Air    Atmosphere
	Supply Power
}

func (f *Fixed) String() string { return "fixed" }

func (f *Fixed) Environment() (Environment, error) { return f.Env, nil }

func (f *Fixed) Atmosphere() (Atmosphere, error) { return f.Air, nil }

func (f *Fixed) Power() (Power, error) { return f.Supply, nil }

// Interface checks
var (
	_ EnvironmentSensor = (*Fixed)(nil)
	_ AtmosphereSensor  = (*Fixed)(nil)
	_ PowerSensor       = (*Fixed)(nil)
	_ EnvironmentSensor = (*DHT12)(nil)
	_ AtmosphereSensor  = (*BMP280)(nil)
	_ PowerSensor       = (*AXP192)(nil)
)
