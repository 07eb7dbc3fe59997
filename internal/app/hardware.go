package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/display/v2/button"
	"github.com/BeatGlow/display/v2/config"
	"github.com/BeatGlow/display/v2/conn"
	"github.com/BeatGlow/display/v2/sensor"
)

// Button names
const (
	ButtonNext = "next"
	ButtonPrev = "prev"
)

// Hardware are the peripherals next to the panel. Missing parts are nil.
type Hardware struct {
	Bus     *conn.I2C
	Power   *sensor.AXP192
	Env     *sensor.DHT12
	Air     *sensor.BMP280
	Buttons []*button.Button
}

// NewHardware loads the host drivers and opens the I²C bus and button pins.
// Virtual runs have no hardware.
func NewHardware(lc fx.Lifecycle, c *config.Config, logger *zap.Logger) (*Hardware, error) {
	hw := new(Hardware)
	if c.Display.Transport == config.TransportVirtual {
		return hw, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "app: load host drivers")
	}

	if c.I2C.Enabled {
		bus, err := conn.OpenI2C(c.I2C.Bus)
		if err != nil {
			return nil, err
		}
		hw.Bus = bus
		hw.Power = sensor.NewAXP192(bus, logger)
		hw.Env = sensor.NewDHT12(bus, logger)
		hw.Air = sensor.NewBMP280(bus, logger)
		hw.Air.Altitude = c.Sensors.Altitude
		if err = hw.Air.Init(); err != nil {
			logger.With(zap.Stringer("sensor", hw.Air), zap.Error(err)).Warn("pressure sensor unavailable")
			hw.Air = nil
		}

		// the power chip feeds the panel, set it up before bring-up
		err = hw.Power.Init()
		if err == nil {
			err = hw.Power.SetBacklight(c.Display.Backlight)
		}
		if err != nil {
			logger.With(zap.Stringer("pmu", hw.Power), zap.Error(err)).Warn("power chip unavailable")
			hw.Power = nil
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return bus.Close() },
		})
	}

	for _, b := range []struct{ name, pin string }{
		{ButtonNext, c.Buttons.Next},
		{ButtonPrev, c.Buttons.Prev},
	} {
		if b.pin == "" {
			continue
		}
		pin := gpioreg.ByName(b.pin)
		if pin == nil {
			return nil, fmt.Errorf("app: unknown %s button pin %q", b.name, b.pin)
		}
		hw.Buttons = append(hw.Buttons, button.New(b.name, pin))
	}
	return hw, nil
}

// NewSensorPoller polls the ENV hat sensors and the power chip. Virtual runs read
// fixed values.
func NewSensorPoller(c *config.Config, hw *Hardware, logger *zap.Logger) *sensor.Poller {
	interval := time.Duration(c.Sensors.Interval)
	if c.Display.Transport == config.TransportVirtual {
		fixed := &sensor.Fixed{
			Env: sensor.Environment{TemperatureC: 22.4, Humidity: 45.1},
			Air: sensor.Atmosphere{TemperatureC: 23.1, PressureHPa: 1009.8, Altitude: c.Sensors.Altitude},
			Supply: sensor.Power{
				VBUSVoltage:    5.02,
				VBUSCurrent:    96,
				BatteryVoltage: 4.08,
				ChargeCurrent:  42,
				APSVoltage:     4.95,
				Temperature:    41.3,
			},
		}
		return sensor.NewPoller(sensor.Sources{Env: fixed, Air: fixed, Power: fixed}, interval, logger)
	}

	var sources sensor.Sources
	if hw.Env != nil {
		sources.Env = hw.Env
	}
	if hw.Air != nil {
		sources.Air = hw.Air
	}
	if hw.Power != nil {
		sources.Power = hw.Power
	}
	return sensor.NewPoller(sources, interval, logger)
}

// NewButtonPoller debounces the configured buttons.
func NewButtonPoller(c *config.Config, hw *Hardware, logger *zap.Logger) *button.Poller {
	return button.NewPoller(time.Duration(c.Buttons.Interval), logger, hw.Buttons...)
}
