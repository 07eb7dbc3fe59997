package view

import (
	"fmt"

	bytesize "github.com/inhies/go-bytesize"
	"github.com/samber/lo"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/sensor"
)

// Snapshot is everything a screen can show.
type Snapshot struct {
	Reading sensor.Reading
	Stats   display.Stats
}

// Content of the pane below the title. Value is drawn large, Lines in the
// small face, one per row.
type Content struct {
	Value string
	Lines []string
}

func (c Content) equal(o Content) bool {
	if c.Value != o.Value || len(c.Lines) != len(o.Lines) {
		return false
	}
	for i := range c.Lines {
		if c.Lines[i] != o.Lines[i] {
			return false
		}
	}
	return true
}

// Screen is one page of the dashboard.
type Screen struct {
	Title   string
	Content func(Snapshot) Content
}

const missing = "--"

// Screens returns the dashboard pages in display order.
func Screens() []Screen {
	return []Screen{
		{"Temp", temperature},
		{"Humidity", humidity},
		{"BMP280", pressure},
		{"Battery", battery},
		{"USB", usb},
		{"PMU", pmu},
		{"Display", stats},
	}
}

func temperature(s Snapshot) Content {
	if s.Reading.EnvErr != nil {
		return Content{Value: missing}
	}
	e := s.Reading.Env
	return Content{
		Value: fmt.Sprintf("%.1f°F", e.TemperatureF()),
		Lines: []string{fmt.Sprintf("%.1f C", e.TemperatureC)},
	}
}

func humidity(s Snapshot) Content {
	if s.Reading.EnvErr != nil {
		return Content{Value: missing}
	}
	e := s.Reading.Env
	return Content{
		Value: fmt.Sprintf("%.1f%%", e.Humidity),
		Lines: []string{
			fmt.Sprintf("HI  %.1fF", e.HeatIndexF()),
			fmt.Sprintf("Dew %.1fC", e.DewPointC()),
		},
	}
}

func pressure(s Snapshot) Content {
	if s.Reading.AirErr != nil {
		return Content{Value: missing}
	}
	a := s.Reading.Air
	return Content{
		Value: fmt.Sprintf("%.0fhPa", a.PressureHPa),
		Lines: []string{
			fmt.Sprintf("Temp %.1fF", a.TemperatureF()),
			fmt.Sprintf("%.2f inHg", a.SeaLevelInHg()), // at sea level
		},
	}
}

func battery(s Snapshot) Content {
	if s.Reading.PowerErr != nil {
		return Content{Lines: []string{missing}}
	}
	p := s.Reading.Power
	return Content{Lines: []string{
		fmt.Sprintf("BAT %.2fV", p.BatteryVoltage),
		fmt.Sprintf("%s %.0fmA", lo.Ternary(p.Charging(), "Chg", "Dis"),
			lo.Ternary(p.Charging(), p.ChargeCurrent, p.DischargeCurrent)),
		fmt.Sprintf("Cap %.1fmAh", p.BatteryCapacity),
		fmt.Sprintf("Pwr %.0fmW", p.BatteryPower),
	}}
}

func usb(s Snapshot) Content {
	if s.Reading.PowerErr != nil {
		return Content{Lines: []string{missing}}
	}
	p := s.Reading.Power
	return Content{Lines: []string{
		fmt.Sprintf("VBUS %.2fV", p.VBUSVoltage),
		fmt.Sprintf("     %.0fmA", p.VBUSCurrent),
		fmt.Sprintf("ACIN %.2fV", p.ACINVoltage),
		fmt.Sprintf("     %.0fmA", p.ACINCurrent),
	}}
}

func pmu(s Snapshot) Content {
	if s.Reading.PowerErr != nil {
		return Content{Lines: []string{missing}}
	}
	p := s.Reading.Power
	return Content{Lines: []string{
		fmt.Sprintf("APS %.2fV", p.APSVoltage),
		fmt.Sprintf("AXP %.1fC", p.Temperature),
		fmt.Sprintf("TS  %.2fV", p.TSVoltage),
	}}
}

func stats(s Snapshot) Content {
	return Content{Lines: []string{
		fmt.Sprintf("Upd %d", s.Stats.Flushes),
		fmt.Sprintf("Err %d", s.Stats.Failed),
		fmt.Sprintf("Chk %d", s.Stats.Chunks),
		"Tx " + bytesize.New(float64(s.Stats.Bytes)).String(),
	}}
}
