package view

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/pixel"
	"github.com/BeatGlow/display/v2/sensor"
)

type testCanvas struct {
	*pixel.CRGB16Image
	damage []image.Rectangle
}

func (c *testCanvas) Invalidate(r image.Rectangle) {
	c.damage = append(c.damage, r)
}

func newTestController(t *testing.T, w, h int) (*Controller, *testCanvas) {
	t.Helper()
	canvas := &testCanvas{CRGB16Image: pixel.NewCRGB16Image(w, h)}
	c, err := New(canvas, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c, canvas
}

func testSnapshot() Snapshot {
	return Snapshot{
		Reading: sensor.Reading{
			Env: sensor.Environment{TemperatureC: 22.5, Humidity: 41.2},
			Air: sensor.Atmosphere{TemperatureC: 23, PressureHPa: 1009.6, Altitude: 802},
			Power: sensor.Power{
				VBUSVoltage:    5.02,
				VBUSCurrent:    84,
				BatteryVoltage: 4.11,
				ChargeCurrent:  40,
			},
		},
		Stats: display.Stats{Flushes: 12, Chunks: 96, Bytes: 3 << 20},
	}
}

func TestNavigation(t *testing.T) {
	c, _ := newTestController(t, 80, 160)
	n := len(Screens())

	if c.Current().Title != "Temp" {
		t.Fatalf("expected the first screen, got %s", c.Current().Title)
	}
	c.Prev()
	if c.Current().Title != "Display" {
		t.Errorf("expected Prev to wrap to the last screen, got %s", c.Current().Title)
	}
	c.Next()
	if c.Current().Title != "Temp" {
		t.Errorf("expected Next to wrap to the first screen, got %s", c.Current().Title)
	}
	for i := 0; i < n; i++ {
		c.Next()
	}
	if c.Current().Title != "Temp" {
		t.Errorf("expected a full cycle to return to the first screen, got %s", c.Current().Title)
	}
}

func TestRedraw(t *testing.T) {
	for _, size := range []image.Point{{80, 160}, {160, 80}} {
		t.Run(size.String(), func(it *testing.T) {
			c, canvas := newTestController(it, size.X, size.Y)
			c.Redraw()

			if got := canvas.At(0, 0); got != TitleBackground {
				it.Errorf("expected the title background at the top, got %v", got)
			}
			if got := canvas.At(0, size.Y-1); got != ContentBackground {
				it.Errorf("expected the content background at the bottom, got %v", got)
			}
			if len(canvas.damage) != 2 ||
				canvas.damage[0] != image.Rect(0, 0, size.X, TitleHeight) ||
				canvas.damage[1] != image.Rect(0, TitleHeight, size.X, size.Y) {
				it.Errorf("expected title and content panes to be invalidated, got %v", canvas.damage)
			}

			var text bool
			for y := TitleHeight; y < size.Y && !text; y++ {
				for x := 0; x < size.X; x++ {
					if canvas.At(x, y) != ContentBackground {
						text = true
						break
					}
				}
			}
			if !text {
				it.Error("expected text in the content pane")
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	c, canvas := newTestController(t, 80, 160)
	c.Redraw()
	canvas.damage = nil

	s := testSnapshot()
	if !c.Update(s) {
		t.Fatal("expected the first reading to be drawn")
	}
	if len(canvas.damage) != 1 || canvas.damage[0] != image.Rect(0, TitleHeight, 80, 160) {
		t.Errorf("expected only the content pane to be invalidated, got %v", canvas.damage)
	}
	if c.Update(s) {
		t.Error("expected an unchanged reading to be skipped")
	}

	// a power change does not affect the temperature screen
	s.Reading.Power.VBUSVoltage = 4.9
	if c.Update(s) {
		t.Error("expected an unrelated change to be skipped")
	}
	s.Reading.Env.TemperatureC = 23
	if !c.Update(s) {
		t.Error("expected a new temperature to be drawn")
	}
}

func TestScreens(t *testing.T) {
	s := testSnapshot()
	failed := s
	failed.Reading.EnvErr = sensor.ErrChecksum
	failed.Reading.AirErr = sensor.ErrNotInitialized
	failed.Reading.PowerErr = errors.New("no ack")

	tests := []struct {
		title  string
		want   string
		failed bool // shows the missing marker on errors
	}{
		{"Temp", "72.5°F", true},
		{"Humidity", "41.2%", true},
		{"BMP280", "1010hPa", true},
		{"Battery", "Chg 40mA", true},
		{"USB", "VBUS 5.02V", true},
		{"PMU", "APS", true},
		{"Display", "Tx 3.00MB", false},
	}
	screens := Screens()
	if len(screens) != len(tests) {
		t.Fatalf("expected %d screens, got %d", len(tests), len(screens))
	}
	for i, test := range tests {
		t.Run(test.title, func(it *testing.T) {
			screen := screens[i]
			if screen.Title != test.title {
				it.Fatalf("expected screen %s, got %s", test.title, screen.Title)
			}
			content := screen.Content(s)
			text := content.Value + "|" + strings.Join(content.Lines, "|")
			if !strings.Contains(text, test.want) {
				it.Errorf("expected %q in %q", test.want, text)
			}

			content = screen.Content(failed)
			text = content.Value + "|" + strings.Join(content.Lines, "|")
			if strings.Contains(text, missing) != test.failed {
				it.Errorf("unexpected content on failure %q", text)
			}
		})
	}
}
