package app

import (
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2/button"
	"github.com/BeatGlow/display/v2/config"
	"github.com/BeatGlow/display/v2/pixel"
	"github.com/BeatGlow/display/v2/render"
	"github.com/BeatGlow/display/v2/view"
)

func TestVirtualRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/envdash.json", []byte(`{
		"display": {"rotation": 90},
		"sensors": {"interval": "5ms"}
	}`), 0o644)

	var (
		renderer *render.Renderer
		panel    *Panel
	)
	app := fxtest.New(t,
		Module(Options{
			ConfigPath: "/envdash.json",
			Virtual:    true,
			Snapshot:   "/snapshot.png",
			Fs:         fs,
		}),
		fx.Populate(&renderer, &panel),
	)
	app.RequireStart()

	deadline := time.Now().Add(5 * time.Second)
	for renderer.Shown() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for the dashboard to be drawn")
		}
		time.Sleep(10 * time.Millisecond)
	}
	app.RequireStop()

	if panel.Virtual == nil {
		t.Fatal("expected a virtual panel")
	}
	f, err := fs.Open("/snapshot.png")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 80 {
		t.Errorf("expected a 160x80 landscape snapshot, got %s", b)
	}
	if got := pixel.CRGB16Model.Convert(img.At(0, 0)); got != view.TitleBackground {
		t.Errorf("expected the title pane in the snapshot, got %v", got)
	}
	if got := pixel.CRGB16Model.Convert(img.At(0, 79)); got != view.ContentBackground {
		t.Errorf("expected the content pane in the snapshot, got %v", got)
	}
	if got := panel.Virtual.Image().At(0, 0); got != view.TitleBackground {
		t.Errorf("expected the title pane on the panel, got %v", got)
	}
}

func TestConfigError(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/envdash.json", []byte(`{"display": {"rotation": 45}}`), 0o644)

	app := fx.New(Module(Options{ConfigPath: "/envdash.json", Virtual: true, Fs: fs}))
	if app.Err() == nil {
		t.Fatal("expected the invalid configuration to fail the application")
	}
}

func TestHandle(t *testing.T) {
	c := config.Default()
	c.Display.Transport = config.TransportVirtual
	panel, err := NewPanel(c, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	engine, err := NewEngine(fxtest.NewLifecycle(t), c, panel, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewView(NewRenderer(engine, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ui := &UI{view: v}

	tests := []struct {
		event button.Event
		want  string
	}{
		{button.Event{Button: ButtonNext, Kind: button.Released}, "Temp"},
		{button.Event{Button: ButtonNext, Kind: button.Pressed}, "Humidity"},
		{button.Event{Button: ButtonPrev, Kind: button.Pressed}, "Humidity"},
		{button.Event{Button: ButtonPrev, Kind: button.Released}, "Temp"},
		{button.Event{Button: ButtonPrev, Kind: button.Released}, "Display"},
	}
	for _, test := range tests {
		ui.handle(test.event)
		if got := v.Current().Title; got != test.want {
			t.Errorf("after %s %s: expected %s, got %s", test.event.Button, test.event.Kind, test.want, got)
		}
	}
}
