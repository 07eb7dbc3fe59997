package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/config"
	"github.com/BeatGlow/display/v2/conn"
	"github.com/BeatGlow/display/v2/framebuffer"
	"github.com/BeatGlow/display/v2/render"
	"github.com/BeatGlow/display/v2/view"
)

// Panel opens the display controller. Virtual is set for virtual runs.
type Panel struct {
	Open    display.Opener
	Virtual *display.Virtual
}

// NewPanel selects the controller for the configured transport.
func NewPanel(c *config.Config, logger *zap.Logger) (*Panel, error) {
	dc, err := c.DisplayConfig()
	if err != nil {
		return nil, err
	}

	controller := func(bus conn.Bus) display.Controller {
		pc := &display.ST7735Config{
			Width:    c.Display.Width,
			Height:   c.Display.Height,
			Rotation: dc.Rotation,
		}
		if c.Display.Controller == config.ControllerST7789 {
			return display.NewST7789(bus, pc, logger)
		}
		return display.NewST7735(bus, pc, logger)
	}

	switch c.Display.Transport {
	case config.TransportVirtual:
		v := display.NewVirtual(dc, logger)
		return &Panel{
			Open:    func() (display.Controller, error) { return v, nil },
			Virtual: v,
		}, nil
	case config.TransportFramebuffer:
		return &Panel{Open: func() (display.Controller, error) {
			fb, err := framebuffer.Open(c.Fbdev.Device, logger)
			if err != nil {
				return nil, err
			}
			if w, h := fb.Size(); w != dc.Width || h != dc.Height {
				logger.With(
					zap.Stringer("framebuffer", fb),
					zap.Int("width", dc.Width),
					zap.Int("height", dc.Height),
				).Warn("framebuffer size differs from the display")
			}
			return fb, nil
		}}, nil
	case config.TransportSerial:
		return &Panel{Open: func() (display.Controller, error) {
			bus, err := conn.OpenSerial(c.SerialConfig(), logger)
			if err != nil {
				return nil, err
			}
			return controller(bus), nil
		}}, nil
	default:
		return &Panel{Open: func() (display.Controller, error) {
			bus, err := conn.OpenSPI(c.SPIConfig(), logger)
			if err != nil {
				return nil, err
			}
			return controller(bus), nil
		}}, nil
	}
}

// NewEngine returns the frame transfer engine. The panel is brought up on
// start and released on stop.
func NewEngine(lc fx.Lifecycle, c *config.Config, panel *Panel, logger *zap.Logger) (*display.Engine, error) {
	dc, err := c.DisplayConfig()
	if err != nil {
		return nil, err
	}
	e, err := display.New(dc, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return e.Initialize(panel.Open) },
		OnStop:  func(context.Context) error { return e.Close() },
	})
	return e, nil
}

// NewRenderer returns the framebuffer on top of the engine.
func NewRenderer(e *display.Engine, logger *zap.Logger) *render.Renderer {
	return render.New(e, logger)
}

// NewView returns the screen controller drawing into the renderer.
func NewView(r *render.Renderer, logger *zap.Logger) (*view.Controller, error) {
	return view.New(r, logger)
}
