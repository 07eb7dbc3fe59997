package app

import (
	"context"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/button"
	"github.com/BeatGlow/display/v2/render"
	"github.com/BeatGlow/display/v2/sensor"
	"github.com/BeatGlow/display/v2/view"
)

// refreshInterval bounds the delay between drawing and flushing.
const refreshInterval = 50 * time.Millisecond

// UI owns the renderer and the view. Only its loop touches them.
type UI struct {
	engine   *display.Engine
	renderer *render.Renderer
	view     *view.Controller
	sensors  *sensor.Poller
	buttons  *button.Poller
	logger   *zap.Logger
}

// Params are the dependencies of Run.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Options   Options
	Panel     *Panel
	Engine    *display.Engine
	Renderer  *render.Renderer
	View      *view.Controller
	Sensors   *sensor.Poller
	Buttons   *button.Poller
	Logger    *zap.Logger
}

// Run starts the pollers and the UI loop with the application and stops them
// before the engine is closed.
func Run(p Params) {
	ui := &UI{
		engine:   p.Engine,
		renderer: p.Renderer,
		view:     p.View,
		sensors:  p.Sensors,
		buttons:  p.Buttons,
		logger:   p.Logger.Named("ui"),
	}

	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc
	)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := p.Buttons.Init(); err != nil {
				return err
			}

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			for _, run := range []func(context.Context) error{p.Sensors.Run, p.Buttons.Run, ui.Run} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						ui.logger.With(zap.Error(err)).Error("stopped")
					}
				}()
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			if p.Panel.Virtual != nil && p.Options.Snapshot != "" {
				return writeSnapshot(p.Options, p.Panel.Virtual, ui.logger)
			}
			return nil
		},
	})
}

// Run draws the current screen and handles readings and button events until
// ctx is done.
func (ui *UI) Run(ctx context.Context) error {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	ui.view.Redraw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-ui.sensors.Readings():
			ui.view.Update(view.Snapshot{Reading: r, Stats: ui.engine.Stats()})
		case e := <-ui.buttons.Events():
			ui.handle(e)
		case <-ticker.C:
		}
		ui.refresh()
	}
}

// handle switches screens: next on press, previous on release.
func (ui *UI) handle(e button.Event) {
	switch {
	case e.Button == ButtonNext && e.Kind == button.Pressed:
		ui.view.Next()
	case e.Button == ButtonPrev && e.Kind == button.Released:
		ui.view.Prev()
	}
}

func (ui *UI) refresh() {
	err := ui.renderer.Refresh()
	if err == nil || errors.Is(err, render.ErrPending) {
		return
	}
	ui.logger.With(zap.Error(err)).Warn("refresh failed, retrying")
}

func writeSnapshot(opts Options, v *display.Virtual, logger *zap.Logger) error {
	f, err := opts.Fs.Create(opts.Snapshot)
	if err != nil {
		return errors.Wrap(err, "app: create snapshot")
	}
	if err = imaging.Encode(f, v.Image(), imaging.PNG); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "app: encode snapshot")
	}
	logger.With(zap.String("path", opts.Snapshot)).Info("snapshot written")
	return f.Close()
}
