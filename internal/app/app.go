// Package app wires the dashboard together with fx.
package app

import (
	"os"

	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BeatGlow/display/v2/config"
)

// Options are the command line settings.
type Options struct {
	// ConfigPath is the JSON configuration, empty for the defaults.
	ConfigPath string

	// Virtual replaces the panel and the peripherals with in-memory stand-ins.
	Virtual bool

	// Snapshot is a PNG file written from the virtual panel on shutdown.
	Snapshot string

	Debug bool

	// Fs is used for the configuration and snapshots, the OS file system
	// when nil.
	Fs afero.Fs
}

// Module returns the application.
func Module(opts Options) fx.Option {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return fx.Options(
		fx.Supply(opts),
		fx.Provide(
			NewLogger,
			NewConfig,
			NewHardware,
			NewPanel,
			NewEngine,
			NewRenderer,
			NewView,
			NewSensorPoller,
			NewButtonPoller,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(Run),
	)
}

// NewLogger returns a development logger. DISPLAY_DEBUG or Options.Debug
// enable debug messages.
func NewLogger(opts Options) (*zap.Logger, error) {
	c := zap.NewDevelopmentConfig()
	c.Level.SetLevel(zapcore.InfoLevel)
	if opts.Debug || os.Getenv("DISPLAY_DEBUG") != "" {
		c.Level.SetLevel(zapcore.DebugLevel)
	}
	return c.Build()
}

// NewConfig loads the configuration file.
func NewConfig(opts Options, logger *zap.Logger) (*config.Config, error) {
	c := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if c, err = config.Load(opts.Fs, opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if opts.Virtual {
		c.Display.Transport = config.TransportVirtual
	}
	logger.With(
		zap.String("path", opts.ConfigPath),
		zap.String("transport", c.Display.Transport),
	).Info("configuration")
	return c, nil
}
