// Command envdash shows the ENV hat and power readings of an M5StickC on its
// ST7735S panel.
package main

import (
	flag "github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/BeatGlow/display/v2/internal/app"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	virtual    = flag.Bool("virtual", false, "use an in-memory panel and fixed readings")
	snapshot   = flag.String("snapshot", "", "write the virtual panel to this PNG file on exit")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	fx.New(app.Module(app.Options{
		ConfigPath: *configPath,
		Virtual:    *virtual,
		Snapshot:   *snapshot,
		Debug:      *debug,
	})).Run()
}
