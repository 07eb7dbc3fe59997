// Command display-test draws a test pattern or an image on an ST7735S or
// ST7789V2 panel.
package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	bytesize "github.com/inhies/go-bytesize"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/display/v2"
	"github.com/BeatGlow/display/v2/conn"
	"github.com/BeatGlow/display/v2/draw"
	"github.com/BeatGlow/display/v2/framebuffer"
	"github.com/BeatGlow/display/v2/pixel"
	"github.com/BeatGlow/display/v2/render"
)

// panel is a controller with a PWM backlight.
type panel interface {
	display.Controller
	SetBrightness(level uint8) error
}

func main() {
	controllerFlag := flag.StringP("controller", "c", "st7735", "Display controller (st7735 or st7789)")
	spiPortFlag := flag.String("spi", "", "SPI port (default: use first available)")
	speedFlag := flag.Int64("speed", 26, "SPI clock in MHz")
	fbFlag := flag.String("fb", "/dev/fb1", "Framebuffer device")
	serialFlag := flag.String("serial", conn.DefaultSerialConfig.Name, "Serial bridge port")
	resetPinFlag := flag.String("reset", "GPIO18", "Reset GPIO pin")
	dcPinFlag := flag.String("dc", "GPIO23", "Data/Command GPIO pin (DC)")
	csPinFlag := flag.String("cs", "", "Chip select GPIO pin, if not driven by the port")
	blPinFlag := flag.String("bl", "", "Backlight PWM GPIO pin")
	brightnessFlag := flag.Uint8("brightness", 0xFF, "Backlight brightness")
	rotateFlag := flag.String("rotate", "", "Display rotation")
	colFlag := flag.Int("col", 26, "Column offset of the visible area")
	rowFlag := flag.Int("row", 1, "Row offset of the visible area")
	budgetFlag := flag.Int("budget", 0, "Transfer budget in bytes (default: 10 display rows)")
	splashFlag := flag.String("splash", "", "Show this image instead of the test pattern")
	framesFlag := flag.Int("frames", 0, "Number of pattern frames, 0 runs until interrupted")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <spi|serial|fbdev|virtual>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *debugFlag {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	rotation, err := display.ParseRotation(*rotateFlag)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("using rotation: %s\n", rotation)

	var width, height int
	switch *controllerFlag {
	case "st7735":
		width, height = display.ST7735Width, display.ST7735Height
	case "st7789":
		// M5StickC Plus visible area, unless overridden.
		width, height = display.ST7789Width, display.ST7789Height
		if !flag.CommandLine.Changed("col") {
			*colFlag = 52
		}
		if !flag.CommandLine.Changed("row") {
			*rowFlag = 40
		}
	default:
		fatal(fmt.Errorf("unsupported controller %q", *controllerFlag))
	}

	config := &display.Config{
		Width:          width,
		Height:         height,
		Rotation:       rotation,
		Offset:         display.Offset{Col: *colFlag, Row: *rowFlag},
		BytesPerPixel:  2,
		TransferBudget: *budgetFlag,
	}
	if rotation.Landscape() {
		config.Width, config.Height = config.Height, config.Width
	}
	if !flag.CommandLine.Changed("budget") {
		config.TransferBudget = 10 * config.RowBytes()
	}

	busType := strings.ToLower(flag.Arg(0))
	if busType == "fbdev" {
		// The kernel driver applies the offsets.
		if !flag.CommandLine.Changed("col") {
			config.Offset.Col = 0
		}
		if !flag.CommandLine.Changed("row") {
			config.Offset.Row = 0
		}
	}

	var (
		ctrl  panel
		named fmt.Stringer
	)
	if busType != "virtual" {
		if _, err = host.Init(); err != nil {
			fatal(err)
		}
	}

	engine, err := display.New(config, logger)
	if err != nil {
		fatal(err)
	}
	err = engine.Initialize(func() (display.Controller, error) {
		var (
			bus conn.Bus
			err error
		)
		switch busType {
		case "virtual":
			virtual := display.NewVirtual(config, logger)
			named = virtual
			return virtual, nil
		case "fbdev":
			fb, err := framebuffer.Open(*fbFlag, logger)
			if err != nil {
				return nil, err
			}
			named = fb
			return fb, nil
		case "spi":
			spiConfig := &conn.SPIConfig{
				Port:      *spiPortFlag,
				Speed:     physic.Frequency(*speedFlag) * physic.MegaHertz,
				Mode:      conn.DefaultSPIConfig.Mode,
				BatchSize: config.TransferBudget,
				Reset:     gpioreg.ByName(*resetPinFlag),
				DC:        gpioreg.ByName(*dcPinFlag),
			}
			if *csPinFlag != "" {
				spiConfig.CS = gpioreg.ByName(*csPinFlag)
			}
			bus, err = conn.OpenSPI(spiConfig, logger)
		case "serial":
			serialConfig := conn.DefaultSerialConfig
			serialConfig.Name = *serialFlag
			bus, err = conn.OpenSerial(&serialConfig, logger)
		default:
			err = fmt.Errorf("unsupported bus type %q", busType)
		}
		if err != nil {
			return nil, err
		}
		fmt.Printf("using connection: %s\n", bus)

		var backlight gpio.PinOut
		if *blPinFlag != "" {
			backlight = gpioreg.ByName(*blPinFlag)
		}
		panelConfig := &display.ST7735Config{
			Rotation:  rotation,
			Backlight: backlight,
		}
		if *controllerFlag == "st7789" {
			ctrl = display.NewST7789(bus, panelConfig, logger)
		} else {
			ctrl = display.NewST7735(bus, panelConfig, logger)
		}
		named = ctrl
		return ctrl, nil
	})
	if err != nil {
		fatal(err)
	}
	defer engine.Close()

	if ctrl != nil {
		if err = ctrl.SetBrightness(*brightnessFlag); err != nil {
			fatal(err)
		}
	}

	output := render.New(engine, logger)
	r := output.Bounds()
	ec := engine.Config()
	fmt.Printf("using driver: %s, %s with %d lines per %d byte chunk\n", named, r.Size(), ec.LinesPerChunk(), ec.TransferBudget)

	// Draw box around edge
	output.Fill(pixel.Black)
	draw.Rectangle(output, r, pixel.White)
	output.InvalidateAll()
	if err = output.Refresh(); err != nil {
		fatal(err)
	}

	if *splashFlag != "" {
		img, err := imaging.Open(*splashFlag, imaging.AutoOrientation(true))
		if err != nil {
			fatal(err)
		}
		img = imaging.Fill(img, r.Dx(), r.Dy(), imaging.Center, imaging.Lanczos)
		draw.Draw(output, r, img, image.Point{}, draw.Src)
		output.InvalidateAll()
		if err = output.Refresh(); err != nil {
			fatal(err)
		}
		fmt.Printf("showing %s\n", *splashFlag)
	} else {
		pattern(output, *framesFlag)
	}

	stats := engine.Stats()
	fmt.Printf("sent %d regions in %d chunks, %s\n", stats.Flushes, stats.Chunks, bytesize.New(float64(stats.Bytes)))
}

// pattern animates a gradient inside the border.
func pattern(output *render.Renderer, frames int) {
	var (
		offset int
		ticker = time.NewTicker(50 * time.Millisecond)
		r      = output.Bounds()
		inner  = r.Inset(1)
		start  = time.Now()
	)
	defer ticker.Stop()

	if frames == 0 {
		fmt.Println("hit control-c to stop...")
	}
	for frames == 0 || offset < frames {
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			for x := inner.Min.X; x < inner.Max.X; x++ {
				output.Set(x, y, color.RGBA{
					R: uint8(x + y + offset),
					G: uint8(x - y + offset),
					B: uint8(x + y - offset),
					A: 0xff,
				})
			}
		}
		draw.TextCentered(output, draw.SmallFace, inner, fmt.Sprintf("%d", offset), pixel.White)
		output.Invalidate(inner)
		if err := output.Refresh(); err != nil {
			fatal(err)
		}

		offset++
		<-ticker.C
	}
	elapsed := time.Since(start)
	fmt.Printf("%d frames in %s, %.1f fps\n", offset, elapsed.Round(time.Millisecond), float64(offset)/elapsed.Seconds())
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
