// Command display-scan lists the buses the dashboard can use and checks the
// M5StickC and ENV hat peripherals on the I²C bus.
package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/display/v2/conn"
	"github.com/BeatGlow/display/v2/sensor"
)

func main() {
	i2cFlag := flag.String("i2c", "", "I²C bus to scan (default: use first available)")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := zap.NewNop()
	if *debugFlag {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	if _, err := host.Init(); err != nil {
		fatal(err)
	}

	fmt.Println("SPI ports:")
	for _, ref := range spireg.All() {
		fmt.Printf("  %s %v\n", ref.Name, ref.Aliases)
	}

	fmt.Println("serial ports:")
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	for _, name := range ports {
		fmt.Printf("  %s\n", name)
	}

	fmt.Println("I²C buses:")
	for _, ref := range i2creg.All() {
		fmt.Printf("  %s %v\n", ref.Name, ref.Aliases)
	}

	bus, err := conn.OpenI2C(*i2cFlag)
	if err != nil {
		fatal(err)
	}
	defer bus.Close()
	fmt.Printf("scanning %s\n", bus)

	env := sensor.NewDHT12(bus, logger)
	if e, err := env.Environment(); err != nil {
		fmt.Printf("  %s: %v\n", env, err)
	} else {
		fmt.Printf("  %s: %s, dew point %.1f C\n", env, e, e.DewPointC())
	}

	air := sensor.NewBMP280(bus, logger)
	if err := air.Init(); err != nil {
		fmt.Printf("  %s: %v\n", air, err)
	} else {
		// First conversion in normal mode.
		time.Sleep(50 * time.Millisecond)
		if a, err := air.Atmosphere(); err != nil {
			fmt.Printf("  %s: %v\n", air, err)
		} else {
			fmt.Printf("  %s: %s\n", air, a)
		}
	}

	pmu := sensor.NewAXP192(bus, logger)
	if p, err := pmu.Power(); err != nil {
		fmt.Printf("  %s: %v\n", pmu, err)
	} else {
		fmt.Printf("  %s: battery %.2fV, VBUS %.2fV, %.1f°C\n", pmu, p.BatteryVoltage, p.VBUSVoltage, p.Temperature)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
