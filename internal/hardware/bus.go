package hardware

import (
	"fmt"
	"log/slog"
	"strings"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus driver names accepted by OpenBus.
const (
	BusDriverPeriph = "periph" // periph.io host drivers (sysfs / bcm283x)
	BusDriverRdwr   = "rdwr"   // raw I2C_RDWR ioctl on /dev/i2c-N
)

// OpenBus opens the I²C bus called name with the given driver. For the periph
// driver name is a periph bus name or number ("" for the default bus); for
// rdwr it is a device path or a bare bus number.
func OpenBus(driver, name string) (i2c.BusCloser, error) {
	switch driver {
	case BusDriverPeriph, "":
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("i2c: host init failed: %w", err)
		}
		bus, err := i2creg.Open(name)
		if err != nil {
			return nil, fmt.Errorf("i2c: open bus %q: %w", name, err)
		}
		slog.Debug("i2c: bus opened", "driver", BusDriverPeriph, "bus", bus.String())
		return bus, nil
	case BusDriverRdwr:
		path := name
		if path == "" {
			path = "1"
		}
		if !strings.HasPrefix(path, "/") {
			path = "/dev/i2c-" + path
		}
		bus, err := OpenRdwr(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("i2c: bus opened", "driver", BusDriverRdwr, "bus", path)
		return bus, nil
	default:
		return nil, fmt.Errorf("i2c: unknown bus driver %q", driver)
	}
}
