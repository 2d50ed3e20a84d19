// Command panel-probe dumps the expander input banks, for bench bring-up of a
// new board. With -watch it keeps polling and prints every change.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/micro-nova/amplipi-panel/internal/hardware"
)

func main() {
	var (
		mock      = flag.Bool("mock", false, "use a simulated expander")
		busName   = flag.String("bus", "", "I2C bus name or number")
		busDriver = flag.String("bus-driver", hardware.BusDriverPeriph, "I2C driver: periph or rdwr")
		addr      = flag.String("addr", "0x20", "expander address")
		boardName = flag.String("board", "", "configure direction registers from this board first")
		watch     = flag.Duration("watch", 0, "poll interval; 0 reads once")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	a, err := strconv.ParseUint(*addr, 0, 16)
	if err != nil {
		slog.Error("invalid expander address", "addr", *addr, "err", err)
		os.Exit(2)
	}

	var bus i2c.BusCloser
	if *mock {
		bus = hardware.NewMock(uint16(a))
	} else {
		bus, err = hardware.OpenBus(*busDriver, *busName)
		if err != nil {
			slog.Error("i2c bus unavailable", "err", err)
			os.Exit(1)
		}
	}
	defer bus.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exp := hardware.NewExpander(bus, uint16(a))
	if *boardName != "" {
		b, err := hardware.LookupBoard(*boardName)
		if err != nil {
			slog.Error("unknown board", "err", err)
			os.Exit(2)
		}
		if err := exp.Initialize(ctx, b.DirA, b.DirB, b.Inputs()...); err != nil {
			slog.Error("initialize failed", "err", err)
			os.Exit(1)
		}
	}

	dirA, errA := exp.ReadBank(ctx, hardware.RegConfigA)
	dirB, errB := exp.ReadBank(ctx, hardware.RegConfigB)
	if errA != nil || errB != nil {
		slog.Error("read failed", "expander", exp.String(), "err", errors.Join(errA, errB))
		os.Exit(1)
	}
	fmt.Printf("%s dir A=0x%02x B=0x%02x\n", exp.String(), dirA, dirB)

	last, err := exp.Snapshot(ctx)
	if err != nil {
		slog.Error("read failed", "expander", exp.String(), "err", err)
		os.Exit(1)
	}
	fmt.Println(formatSnapshot(time.Now(), last))
	if *watch <= 0 {
		return
	}

	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s, err := exp.Snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("read failed", "err", err)
				continue
			}
			if s != last {
				fmt.Println(formatSnapshot(now, s))
				last = s
			}
		}
	}
}

func formatSnapshot(at time.Time, s hardware.PinSnapshot) string {
	active := make([]int, 0, hardware.NumPins)
	for pin, on := range s.Active {
		if on {
			active = append(active, pin)
		}
	}
	return fmt.Sprintf("%s A=0x%02x B=0x%02x active=%v", at.Format("15:04:05.000"), s.PortA, s.PortB, active)
}
