// Command panel is the front panel daemon: it samples the volume keys on the
// I²C expander, drives the output volume and serves the panel state over HTTP.
// Run with --mock to use a simulated expander (no I²C device required).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/micro-nova/amplipi-panel/internal/api"
	"github.com/micro-nova/amplipi-panel/internal/audio"
	"github.com/micro-nova/amplipi-panel/internal/auth"
	"github.com/micro-nova/amplipi-panel/internal/config"
	"github.com/micro-nova/amplipi-panel/internal/display"
	"github.com/micro-nova/amplipi-panel/internal/events"
	"github.com/micro-nova/amplipi-panel/internal/hardware"
	"github.com/micro-nova/amplipi-panel/internal/identity"
	"github.com/micro-nova/amplipi-panel/internal/input"
	"github.com/micro-nova/amplipi-panel/internal/mqtt"
	"github.com/micro-nova/amplipi-panel/internal/panel"
	"github.com/micro-nova/amplipi-panel/internal/volume"
	"github.com/micro-nova/amplipi-panel/internal/zeroconf"
)

func main() {
	var (
		mock         = flag.Bool("mock", false, "use a simulated expander (no I2C device required)")
		boardName    = flag.String("board", hardware.DefaultBoard, "built-in board profile")
		boardFile    = flag.String("board-file", "", "board descriptor JSON (overrides -board)")
		busName      = flag.String("bus", "", "I2C bus name or number")
		busDriver    = flag.String("bus-driver", hardware.BusDriverPeriph, "I2C driver: periph or rdwr")
		expanderAddr = flag.String("expander", "", "expander address, e.g. 0x21 (default from board)")
		rateLimit    = flag.Float64("rate-limit", 0, "max expander transactions per second (0 = unlimited)")
		bootLine     = flag.Int("boot-line", -1, "host GPIO offset of the boot key (default from board)")
		gpioChip     = flag.String("gpio-chip", "", "host GPIO chip (default from board)")
		audioSink    = flag.String("audio", "log", "volume sink: log, preamp or mpris")
		preampZone   = flag.Int("preamp-zone", 1, "preamp zone driven by the volume keys (1-6)")
		preampAssign = flag.Bool("preamp-assign", false, "assign the preamp address over UART before use")
		mprisPlayer  = flag.String("mpris-player", "", "MPRIS player name, e.g. vlc")
		displayPNG   = flag.String("display-png", "", "write every display frame to this PNG file")
		mqttBroker   = flag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled if empty)")
		mqttPrefix   = flag.String("mqtt-prefix", mqtt.DefaultPrefix, "MQTT topic prefix")
		addr         = flag.String("addr", ":8080", "HTTP listen address")
		cfgDir       = flag.String("config-dir", "", "config directory (default: ~/.config/amplipi-panel)")
		debug        = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "amplipi-panel")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	board, err := loadBoard(*boardName, *boardFile, *expanderAddr, *bootLine, *gpioChip)
	if err != nil {
		slog.Error("invalid board", "err", err)
		os.Exit(1)
	}
	slog.Info("board",
		"name", board.Name,
		"expander", board.ExpanderAddr,
		"drive", board.Drive,
		"interval", board.Interval(),
		"volume_up", board.VolumeUpPin,
		"volume_down", board.VolumeDnPin,
		"boot_line", board.BootLine)

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// I2C bus and host lines
	var (
		bus       i2c.BusCloser
		bootLines input.LineReader
		closers   []io.Closer
	)
	if *mock {
		slog.Info("using simulated expander")
		bus = hardware.NewMock(board.ExpanderAddr)
		if board.BootLine >= 0 {
			bootLines = hardware.NewMockLines()
		}
	} else {
		bus, err = hardware.OpenBus(*busDriver, *busName)
		if err != nil {
			slog.Error("i2c bus unavailable", "err", err)
			os.Exit(1)
		}
		if board.BootLine >= 0 {
			lines, err := hardware.OpenHostLines(board.GPIOChip, board.BootLine)
			if err != nil {
				slog.Warn("boot key unavailable", "chip", board.GPIOChip, "line", board.BootLine, "err", err)
			} else {
				bootLines = lines
				closers = append(closers, lines)
			}
		}
	}

	sink, err := openSink(*audioSink, bus, *preampZone, *preampAssign, *mprisPlayer)
	if err != nil {
		slog.Error("volume sink unavailable", "sink", *audioSink, "err", err)
		os.Exit(1)
	}
	if c, ok := sink.(io.Closer); ok {
		closers = append(closers, c)
	}

	store := config.NewJSONStore(*cfgDir)
	eventBus := events.NewBus()
	frame := display.NewFrameNotifier(*displayPNG)
	closers = append(closers, frame)
	id := identity.Get(*cfgDir)

	p, err := panel.New(ctx, panel.Options{
		Board:     board,
		Bus:       bus,
		Sink:      sink,
		Store:     store,
		Events:    eventBus,
		Notifier:  display.Multi{display.LogNotifier{}, frame},
		Frame:     frame,
		BootLines: bootLines,
		RateLimit: *rateLimit,
		Version:   id.Version,
		Hostname:  id.Hostname,
	})
	if err != nil {
		slog.Error("panel initialization failed", "err", err)
		os.Exit(1)
	}
	if err := p.Start(); err != nil {
		slog.Error("panel start failed", "err", err)
		os.Exit(1)
	}

	// Auth service
	authSvc, err := auth.NewService(*cfgDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	// MQTT event forwarding
	if *mqttBroker != "" {
		pub, err := mqtt.NewRealPublisher(*mqttBroker, "amplipi-panel-"+id.Hostname)
		if err != nil {
			slog.Warn("mqtt unavailable, events not published", "broker", *mqttBroker, "err", err)
		} else {
			closers = append(closers, pub)
			go mqtt.Run(ctx, pub, eventBus, *mqttPrefix)
		}
	}

	// Zeroconf mDNS registration
	zc := zeroconf.New(id.Hostname, listenPort(*addr), map[string]string{
		"board":   board.Name,
		"version": id.Version,
	})
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// HTTP server
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(p, authSvc, eventBus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("panel listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	p.MarkReady()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	// Samplers stop before the bus and lines they read go away.
	if err := p.Close(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
	if err := bus.Close(); err != nil {
		slog.Warn("i2c bus close failed", "err", err)
	}

	slog.Info("shutdown complete")
}

// loadBoard resolves the board profile and applies command line overrides.
func loadBoard(name, file, expander string, bootLine int, chip string) (hardware.Board, error) {
	var (
		b   hardware.Board
		err error
	)
	if file != "" {
		b, err = hardware.LoadBoardFile(file)
	} else {
		b, err = hardware.LookupBoard(name)
	}
	if err != nil {
		return b, err
	}
	if expander != "" {
		a, err := strconv.ParseUint(expander, 0, 16)
		if err != nil {
			return b, err
		}
		b.ExpanderAddr = uint16(a)
	}
	if bootLine >= 0 {
		b.BootLine = bootLine
	}
	if chip != "" {
		b.GPIOChip = chip
	}
	return b, b.Validate()
}

func openSink(kind string, bus i2c.Bus, zone int, assign bool, player string) (volume.Sink, error) {
	switch kind {
	case "log", "":
		return audio.NewLogSink(), nil
	case "preamp":
		if assign {
			if err := audio.AssignPreampAddress(audio.DefaultPreampUART); err != nil {
				return nil, err
			}
		}
		return audio.NewPreampSink(bus, audio.DefaultPreampAddr, zone)
	case "mpris":
		return audio.NewMPRISSink(player)
	default:
		return nil, fmt.Errorf("unknown audio sink %q", kind)
	}
}

// listenPort extracts the port from a listen address, defaulting to 80.
func listenPort(addr string) int {
	port := 80
	if parts := strings.SplitN(addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	return port
}
