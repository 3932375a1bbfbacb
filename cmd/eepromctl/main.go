// Command eepromctl reads and writes a two-byte-addressed I²C EEPROM.
//
// Usage:
//
//	eepromctl [options] <command> [args]
//
// Commands:
//
//	read <addr>              Print the byte at addr
//	write <addr> <byte>      Store one byte
//	readblock <addr> <n>     Print n bytes (n <= -max)
//	update <addr> <hex>      Write hex-encoded bytes unless already stored
//	dump [start] [n]         Hex dump a range (default: whole device)
//	load <addr> <file>       Store a file's contents, skipping unchanged chunks
//	scan                     List responding bus addresses
//
// Options:
//
//	-bus name        Backend: sim, i2cdev, mcp2221a, buspirate (default: sim)
//	-dev path        Adapter node, bridge index or serial port
//	-speed hz        Bus clock for the bridge backends (default: 100000)
//	-image file      Backing file for the sim backend
//	-addr a          Device address (default: 0x50)
//	-delay d         Write-cycle delay (default: 5ms)
//	-page n          Page size, 0 disables page checks (default: 64)
//	-max n           Max bytes per transfer (default: 30)
//	-size n          Device capacity in bytes (default: 32768 for sim, else 65536)
//	-policy p        Short compare read policy: skip or force (default: skip)
//	-wait m          Write completion: delay or poll (default: delay)
//	-legacy          Use the error-swallowing legacy calls
//	-stats           Print driver counters after the command
//	-v               Enable verbose (debug) logging
//	-json            Use JSON log format
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/eeprom"
	"github.com/ardnew/i2ceeprom/pkg"
)

const component = pkg.ComponentCLI

// errUsage marks command-line mistakes, reported with exit status 2.
var errUsage = errors.New("usage")

type options struct {
	bus    string
	dev    string
	speed  uint
	image  string
	addr   uint
	delay  time.Duration
	page   int
	max    int
	size   int
	policy string
	wait   string
	legacy bool
	stats  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("eepromctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.bus, "bus", "sim", "backend: sim, i2cdev, mcp2221a, buspirate")
	fs.StringVar(&opts.dev, "dev", "", "adapter node, bridge index or serial port")
	fs.UintVar(&opts.speed, "speed", 100000, "bus clock in Hz for the bridge backends")
	fs.StringVar(&opts.image, "image", "", "backing file for the sim backend")
	fs.UintVar(&opts.addr, "addr", uint(eeprom.DefaultAddress), "device address")
	fs.DurationVar(&opts.delay, "delay", eeprom.DefaultWriteDelay, "write-cycle delay")
	fs.IntVar(&opts.page, "page", eeprom.DefaultPageSize, "page size, 0 disables page checks")
	fs.IntVar(&opts.max, "max", eeprom.DefaultMaxTransfer, "max bytes per transfer")
	fs.IntVar(&opts.size, "size", 0, "device capacity in bytes")
	fs.StringVar(&opts.policy, "policy", eeprom.ShortReadSkip.String(), "short compare read policy: skip or force")
	fs.StringVar(&opts.wait, "wait", eeprom.WaitDelay.String(), "write completion: delay or poll")
	fs.BoolVar(&opts.legacy, "legacy", false, "use the error-swallowing legacy calls")
	fs.BoolVar(&opts.stats, "stats", false, "print driver counters after the command")
	verbose := fs.Bool("v", false, "enable verbose (debug) logging")
	jsonLog := fs.Bool("json", false, "use JSON log format")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: eepromctl [options] <command> [args]")
		return 2
	}

	// Set up logging
	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	format := pkg.LogFormatText
	if *jsonLog {
		format = pkg.LogFormatJSON
	}
	pkg.SetLogOutput(stderr, format)

	err := execute(opts, fs.Args(), stdout)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		pkg.LogError(component, "command failed", "command", fs.Arg(0), "error", err)
		return 1
	}
}

func execute(opts options, args []string, stdout io.Writer) (err error) {
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	be, err := openBackend(opts)
	if err != nil {
		return err
	}
	t := bus.NewTransport(be.conn, bus.DefaultBufferSize)
	defer func() {
		if cerr := t.Close(); err == nil {
			err = cerr
		}
		if derr := be.done(); err == nil {
			err = derr
		}
	}()
	if be.capacity > 0 && cfg.Capacity == 0 {
		cfg.Capacity = be.capacity
	}

	drv, err := eeprom.New(t, cfg)
	if err != nil {
		return err
	}
	if err := drv.Init(); err != nil {
		return err
	}

	pkg.LogDebug(component, "driver ready",
		"bus", opts.bus,
		"addr", cfg.Address,
		"capacity", drv.Capacity(),
		"page", cfg.PageSize,
		"max", cfg.MaxTransfer)

	c := &cli{drv: drv, bus: t, out: stdout, legacy: opts.legacy}
	if err := c.dispatch(args); err != nil {
		return err
	}
	if opts.stats {
		c.printStats()
	}
	return nil
}

// config builds the driver configuration from the flags.
func (o options) config() (eeprom.Config, error) {
	cfg := eeprom.DefaultConfig()
	if o.addr > uint(bus.MaxAddress) {
		return cfg, fmt.Errorf("%w: address 0x%X exceeds 7 bits", errUsage, o.addr)
	}
	cfg.Address = bus.Address(o.addr)
	cfg.WriteDelay = o.delay
	cfg.PageSize = o.page
	cfg.MaxTransfer = o.max
	cfg.Capacity = o.size

	var err error
	if cfg.ShortRead, err = eeprom.ParseShortReadPolicy(o.policy); err != nil {
		return cfg, fmt.Errorf("%w: %v", errUsage, err)
	}
	if cfg.Wait, err = eeprom.ParseWaitMode(o.wait); err != nil {
		return cfg, fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, nil
}
