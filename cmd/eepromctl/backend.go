package main

import (
	"fmt"
	"strconv"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/bus/buspirate"
	"github.com/ardnew/i2ceeprom/bus/i2cdev"
	"github.com/ardnew/i2ceeprom/bus/mcp2221a"
	"github.com/ardnew/i2ceeprom/bus/sim"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Default device paths.
const (
	defaultI2CDev = "/dev/i2c-1"
	defaultSerial = "/dev/ttyUSB0"
	defaultBridge = "0"
)

// backend is an opened bus backend. The conn is closed by the Transport
// built over it; done runs after that.
type backend struct {
	conn     bus.Conn
	capacity int // known device size, or 0
	done     func() error
}

func nop() error { return nil }

func openBackend(opts options) (*backend, error) {
	switch opts.bus {
	case "sim":
		return openSim(opts)
	case "i2cdev":
		conn, err := i2cdev.Open(orDefault(opts.dev, defaultI2CDev))
		if err != nil {
			return nil, err
		}
		return &backend{conn: conn, done: nop}, nil
	case "mcp2221a":
		index, err := strconv.Atoi(orDefault(opts.dev, defaultBridge))
		if err != nil {
			return nil, fmt.Errorf("%w: bridge index %q", errUsage, opts.dev)
		}
		conn, err := mcp2221a.Open(index, uint32(opts.speed))
		if err != nil {
			return nil, err
		}
		return &backend{conn: conn, done: nop}, nil
	case "buspirate":
		conn, err := buspirate.Open(orDefault(opts.dev, defaultSerial), buspirate.ParseSpeed(uint32(opts.speed)))
		if err != nil {
			return nil, err
		}
		return &backend{conn: conn, done: nop}, nil
	}
	return nil, fmt.Errorf("%w: unknown bus %q", errUsage, opts.bus)
}

// openSim creates a simulated device, loading and saving the image file
// around the command when one is given.
func openSim(opts options) (*backend, error) {
	capacity := opts.size
	if capacity == 0 {
		capacity = sim.DefaultCapacity
	}
	if capacity&(capacity-1) != 0 || capacity > 1<<16 {
		return nil, fmt.Errorf("%w: sim capacity %d is not a power of two up to 65536", errUsage, capacity)
	}
	if opts.page > capacity {
		return nil, fmt.Errorf("%w: page size %d exceeds capacity %d", errUsage, opts.page, capacity)
	}
	dev := sim.NewDevice(sim.Config{
		Address:  bus.Address(opts.addr),
		Capacity: capacity,
		PageSize: opts.page,
	})

	be := &backend{conn: dev, capacity: capacity, done: nop}
	if opts.image == "" {
		return be, nil
	}
	if err := dev.LoadFile(opts.image); err != nil {
		return nil, err
	}
	be.done = func() error {
		pkg.LogDebug(component, "saving image", "path", opts.image)
		return dev.SaveFile(opts.image)
	}
	return be, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
