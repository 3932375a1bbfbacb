package i2cdev

import (
	"fmt"
	"sync"

	"github.com/zeebo/errs"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Error is the error class for this package.
var Error = errs.Class("i2cdev")

// device is one opened target on the adapter.
type device interface {
	Read(buf []byte) error
	Write(buf []byte) error
	Close() error
}

// opener opens a handle to the target at addr.
type opener func(addr bus.Address) (device, error)

// Conn is a bus.Conn over one i2c-dev adapter.
type Conn struct {
	path     string
	open     opener
	classify func(error) error

	devices map[bus.Address]device
	closed  bool
	mutex   sync.Mutex
}

func newConn(path string, open opener, classify func(error) error) *Conn {
	if classify == nil {
		classify = func(err error) error { return err }
	}
	return &Conn{
		path:     path,
		open:     open,
		classify: classify,
		devices:  make(map[bus.Address]device),
	}
}

// Path returns the adapter device node.
func (c *Conn) Path() string {
	return c.path
}

func (c *Conn) device(addr bus.Address) (device, error) {
	if c.closed {
		return nil, pkg.ErrClosed
	}
	if !addr.Valid() {
		return nil, fmt.Errorf("%v: %w", addr, pkg.ErrInvalidAddress)
	}
	if d, ok := c.devices[addr]; ok {
		return d, nil
	}
	d, err := c.open(addr)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("open %s at %v: %w", c.path, addr, c.classify(err)))
	}
	c.devices[addr] = d
	pkg.LogDebug(pkg.ComponentBus, "i2c-dev target opened", "path", c.path, "addr", addr)
	return d, nil
}

// Write sends data to addr. The kernel interface cannot issue a
// zero-length write, so an empty data slice pings with a one-byte read
// instead.
func (c *Conn) Write(addr bus.Address, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	d, err := c.device(addr)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		var b [1]byte
		err = d.Read(b[:])
	} else {
		err = d.Write(data)
	}
	if err != nil {
		return Error.Wrap(fmt.Errorf("write %d bytes to %v: %w", len(data), addr, c.classify(err)))
	}
	return nil
}

// Read fills buf from addr. The kernel reports a failed transfer as a
// whole, so a successful Read always returns len(buf).
func (c *Conn) Read(addr bus.Address, buf []byte) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(buf) == 0 {
		return 0, nil
	}
	d, err := c.device(addr)
	if err != nil {
		return 0, err
	}
	if err := d.Read(buf); err != nil {
		return 0, Error.Wrap(fmt.Errorf("read %d bytes from %v: %w", len(buf), addr, c.classify(err)))
	}
	return len(buf), nil
}

// Close releases every open target handle.
func (c *Conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var group errs.Group
	for addr, d := range c.devices {
		group.Add(d.Close())
		delete(c.devices, addr)
	}
	return group.Err()
}
