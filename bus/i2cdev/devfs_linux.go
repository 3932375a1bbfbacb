//go:build linux

package i2cdev

import (
	"errors"
	"fmt"

	"golang.org/x/exp/io/i2c"
	"golang.org/x/sys/unix"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Open returns a Conn for the adapter at path, e.g. /dev/i2c-1.
// The node is checked for access but no target is opened until first use.
func Open(path string) (*Conn, error) {
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return nil, Error.Wrap(fmt.Errorf("access %s: %w", path, classify(err)))
	}
	open := func(addr bus.Address) (device, error) {
		d, err := i2c.Open(&i2c.Devfs{Dev: path}, int(addr))
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return newConn(path, open, classify), nil
}

// classify maps kernel errno values onto pkg sentinels.
func classify(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	switch errno {
	case unix.ENXIO, unix.EREMOTEIO:
		return fmt.Errorf("%w: %v", pkg.ErrNoDevice, err)
	case unix.ETIMEDOUT:
		return fmt.Errorf("%w: %v", pkg.ErrTimeout, err)
	case unix.EIO, unix.EAGAIN:
		return fmt.Errorf("%w: %v", pkg.ErrBusError, err)
	case unix.ENOENT, unix.ENODEV:
		return fmt.Errorf("%w: %v", pkg.ErrNotSupported, err)
	}
	return err
}
