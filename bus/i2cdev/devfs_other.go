//go:build !linux

package i2cdev

import (
	"fmt"

	"github.com/ardnew/i2ceeprom/pkg"
)

// Open is only available on Linux.
func Open(path string) (*Conn, error) {
	return nil, Error.Wrap(fmt.Errorf("open %s: %w", path, pkg.ErrNotSupported))
}
