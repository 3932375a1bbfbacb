package bus

import (
	"errors"
	"fmt"
	"io"

	"github.com/ardnew/i2ceeprom/pkg"
)

// Address is a 7-bit device address, right aligned and without the R/W bit.
type Address uint8

// Address limits.
const (
	MaxAddress Address = 0x7F // Largest 7-bit address
	MinScan    Address = 0x08 // First unreserved address
	MaxScan    Address = 0x77 // Last unreserved address
)

// Valid reports whether a fits in 7 bits.
func (a Address) Valid() bool {
	return a <= MaxAddress
}

// String returns the address in hexadecimal.
func (a Address) String() string {
	return fmt.Sprintf("0x%02X", uint8(a))
}

// Bus defines the two-wire transaction interface consumed by device drivers.
//
// The interface mirrors a Wire-style controller: a write transaction is
// opened with BeginTransmission, filled with WriteByte and committed with
// EndTransmission. Reads are issued with RequestFrom and drained with
// Available and ReadByte. Only one transaction may be outstanding at a time
// and implementations are not required to be safe for concurrent use.
type Bus interface {
	io.ByteReader
	io.ByteWriter

	// Begin brings up the bus for first use. Calling Begin on a bus that is
	// already up has no effect.
	Begin() error

	// BeginTransmission opens a write transaction addressed to addr.
	// Any transaction already open is discarded.
	BeginTransmission(addr Address) error

	// EndTransmission sends the queued bytes as one bus write followed by a
	// STOP condition. A transaction with no queued bytes only tests whether
	// the device acknowledges its address.
	EndTransmission() error

	// RequestFrom reads up to n bytes from addr into the receive buffer and
	// returns the number of bytes received. Fewer than n bytes with a nil
	// error means the device stopped responding early.
	RequestFrom(addr Address, n int) (int, error)

	// Available returns the number of received bytes not yet consumed by
	// ReadByte.
	Available() int
}

// Conn is a raw transaction interface implemented by bus backends.
//
// Each call is one complete START..STOP transaction. Backends return errors
// that wrap the sentinels in package pkg (pkg.ErrNoDevice when the address
// is not acknowledged, pkg.ErrNACK when a data byte is refused) so callers
// can classify failures with errors.Is.
type Conn interface {
	// Write sends data to addr. An empty data slice is an address ping.
	Write(addr Address, data []byte) error

	// Read fills buf from addr and returns the number of bytes received.
	Read(addr Address, buf []byte) (int, error)

	// Close releases the backend.
	Close() error
}

// Ping reports whether a device acknowledges addr.
func Ping(b Bus, addr Address) (bool, error) {
	if err := b.BeginTransmission(addr); err != nil {
		return false, err
	}
	err := b.EndTransmission()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pkg.ErrNoDevice), errors.Is(err, pkg.ErrNACK):
		return false, nil
	default:
		return false, err
	}
}

// Scan pings every address in [start, stop] and returns those that
// acknowledged. Ping failures other than a NACK abort the scan.
func Scan(b Bus, start, stop Address) ([]Address, error) {
	if start > stop || !stop.Valid() {
		return nil, fmt.Errorf("scan [%v, %v]: %w", start, stop, pkg.ErrInvalidParameter)
	}
	var found []Address
	for addr := start; ; addr++ {
		ok, err := Ping(b, addr)
		if err != nil {
			return found, err
		}
		if ok {
			found = append(found, addr)
		}
		if addr == stop {
			break
		}
	}
	return found, nil
}
