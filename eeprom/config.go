package eeprom

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Driver defaults.
const (
	DefaultAddress      bus.Address = 0x50
	DefaultWriteDelay               = 5 * time.Millisecond
	DefaultPageSize                 = 64
	DefaultMaxTransfer              = bus.DefaultBufferSize - AddressSize
	DefaultPollInterval             = 200 * time.Microsecond
	DefaultPollTimeout              = 20 * time.Millisecond
)

// AddressSize is the number of word-address bytes sent before data.
const AddressSize = 2

// MaxCapacity is the size of the 16-bit address space.
const MaxCapacity = 1 << 16

// SentinelByte is returned by the legacy read path when no byte arrived.
// It is indistinguishable from a stored 0xFF.
const SentinelByte byte = 0xFF

// ShortReadPolicy selects what UpdateBlock does when the comparison read
// returns fewer bytes than requested and the bytes that did arrive match.
type ShortReadPolicy uint8

// Short read policies.
const (
	ShortReadSkip       ShortReadPolicy = iota // Skip the write and report ErrShortRead
	ShortReadForceWrite                        // Write the whole block anyway
)

// String returns the policy name.
func (p ShortReadPolicy) String() string {
	switch p {
	case ShortReadSkip:
		return "skip"
	case ShortReadForceWrite:
		return "force"
	default:
		return "unknown"
	}
}

// ParseShortReadPolicy parses a policy name as returned by String.
func ParseShortReadPolicy(s string) (ShortReadPolicy, error) {
	switch s {
	case "skip":
		return ShortReadSkip, nil
	case "force":
		return ShortReadForceWrite, nil
	default:
		return 0, fmt.Errorf("short read policy %q: %w", s, pkg.ErrInvalidParameter)
	}
}

// WaitMode selects how the driver waits for a write cycle to complete.
type WaitMode uint8

// Write completion wait modes.
const (
	WaitDelay WaitMode = iota // Sleep for WriteDelay
	WaitPoll                  // Poll for an address ACK (acknowledge polling)
)

// String returns the wait mode name.
func (m WaitMode) String() string {
	switch m {
	case WaitDelay:
		return "delay"
	case WaitPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// ParseWaitMode parses a wait mode name as returned by String.
func ParseWaitMode(s string) (WaitMode, error) {
	switch s {
	case "delay":
		return WaitDelay, nil
	case "poll":
		return WaitPoll, nil
	default:
		return 0, fmt.Errorf("wait mode %q: %w", s, pkg.ErrInvalidParameter)
	}
}

// Config holds the driver configuration. Start from DefaultConfig and
// override fields as needed.
type Config struct {
	// Address is the 7-bit device address.
	Address bus.Address

	// WriteDelay is the device write-cycle time. In WaitDelay mode the
	// driver sleeps this long after every write.
	WriteDelay time.Duration

	// PageSize is the device write page size, a power of two. Zero
	// disables the page boundary check on UpdateBlock.
	PageSize int

	// MaxTransfer is the largest payload accepted by one block call.
	MaxTransfer int

	// Capacity is the device size in bytes, a power of two. Zero means the
	// full 16-bit address space.
	Capacity int

	// ShortRead selects the UpdateBlock policy for under-responding reads.
	ShortRead ShortReadPolicy

	// Wait selects the write completion strategy.
	Wait WaitMode

	// PollInterval and PollTimeout control acknowledge polling.
	PollInterval time.Duration
	PollTimeout  time.Duration

	// Logger receives driver logs. Nil uses the package default logger.
	Logger *slog.Logger

	// Sleep and Now replace time.Sleep and time.Now.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// DefaultConfig returns the default configuration: address 0x50, 5 ms
// write delay, 64-byte pages, 30-byte transfers and the full 16-bit space.
func DefaultConfig() Config {
	return Config{
		Address:      DefaultAddress,
		WriteDelay:   DefaultWriteDelay,
		PageSize:     DefaultPageSize,
		MaxTransfer:  DefaultMaxTransfer,
		ShortRead:    ShortReadSkip,
		Wait:         WaitDelay,
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
	}
}

// maxTransferLimit bounds MaxTransfer so a frame with its word address
// fits an 8-bit length.
const maxTransferLimit = 255 - AddressSize

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch {
	case !c.Address.Valid():
		return fmt.Errorf("address %v: %w", c.Address, pkg.ErrInvalidAddress)
	case c.WriteDelay < 0:
		return fmt.Errorf("write delay %v: %w", c.WriteDelay, pkg.ErrInvalidParameter)
	case c.PageSize < 0, c.PageSize > 0 && !isPow2(c.PageSize):
		return fmt.Errorf("page size %d: %w", c.PageSize, pkg.ErrInvalidParameter)
	case c.MaxTransfer < 1, c.MaxTransfer > maxTransferLimit:
		return fmt.Errorf("max transfer %d: %w", c.MaxTransfer, pkg.ErrInvalidParameter)
	case c.Capacity < 0, c.Capacity > MaxCapacity, c.Capacity > 0 && !isPow2(c.Capacity):
		return fmt.Errorf("capacity %d: %w", c.Capacity, pkg.ErrInvalidParameter)
	case c.PageSize > c.capacity():
		return fmt.Errorf("page size %d exceeds capacity: %w", c.PageSize, pkg.ErrInvalidParameter)
	case c.ShortRead > ShortReadForceWrite:
		return fmt.Errorf("short read policy %d: %w", c.ShortRead, pkg.ErrInvalidParameter)
	case c.Wait > WaitPoll:
		return fmt.Errorf("wait mode %d: %w", c.Wait, pkg.ErrInvalidParameter)
	case c.Wait == WaitPoll && (c.PollInterval <= 0 || c.PollTimeout <= 0):
		return fmt.Errorf("poll interval %v timeout %v: %w", c.PollInterval, c.PollTimeout, pkg.ErrInvalidParameter)
	}
	return nil
}

// capacity returns the effective device size.
func (c Config) capacity() int {
	if c.Capacity == 0 {
		return MaxCapacity
	}
	return c.Capacity
}
