package eeprom

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// sizer is implemented by buses with a fixed transaction buffer.
type sizer interface {
	BufferSize() int
}

// Driver reads and writes a two-byte-addressed serial EEPROM over a Bus.
//
// Every write transaction is followed by the write-cycle wait before the
// call returns, so the next transaction never reaches a busy device.
// Operations on one Driver are serialized; the Bus must not be shared with
// other users while a call is in progress.
type Driver struct {
	bus   bus.Bus
	cfg   Config
	log   *slog.Logger
	sleep func(time.Duration)
	now   func() time.Time

	stats Stats
	mutex sync.Mutex
}

// New creates a driver for the device described by cfg on b.
//
// Returns an error if cfg is invalid, or if b reports a transaction buffer
// that cannot hold MaxTransfer bytes plus the word address.
func New(b bus.Bus, cfg Config) (*Driver, error) {
	if b == nil {
		return nil, fmt.Errorf("nil bus: %w", pkg.ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s, ok := b.(sizer); ok && cfg.MaxTransfer+AddressSize > s.BufferSize() {
		return nil, fmt.Errorf("max transfer %d exceeds bus buffer %d: %w",
			cfg.MaxTransfer, s.BufferSize()-AddressSize, pkg.ErrTransferTooLarge)
	}

	d := &Driver{
		bus:   b,
		cfg:   cfg,
		log:   pkg.WithComponent(cfg.Logger, pkg.ComponentDriver),
		sleep: cfg.Sleep,
		now:   cfg.Now,
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Config returns the driver configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Capacity returns the device size in bytes.
func (d *Driver) Capacity() int {
	return d.cfg.capacity()
}

// Init brings up the bus. It is idempotent and is also performed by every
// block operation.
func (d *Driver) Init() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.begin()
}

func (d *Driver) begin() error {
	if err := d.bus.Begin(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

// WriteByteAt stores v at addr and waits for the write cycle.
// The byte is not read back.
func (d *Driver) WriteByteAt(addr uint16, v byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stats.ByteWrites++
	if err := d.checkRange(addr, 1); err != nil {
		return err
	}
	if err := d.program(addr, []byte{v}); err != nil {
		return err
	}
	d.log.Debug("byte written", "addr", addr, "value", v)
	return nil
}

// ReadByteAt returns the byte stored at addr.
//
// On failure the returned byte is SentinelByte and the error wraps the bus
// failure, or pkg.ErrNoData if the device sent nothing.
func (d *Driver) ReadByteAt(addr uint16) (byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stats.ByteReads++
	if err := d.checkRange(addr, 1); err != nil {
		return SentinelByte, err
	}
	if err := d.seek(addr); err != nil {
		return SentinelByte, err
	}
	if _, err := d.bus.RequestFrom(d.cfg.Address, 1); err != nil {
		d.stats.ShortReads++
		return SentinelByte, fmt.Errorf("read 0x%04X: %w", addr, err)
	}
	if d.bus.Available() == 0 {
		d.stats.ShortReads++
		return SentinelByte, fmt.Errorf("read 0x%04X: %w", addr, pkg.ErrNoData)
	}
	b, err := d.bus.ReadByte()
	if err != nil {
		return SentinelByte, fmt.Errorf("read 0x%04X: %w", addr, err)
	}
	return b, nil
}

// ReadBlock fills dst with the bytes stored from addr and returns the
// number of bytes placed.
//
// If the device sends fewer than len(dst) bytes, dst[n:] is left unmodified
// and the error wraps pkg.ErrShortRead (or the bus failure that cut the
// read short). Requests longer than MaxTransfer are rejected with
// pkg.ErrTransferTooLarge before any bus traffic.
func (d *Driver) ReadBlock(dst []byte, addr uint16) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stats.BlockReads++
	if len(dst) == 0 {
		return 0, nil
	}
	if err := d.checkRange(addr, len(dst)); err != nil {
		return 0, err
	}
	if err := d.begin(); err != nil {
		return 0, err
	}
	if err := d.seek(addr); err != nil {
		return 0, err
	}

	_, rerr := d.bus.RequestFrom(d.cfg.Address, len(dst))
	n := d.drain(len(dst), func(i int, b byte) { dst[i] = b })
	if n < len(dst) {
		d.stats.ShortReads++
		d.log.Warn("short block read", "addr", addr, "want", len(dst), "got", n)
		if rerr == nil {
			rerr = pkg.ErrShortRead
		}
		return n, fmt.Errorf("read %d bytes at 0x%04X: got %d: %w", len(dst), addr, n, rerr)
	}
	return n, nil
}

// UpdateBlock writes src at addr unless the device already holds exactly
// src, and reports whether a write was issued.
//
// The current contents are read first and compared byte for byte; a match
// issues no write transaction. Otherwise the whole block is written in one
// transaction followed by the write-cycle wait.
//
// The block must fit in one device page: devices wrap writes within the
// page, so a block crossing a boundary is rejected with
// pkg.ErrPageBoundary. If the comparison read returns fewer bytes than
// requested and those bytes match, the ShortRead policy decides between
// skipping (error wraps pkg.ErrShortRead) and writing anyway.
func (d *Driver) UpdateBlock(src []byte, addr uint16) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stats.BlockUpdates++
	if len(src) == 0 {
		return false, nil
	}
	if err := d.checkRange(addr, len(src)); err != nil {
		return false, err
	}
	if err := d.checkPage(addr, len(src)); err != nil {
		return false, err
	}
	if err := d.begin(); err != nil {
		return false, err
	}
	if err := d.seek(addr); err != nil {
		return false, err
	}

	var dirty byte
	_, rerr := d.bus.RequestFrom(d.cfg.Address, len(src))
	n := d.drain(len(src), func(i int, b byte) { dirty |= b ^ src[i] })

	if n < len(src) {
		d.stats.ShortReads++
		if rerr == nil {
			rerr = pkg.ErrShortRead
		}
		d.log.Warn("short compare read", "addr", addr, "want", len(src), "got", n,
			"policy", d.cfg.ShortRead, "error", rerr)
		if dirty == 0 && d.cfg.ShortRead == ShortReadSkip {
			return false, fmt.Errorf("compare %d bytes at 0x%04X: got %d: %w", len(src), addr, n, rerr)
		}
		dirty = 1
	}

	if dirty == 0 {
		d.stats.WritesSuppressed++
		d.log.Debug("block unchanged", "addr", addr, "n", len(src))
		return false, nil
	}

	if err := d.program(addr, src); err != nil {
		return false, err
	}
	d.log.Debug("block written", "addr", addr, "n", len(src))
	return true, nil
}

// drain consumes up to n received bytes, passing each to fn with its
// offset, and returns the count consumed.
func (d *Driver) drain(n int, fn func(int, byte)) int {
	c := 0
	for c < n && d.bus.Available() > 0 {
		b, err := d.bus.ReadByte()
		if err != nil {
			break
		}
		fn(c, b)
		c++
	}
	return c
}
