package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Device defaults, matching a 24C256 (32 KiB, 64-byte pages, 5 ms write cycle).
const (
	DefaultAddress    bus.Address = 0x50
	DefaultCapacity               = 32 * 1024
	DefaultPageSize               = 64
	DefaultWriteCycle             = 5 * time.Millisecond

	// ErasedByte is the content of a fresh device.
	ErasedByte byte = 0xFF
)

// Config describes a simulated EEPROM.
type Config struct {
	Address    bus.Address      // Device address (default 0x50)
	Capacity   int              // Size in bytes, a power of two up to 64 KiB
	PageSize   int              // Write page size in bytes, a power of two
	WriteCycle time.Duration    // Busy time after each committed write; negative disables
	Now        func() time.Time // Clock used for the write cycle (default time.Now)
}

func (c *Config) setDefaults() {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.WriteCycle == 0 {
		c.WriteCycle = DefaultWriteCycle
	}
	if c.WriteCycle < 0 {
		c.WriteCycle = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Device implements bus.Conn as a two-byte-addressed serial EEPROM.
//
// The model reproduces the behavior drivers must cope with:
//
//   - A write of two bytes sets the internal address pointer; further bytes
//     are stored at the pointer, wrapping within the current page.
//   - Reads start at the pointer and advance sequentially, wrapping at the
//     end of the memory array.
//   - After a committed write the device does not acknowledge its address
//     until the write cycle has elapsed.
//   - An absent device never acknowledges, and a read limit truncates every
//     read to simulate a device that stops responding early.
type Device struct {
	cfg       Config
	mem       []byte
	ptr       int
	present   bool
	readLimit int
	busyUntil time.Time
	cycles    int
	mutex     sync.Mutex
}

// NewDevice creates a simulated EEPROM filled with ErasedByte.
// It panics if Capacity or PageSize is not a power of two, or if Capacity
// exceeds the 16-bit address space.
func NewDevice(cfg Config) *Device {
	cfg.setDefaults()
	if !isPow2(cfg.Capacity) || cfg.Capacity > 1<<16 {
		panic(fmt.Sprintf("sim: invalid capacity %d", cfg.Capacity))
	}
	if !isPow2(cfg.PageSize) || cfg.PageSize > cfg.Capacity {
		panic(fmt.Sprintf("sim: invalid page size %d", cfg.PageSize))
	}
	d := &Device{
		cfg:       cfg,
		mem:       make([]byte, cfg.Capacity),
		present:   true,
		readLimit: -1,
	}
	for i := range d.mem {
		d.mem[i] = ErasedByte
	}
	return d
}

// Config returns the effective device configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// acks reports whether the device would acknowledge addr now.
// Caller must hold the mutex.
func (d *Device) acks(addr bus.Address) bool {
	if addr != d.cfg.Address || !d.present {
		return false
	}
	return !d.cfg.Now().Before(d.busyUntil)
}

// Write implements bus.Conn.
func (d *Device) Write(addr bus.Address, data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.acks(addr) {
		return pkg.ErrNoDevice
	}

	mask := d.cfg.Capacity - 1
	switch len(data) {
	case 0:
		// address ping
		return nil
	case 1:
		// incomplete word address, only the high byte latched
		d.ptr = (int(data[0]) << 8) & mask
		return nil
	}

	d.ptr = (int(data[0])<<8 | int(data[1])) & mask
	payload := data[2:]
	if len(payload) == 0 {
		return nil
	}

	page := d.cfg.PageSize
	base := d.ptr &^ (page - 1)
	off := d.ptr & (page - 1)
	for i, b := range payload {
		d.mem[base+(off+i)%page] = b
	}
	d.ptr = base + (off+len(payload))%page
	d.cycles++
	d.busyUntil = d.cfg.Now().Add(d.cfg.WriteCycle)

	pkg.LogDebug(pkg.ComponentSim, "write committed",
		"addr", fmt.Sprintf("0x%04X", base+off), "len", len(payload), "cycle", d.cycles)
	return nil
}

// Read implements bus.Conn.
func (d *Device) Read(addr bus.Address, buf []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.acks(addr) {
		return 0, pkg.ErrNoDevice
	}

	n := len(buf)
	if d.readLimit >= 0 && n > d.readLimit {
		n = d.readLimit
	}
	for i := 0; i < n; i++ {
		buf[i] = d.mem[d.ptr]
		d.ptr = (d.ptr + 1) % d.cfg.Capacity
	}
	return n, nil
}

// Close implements bus.Conn. The device keeps its contents.
func (d *Device) Close() error {
	return nil
}

// SetPresent attaches or detaches the device from the bus.
func (d *Device) SetPresent(present bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.present = present
}

// SetReadLimit caps the bytes returned by each read. A negative limit
// removes the cap.
func (d *Device) SetReadLimit(n int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.readLimit = n
}

// Busy reports whether a write cycle is in progress.
func (d *Device) Busy() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.cfg.Now().Before(d.busyUntil)
}

// Pointer returns the internal address pointer.
func (d *Device) Pointer() uint16 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return uint16(d.ptr)
}

// WriteCycles returns the number of committed write cycles.
func (d *Device) WriteCycles() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.cycles
}

// Bytes returns a copy of the memory array.
func (d *Device) Bytes() []byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]byte(nil), d.mem...)
}

// Poke stores data at offset without a bus transaction or write cycle.
// Data past the end of the array wraps to offset zero.
func (d *Device) Poke(offset int, data []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for i, b := range data {
		d.mem[(offset+i)%d.cfg.Capacity] = b
	}
}
