package mcp2221a

import (
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"github.com/zeebo/errs"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Error is the error class for this package.
var Error = errs.Class("mcp2221a")

// USB identifiers assigned to the MCP2221A.
const (
	VID = 0x04D8
	PID = 0x00DD
)

// ReportSize is the size of every command and response report.
const ReportSize = 64

// MaxTransfer is the largest payload carried by one transfer command.
const MaxTransfer = 60

// ClockHz is the bridge's internal clock, used to derive the I²C divider.
const ClockHz = 12000000

// DefaultSpeed is the I²C clock rate selected by Open when none is given.
const DefaultSpeed = 100000

// Command codes.
const (
	cmdStatus       byte = 0x10 // also set-parameters
	cmdWrite        byte = 0x90
	cmdRead         byte = 0x91
	cmdReadGetData  byte = 0x40
	cancelTransfer  byte = 0x10
	setSpeed        byte = 0x20
	speedRejected   byte = 0x21
	statusBusy      byte = 0x01
	getDataErrCount byte = 0x7F
)

// I²C engine states reported in the status response.
const (
	stateIdle            byte = 0x00
	stateStartTimeout    byte = 0x12
	stateRepStartTimeout byte = 0x17
	stateAddrTimeout     byte = 0x23
	stateAddrNACK        byte = 0x25
	statePartialData     byte = 0x41
	stateWriteTimeout    byte = 0x44
	stateReadTimeout     byte = 0x52
	stateReadPartial     byte = 0x54
	stateReadComplete    byte = 0x55
	stateStopTimeout     byte = 0x62
)

const (
	retries   = 50
	retryWait = 300 * time.Microsecond
)

// stateError maps a terminal engine state to a pkg sentinel, or nil if the
// state is not an error.
func stateError(state byte) error {
	switch state {
	case stateAddrNACK:
		return pkg.ErrNoDevice
	case stateStartTimeout, stateRepStartTimeout, stateAddrTimeout,
		stateWriteTimeout, stateReadTimeout, stateStopTimeout:
		return pkg.ErrTimeout
	}
	return nil
}

// Device is the HID report interface of an opened bridge.
type Device interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// Conn is a bus.Conn over an MCP2221A bridge.
type Conn struct {
	dev   Device
	sleep func(time.Duration)
	mutex sync.Mutex
}

// Devices lists the attached bridges.
func Devices() []hid.DeviceInfo {
	return hid.Enumerate(VID, PID)
}

// Open opens the bridge at index in the order reported by Devices and sets
// the I²C clock to speed Hz. A speed of zero selects DefaultSpeed.
func Open(index int, speed uint32) (*Conn, error) {
	if !hid.Supported() {
		return nil, Error.Wrap(fmt.Errorf("hid: %w", pkg.ErrNotSupported))
	}
	infos := Devices()
	if index < 0 || index >= len(infos) {
		return nil, Error.Wrap(fmt.Errorf("index %d of %d attached: %w", index, len(infos), pkg.ErrNoDevice))
	}
	dev, err := infos[index].Open()
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("open %s: %w", infos[index].Path, err))
	}

	c := New(dev)
	if speed == 0 {
		speed = DefaultSpeed
	}
	if err := c.SetSpeed(speed); err != nil {
		_ = dev.Close()
		return nil, err
	}
	pkg.LogInfo(pkg.ComponentBus, "mcp2221a opened", "path", infos[index].Path, "serial", infos[index].Serial, "speed", speed)
	return c, nil
}

// New returns a Conn over an already opened bridge.
func New(dev Device) *Conn {
	return &Conn{dev: dev, sleep: time.Sleep}
}

// send writes one command report and reads its response.
func (c *Conn) send(cmd byte, msg []byte) ([]byte, error) {
	msg[0] = cmd
	if _, err := c.dev.Write(msg); err != nil {
		return nil, Error.Wrap(fmt.Errorf("send 0x%02X: %w", cmd, err))
	}
	rsp := make([]byte, ReportSize)
	n, err := c.dev.Read(rsp)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("receive 0x%02X: %w", cmd, err))
	}
	if n < ReportSize {
		return nil, Error.Wrap(fmt.Errorf("receive 0x%02X: %d of %d bytes: %w", cmd, n, ReportSize, pkg.ErrShortRead))
	}
	if rsp[0] != cmd {
		return nil, Error.Wrap(fmt.Errorf("receive 0x%02X: response to 0x%02X: %w", cmd, rsp[0], pkg.ErrBusError))
	}
	return rsp, nil
}

// state returns the current I²C engine state.
func (c *Conn) state() (byte, error) {
	rsp, err := c.send(cmdStatus, make([]byte, ReportSize))
	if err != nil {
		return 0, err
	}
	return rsp[8], nil
}

// ready cancels any transfer left behind by a failed call.
func (c *Conn) ready() error {
	s, err := c.state()
	if err != nil {
		return err
	}
	if s == stateIdle {
		return nil
	}
	msg := make([]byte, ReportSize)
	msg[2] = cancelTransfer
	if _, err := c.send(cmdStatus, msg); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentBus, "mcp2221a transfer cancelled", "state", fmt.Sprintf("0x%02X", s))
	c.sleep(retryWait)
	return nil
}

// SetSpeed sets the I²C clock rate in Hz.
func (c *Conn) SetSpeed(hz uint32) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if hz > ClockHz/3 || hz < ClockHz/258 {
		return Error.Wrap(fmt.Errorf("speed %d Hz: %w", hz, pkg.ErrInvalidParameter))
	}
	msg := make([]byte, ReportSize)
	msg[3] = setSpeed
	msg[4] = byte(ClockHz/hz - 3)
	rsp, err := c.send(cmdStatus, msg)
	if err != nil {
		return err
	}
	if rsp[3] == speedRejected {
		return Error.Wrap(fmt.Errorf("speed %d Hz: transfer in progress: %w", hz, pkg.ErrBusError))
	}
	return nil
}

func header(n int, addr byte) []byte {
	msg := make([]byte, ReportSize)
	msg[1] = byte(n)
	msg[2] = byte(n >> 8)
	msg[3] = addr
	return msg
}

// Write implements bus.Conn. An empty data slice sends the address alone.
func (c *Conn) Write(addr bus.Address, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !addr.Valid() {
		return fmt.Errorf("write %v: %w", addr, pkg.ErrInvalidAddress)
	}
	if len(data) > MaxTransfer {
		return Error.Wrap(fmt.Errorf("write %d bytes: %w", len(data), pkg.ErrTransferTooLarge))
	}
	if err := c.ready(); err != nil {
		return err
	}

	msg := header(len(data), byte(addr)<<1)
	copy(msg[4:], data)
	for i := 0; ; i++ {
		rsp, err := c.send(cmdWrite, msg)
		if err != nil {
			return err
		}
		if rsp[1] != statusBusy {
			break
		}
		if i >= retries {
			return Error.Wrap(fmt.Errorf("write %v: engine busy: %w", addr, pkg.ErrTimeout))
		}
		c.sleep(retryWait)
	}

	for i := 0; i < retries; i++ {
		s, err := c.state()
		if err != nil {
			return err
		}
		if s == stateIdle {
			return nil
		}
		if err := stateError(s); err != nil {
			return Error.Wrap(fmt.Errorf("write %v: state 0x%02X: %w", addr, s, err))
		}
		c.sleep(retryWait)
	}
	return Error.Wrap(fmt.Errorf("write %v: %w", addr, pkg.ErrTimeout))
}

// Read implements bus.Conn. If the target stops early the bytes received
// are returned with a nil error.
func (c *Conn) Read(addr bus.Address, buf []byte) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !addr.Valid() {
		return 0, fmt.Errorf("read %v: %w", addr, pkg.ErrInvalidAddress)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) > MaxTransfer {
		return 0, Error.Wrap(fmt.Errorf("read %d bytes: %w", len(buf), pkg.ErrTransferTooLarge))
	}
	if err := c.ready(); err != nil {
		return 0, err
	}

	rsp, err := c.send(cmdRead, header(len(buf), byte(addr)<<1|1))
	if err != nil {
		return 0, err
	}
	if rsp[1] != 0 {
		return 0, Error.Wrap(fmt.Errorf("read %v: rejected: %w", addr, pkg.ErrBusError))
	}

	for i := 0; i < retries; i++ {
		rsp, err := c.send(cmdReadGetData, make([]byte, ReportSize))
		if err != nil {
			return 0, err
		}
		if err := stateError(rsp[2]); err != nil {
			return 0, Error.Wrap(fmt.Errorf("read %v: state 0x%02X: %w", addr, rsp[2], err))
		}
		if rsp[1] != 0 || rsp[3] == getDataErrCount || rsp[2] == statePartialData {
			c.sleep(retryWait)
			continue
		}
		n := min(int(rsp[3]), len(buf))
		copy(buf, rsp[4:4+n])
		return n, nil
	}
	return 0, Error.Wrap(fmt.Errorf("read %v: %w", addr, pkg.ErrTimeout))
}

// Close closes the HID device.
func (c *Conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.dev.Close(); err != nil {
		return Error.Wrap(err)
	}
	return nil
}
