package buspirate

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
	"github.com/zeebo/errs"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// Error is the error class for this package.
var Error = errs.Class("buspirate")

// Serial settings used by Open.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Speed selects the I²C clock rate.
type Speed byte

// Supported clock rates.
const (
	Speed5kHz   Speed = 0x00
	Speed50kHz  Speed = 0x01
	Speed100kHz Speed = 0x02
	Speed400kHz Speed = 0x03
)

// ParseSpeed converts a rate in Hz to the nearest supported Speed at or
// below it.
func ParseSpeed(hz uint32) Speed {
	switch {
	case hz >= 400000:
		return Speed400kHz
	case hz >= 100000:
		return Speed100kHz
	case hz >= 50000:
		return Speed50kHz
	}
	return Speed5kHz
}

// Binary mode commands.
const (
	cmdReset     byte = 0x00 // back to bitbang mode
	cmdI2CMode   byte = 0x02 // from bitbang mode
	cmdExit      byte = 0x0F // bitbang mode to user terminal
	cmdStart     byte = 0x02
	cmdStop      byte = 0x03
	cmdReadByte  byte = 0x04
	cmdACK       byte = 0x06
	cmdNACK      byte = 0x07
	cmdBulkWrite byte = 0x10 // | (n-1)
	cmdPeriph    byte = 0x40 // | power<<3 | pullups<<2
	cmdSpeed     byte = 0x60 // | Speed

	periphPower   byte = 0x08
	periphPullups byte = 0x04

	respOK   byte = 0x01
	respACK  byte = 0x00
	respNACK byte = 0x01

	bulkMax    = 16
	resetTries = 20
	idleReads  = 10
)

var (
	bitbangID = []byte("BBIO1")
	i2cID     = []byte("I2C1")
)

// Conn is a bus.Conn over a Bus Pirate in binary I²C mode.
type Conn struct {
	port  io.ReadWriteCloser
	mutex sync.Mutex
}

// Open opens the serial port at name and configures the adapter.
func Open(name string, speed Speed) (*Conn, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	})
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("open %s: %w", name, err))
	}
	_ = port.Flush()

	c, err := New(port, speed)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	pkg.LogInfo(pkg.ComponentBus, "bus pirate opened", "port", name, "speed", speed)
	return c, nil
}

// New configures the adapter on an already opened port.
func New(port io.ReadWriteCloser, speed Speed) (*Conn, error) {
	c := &Conn{port: port}
	if err := c.enterBitbang(); err != nil {
		return nil, err
	}
	if err := c.expect([]byte{cmdI2CMode}, i2cID); err != nil {
		return nil, Error.Wrap(fmt.Errorf("enter i2c mode: %w", err))
	}
	if err := c.command(cmdPeriph | periphPower | periphPullups); err != nil {
		return nil, Error.Wrap(fmt.Errorf("configure peripherals: %w", err))
	}
	if err := c.command(cmdSpeed | byte(speed&0x03)); err != nil {
		return nil, Error.Wrap(fmt.Errorf("set speed: %w", err))
	}
	return c, nil
}

// enterBitbang sends resets until the adapter answers with its bitbang
// mode identifier.
func (c *Conn) enterBitbang() error {
	buf := make([]byte, len(bitbangID))
	for i := 0; i < resetTries; i++ {
		if _, err := c.port.Write([]byte{cmdReset}); err != nil {
			return Error.Wrap(fmt.Errorf("reset: %w", err))
		}
		n, err := c.readFull(buf)
		if err != nil && n == 0 {
			continue
		}
		if bytes.Equal(buf[:n], bitbangID) {
			return nil
		}
	}
	return Error.Wrap(fmt.Errorf("no bitbang response: %w", pkg.ErrNoDevice))
}

// readFull reads len(p) bytes, giving up after repeated empty reads from a
// port with a read timeout.
func (c *Conn) readFull(p []byte) (int, error) {
	n, idle := 0, 0
	for n < len(p) {
		m, err := c.port.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			if idle++; idle >= idleReads {
				return n, pkg.ErrTimeout
			}
		}
	}
	return n, nil
}

// expect writes out and requires the adapter to answer with want.
func (c *Conn) expect(out, want []byte) error {
	if _, err := c.port.Write(out); err != nil {
		return err
	}
	got := make([]byte, len(want))
	n, err := c.readFull(got)
	if err != nil {
		return err
	}
	if !bytes.Equal(got[:n], want) {
		return fmt.Errorf("response % X, want % X: %w", got[:n], want, pkg.ErrBusError)
	}
	return nil
}

func (c *Conn) command(cmd byte) error {
	return c.expect([]byte{cmd}, []byte{respOK})
}

// bulk writes up to bulkMax bytes and returns the index of the first byte
// the target refused, or -1 if all were acknowledged.
func (c *Conn) bulk(data []byte) (int, error) {
	if _, err := c.port.Write(append([]byte{cmdBulkWrite | byte(len(data)-1)}, data...)); err != nil {
		return 0, err
	}
	rsp := make([]byte, 1+len(data))
	if _, err := c.readFull(rsp); err != nil {
		return 0, err
	}
	if rsp[0] != respOK {
		return 0, fmt.Errorf("bulk write response 0x%02X: %w", rsp[0], pkg.ErrBusError)
	}
	for i, ack := range rsp[1:] {
		if ack != respACK {
			return i, nil
		}
	}
	return -1, nil
}

// transmit sends the address byte and data between START and STOP.
func (c *Conn) transmit(addr byte, data []byte) error {
	if err := c.command(cmdStart); err != nil {
		return err
	}
	out := append([]byte{addr}, data...)
	var nack error
	for off := 0; off < len(out) && nack == nil; off += bulkMax {
		end := min(off+bulkMax, len(out))
		i, err := c.bulk(out[off:end])
		if err != nil {
			return err
		}
		switch {
		case i < 0:
		case off+i == 0:
			nack = pkg.ErrNoDevice
		default:
			nack = fmt.Errorf("byte %d: %w", off+i-1, pkg.ErrNACK)
		}
	}
	if err := c.command(cmdStop); err != nil {
		return err
	}
	return nack
}

// Write implements bus.Conn.
func (c *Conn) Write(addr bus.Address, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !addr.Valid() {
		return fmt.Errorf("write %v: %w", addr, pkg.ErrInvalidAddress)
	}
	if err := c.transmit(byte(addr)<<1, data); err != nil {
		return Error.Wrap(fmt.Errorf("write %v: %w", addr, err))
	}
	return nil
}

// Read implements bus.Conn. Every byte but the last is acknowledged.
func (c *Conn) Read(addr bus.Address, buf []byte) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !addr.Valid() {
		return 0, fmt.Errorf("read %v: %w", addr, pkg.ErrInvalidAddress)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := c.receive(byte(addr)<<1|1, buf)
	if err != nil {
		return n, Error.Wrap(fmt.Errorf("read %v: %w", addr, err))
	}
	return n, nil
}

func (c *Conn) receive(addr byte, buf []byte) (int, error) {
	if err := c.command(cmdStart); err != nil {
		return 0, err
	}
	i, err := c.bulk([]byte{addr})
	if err != nil {
		return 0, err
	}
	if i == 0 {
		if err := c.command(cmdStop); err != nil {
			return 0, err
		}
		return 0, pkg.ErrNoDevice
	}

	var b [1]byte
	for n := range buf {
		if _, err := c.port.Write([]byte{cmdReadByte}); err != nil {
			return n, err
		}
		if _, err := c.readFull(b[:]); err != nil {
			return n, err
		}
		buf[n] = b[0]
		ack := cmdACK
		if n == len(buf)-1 {
			ack = cmdNACK
		}
		if err := c.command(ack); err != nil {
			return n + 1, err
		}
	}
	if err := c.command(cmdStop); err != nil {
		return len(buf), err
	}
	return len(buf), nil
}

// Close returns the adapter to its user terminal and closes the port.
func (c *Conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var group errs.Group
	if err := c.expect([]byte{cmdReset}, bitbangID); err == nil {
		group.Add(c.command(cmdExit))
	}
	group.Add(c.port.Close())
	return Error.Wrap(group.Err())
}
