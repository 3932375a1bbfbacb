package bus

import (
	"fmt"
	"io"
	"sync"

	"github.com/ardnew/i2ceeprom/pkg"
)

// DefaultBufferSize is the transmit and receive buffer capacity of a
// Transport, matching the 32-byte buffer of the Arduino Wire library.
const DefaultBufferSize = 32

// Transport implements Bus on top of a Conn.
//
// Outgoing bytes are queued in a fixed-size transmit buffer until
// EndTransmission, and read requests land in a fixed-size receive buffer.
// Both buffers are allocated once by NewTransport.
type Transport struct {
	conn Conn
	size int

	// Transmit state
	txAddr Address
	txOpen bool
	txBuf  []byte

	// Receive state
	rxBuf []byte
	rxPos int

	begun  bool
	closed bool
	mutex  sync.Mutex
}

// NewTransport creates a Transport over conn with the given buffer size.
// A size of zero or less selects DefaultBufferSize.
func NewTransport(conn Conn, size int) *Transport {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Transport{
		conn:  conn,
		size:  size,
		txBuf: make([]byte, 0, size),
		rxBuf: make([]byte, 0, size),
	}
}

// BufferSize returns the transaction byte capacity.
func (t *Transport) BufferSize() int {
	return t.size
}

// Begin marks the transport ready. It is idempotent.
func (t *Transport) Begin() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return pkg.ErrClosed
	}
	if !t.begun {
		t.begun = true
		pkg.LogDebug(pkg.ComponentBus, "transport started", "buffer", t.size)
	}
	return nil
}

// BeginTransmission opens a write transaction to addr.
func (t *Transport) BeginTransmission(addr Address) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return pkg.ErrClosed
	}
	if !addr.Valid() {
		return fmt.Errorf("begin %v: %w", addr, pkg.ErrInvalidAddress)
	}
	t.txAddr = addr
	t.txOpen = true
	t.txBuf = t.txBuf[:0]
	return nil
}

// WriteByte queues b in the open transaction.
func (t *Transport) WriteByte(b byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.txOpen {
		return pkg.ErrNoTransaction
	}
	if len(t.txBuf) >= t.size {
		return fmt.Errorf("queue byte %d: %w", len(t.txBuf), pkg.ErrTransferTooLarge)
	}
	t.txBuf = append(t.txBuf, b)
	return nil
}

// EndTransmission sends the queued bytes and closes the transaction.
func (t *Transport) EndTransmission() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return pkg.ErrClosed
	}
	if !t.txOpen {
		return pkg.ErrNoTransaction
	}
	t.txOpen = false

	if err := t.conn.Write(t.txAddr, t.txBuf); err != nil {
		pkg.LogDebug(pkg.ComponentBus, "write failed",
			"addr", t.txAddr, "len", len(t.txBuf), "status", pkg.StatusOf(err), "error", err)
		return fmt.Errorf("write %v: %w", t.txAddr, err)
	}
	return nil
}

// RequestFrom reads up to n bytes from addr into the receive buffer.
// Unconsumed bytes from a previous request are discarded.
func (t *Transport) RequestFrom(addr Address, n int) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.rxBuf = t.rxBuf[:0]
	t.rxPos = 0

	if t.closed {
		return 0, pkg.ErrClosed
	}
	if !addr.Valid() {
		return 0, fmt.Errorf("request %v: %w", addr, pkg.ErrInvalidAddress)
	}
	if n < 0 {
		return 0, fmt.Errorf("request %d bytes: %w", n, pkg.ErrInvalidParameter)
	}
	if n > t.size {
		return 0, fmt.Errorf("request %d bytes: %w", n, pkg.ErrTransferTooLarge)
	}
	if n == 0 {
		return 0, nil
	}

	got, err := t.conn.Read(addr, t.rxBuf[:n])
	if got < 0 {
		got = 0
	}
	if got > n {
		got = n
	}
	t.rxBuf = t.rxBuf[:got]
	if err != nil {
		pkg.LogDebug(pkg.ComponentBus, "read failed",
			"addr", addr, "want", n, "got", got, "error", err)
		return got, fmt.Errorf("read %v: %w", addr, err)
	}
	return got, nil
}

// Available returns the number of unread bytes in the receive buffer.
func (t *Transport) Available() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.rxBuf) - t.rxPos
}

// ReadByte returns the next received byte, or io.EOF when none remain.
func (t *Transport) ReadByte() (byte, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.rxPos >= len(t.rxBuf) {
		return 0, io.EOF
	}
	b := t.rxBuf[t.rxPos]
	t.rxPos++
	return b, nil
}

// Close closes the transport and the underlying Conn.
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.txOpen = false
	return t.conn.Close()
}
