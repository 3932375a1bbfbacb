package sim

import (
	"sync"
	"time"

	"github.com/ardnew/i2ceeprom/bus"
)

// Kind identifies the direction of a recorded transaction.
type Kind uint8

// Transaction kinds.
const (
	KindWrite Kind = iota // Controller to device
	KindRead              // Device to controller
)

// String returns the transaction kind name.
func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindRead:
		return "read"
	default:
		return "unknown"
	}
}

// Transaction is one recorded bus transaction.
type Transaction struct {
	Kind      Kind
	Addr      bus.Address
	Data      []byte    // Bytes sent (write) or received (read)
	Requested int       // Bytes requested (read only)
	Time      time.Time // Clock reading when the transaction was issued
	Err       error
}

// IsDataWrite reports whether t is a write carrying a payload beyond the
// two-byte word address. Address-only writes (pointer set or ping) are not
// data writes.
func (t Transaction) IsDataWrite() bool {
	return t.Kind == KindWrite && len(t.Data) > 2
}

// Recorder implements bus.Conn by forwarding to another Conn and recording
// every transaction.
type Recorder struct {
	conn  bus.Conn
	now   func() time.Time
	log   []Transaction
	mutex sync.Mutex
}

// NewRecorder wraps conn. A nil now selects time.Now.
func NewRecorder(conn bus.Conn, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{conn: conn, now: now}
}

func (r *Recorder) record(t Transaction) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.log = append(r.log, t)
}

// Write implements bus.Conn.
func (r *Recorder) Write(addr bus.Address, data []byte) error {
	t := Transaction{
		Kind: KindWrite,
		Addr: addr,
		Data: append([]byte(nil), data...),
		Time: r.now(),
	}
	t.Err = r.conn.Write(addr, data)
	r.record(t)
	return t.Err
}

// Read implements bus.Conn.
func (r *Recorder) Read(addr bus.Address, buf []byte) (int, error) {
	t := Transaction{
		Kind:      KindRead,
		Addr:      addr,
		Requested: len(buf),
		Time:      r.now(),
	}
	n, err := r.conn.Read(addr, buf)
	if n > 0 {
		t.Data = append([]byte(nil), buf[:n]...)
	}
	t.Err = err
	r.record(t)
	return n, err
}

// Close implements bus.Conn.
func (r *Recorder) Close() error {
	return r.conn.Close()
}

// Transactions returns a copy of the recorded transactions.
func (r *Recorder) Transactions() []Transaction {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Transaction(nil), r.log...)
}

// Reset discards the recorded transactions.
func (r *Recorder) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.log = r.log[:0]
}

// Writes returns the number of recorded write transactions.
func (r *Recorder) Writes() int {
	return r.count(func(t Transaction) bool { return t.Kind == KindWrite })
}

// DataWrites returns the number of recorded writes that carried a payload.
func (r *Recorder) DataWrites() int {
	return r.count(Transaction.IsDataWrite)
}

// Reads returns the number of recorded read transactions.
func (r *Recorder) Reads() int {
	return r.count(func(t Transaction) bool { return t.Kind == KindRead })
}

func (r *Recorder) count(match func(Transaction) bool) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n := 0
	for _, t := range r.log {
		if match(t) {
			n++
		}
	}
	return n
}
