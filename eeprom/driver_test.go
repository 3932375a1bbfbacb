package eeprom

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/bus/sim"
	"github.com/ardnew/i2ceeprom/pkg"
)

// fakeClock is a manually advanced clock. Sleep advances it immediately.
type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

// countingBus counts Begin calls on a Transport.
type countingBus struct {
	*bus.Transport
	begins int
}

func (b *countingBus) Begin() error {
	b.begins++
	return b.Transport.Begin()
}

type fixture struct {
	clock *fakeClock
	dev   *sim.Device
	rec   *sim.Recorder
	bus   *countingBus
	drv   *Driver
}

const testCapacity = 32 * 1024

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	f := &fixture{clock: &fakeClock{t: time.Unix(1000, 0)}}
	f.dev = sim.NewDevice(sim.Config{
		Capacity:   testCapacity,
		PageSize:   64,
		WriteCycle: 5 * time.Millisecond,
		Now:        f.clock.Now,
	})
	f.rec = sim.NewRecorder(f.dev, f.clock.Now)
	f.bus = &countingBus{Transport: bus.NewTransport(f.rec, bus.DefaultBufferSize)}

	cfg := DefaultConfig()
	cfg.Capacity = testCapacity
	cfg.Sleep = f.clock.Sleep
	cfg.Now = f.clock.Now
	if mutate != nil {
		mutate(&cfg)
	}

	drv, err := New(f.bus, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.drv = drv
	return f
}

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = seed + byte(i*7)
	}
	return buf
}

func TestNew_Errors(t *testing.T) {
	tr := bus.NewTransport(sim.NewDevice(sim.Config{}), 0)

	if _, err := New(nil, DefaultConfig()); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("New(nil) error = %v, want ErrInvalidParameter", err)
	}

	cfg := DefaultConfig()
	cfg.Address = 0xA0
	if _, err := New(tr, cfg); !errors.Is(err, pkg.ErrInvalidAddress) {
		t.Errorf("New(8-bit address) error = %v, want ErrInvalidAddress", err)
	}

	cfg = DefaultConfig()
	cfg.MaxTransfer = 31
	if _, err := New(tr, cfg); !errors.Is(err, pkg.ErrTransferTooLarge) {
		t.Errorf("New(MaxTransfer 31) error = %v, want ErrTransferTooLarge", err)
	}

	// A larger transport buffer admits a larger transfer.
	cfg.MaxTransfer = 62
	if _, err := New(bus.NewTransport(sim.NewDevice(sim.Config{}), 64), cfg); err != nil {
		t.Errorf("New(MaxTransfer 62, buffer 64) error = %v", err)
	}
}

func TestDriver_Init(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 3; i++ {
		if err := f.drv.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	}
	if f.bus.begins != 3 {
		t.Errorf("Begin calls = %d, want 3", f.bus.begins)
	}
	if len(f.rec.Transactions()) != 0 {
		t.Error("Init() issued bus transactions")
	}

	// Block operations re-initialize the bus.
	f.drv.ReadBlock(make([]byte, 4), 0)
	f.drv.UpdateBlock([]byte{1}, 0)
	if f.bus.begins != 5 {
		t.Errorf("Begin calls = %d, want 5", f.bus.begins)
	}
}

// Methods named ReadByte or WriteByte must carry the io signatures, or
// go vet rejects the package.
func TestDriver_ByteMethodSignatures(t *testing.T) {
	for _, v := range []any{(*Driver)(nil), (*Compat)(nil)} {
		typ := reflect.TypeOf(v)
		if _, ok := typ.MethodByName("ReadByte"); ok {
			if _, ok := v.(io.ByteReader); !ok {
				t.Errorf("%v.ReadByte does not implement io.ByteReader", typ)
			}
		}
		if _, ok := typ.MethodByName("WriteByte"); ok {
			if _, ok := v.(io.ByteWriter); !ok {
				t.Errorf("%v.WriteByte does not implement io.ByteWriter", typ)
			}
		}
	}
}

func TestDriver_ByteAtRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	addrs := []uint16{0x0000, 0x0001, 0x003F, 0x0040, 0x1234, 0x7FFE, 0x7FFF}
	for i, a := range addrs {
		v := byte(0x11 * (i + 1))
		if err := f.drv.WriteByteAt(a, v); err != nil {
			t.Fatalf("WriteByteAt(%#04x) error = %v", a, err)
		}
		got, err := f.drv.ReadByteAt(a)
		if err != nil {
			t.Fatalf("ReadByteAt(%#04x) error = %v", a, err)
		}
		if got != v {
			t.Errorf("ReadByteAt(%#04x) = %#02x, want %#02x", a, got, v)
		}
	}

	// Every value survives at one address.
	for v := 0; v < 256; v++ {
		if err := f.drv.WriteByteAt(0x0100, byte(v)); err != nil {
			t.Fatal(err)
		}
		if got, _ := f.drv.ReadByteAt(0x0100); got != byte(v) {
			t.Fatalf("ReadByteAt() = %#02x, want %#02x", got, v)
		}
	}

	st := f.drv.Stats()
	if st.ByteWrites != uint64(len(addrs)+256) || st.WritesIssued != st.ByteWrites {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestDriver_WriteByteAtFraming(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.drv.WriteByteAt(0xABC, 0x5A); err != nil {
		t.Fatal(err)
	}
	txs := f.rec.Transactions()
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	if txs[0].Addr != 0x50 || !bytes.Equal(txs[0].Data, []byte{0x0A, 0xBC, 0x5A}) {
		t.Errorf("transaction = %v % X", txs[0].Addr, txs[0].Data)
	}
	if len(f.clock.slept) != 1 || f.clock.slept[0] != DefaultWriteDelay {
		t.Errorf("slept = %v, want [%v]", f.clock.slept, DefaultWriteDelay)
	}
}

func TestDriver_ReadByteAtFraming(t *testing.T) {
	f := newFixture(t, nil)
	f.dev.Poke(0x0102, []byte{0x77})

	got, err := f.drv.ReadByteAt(0x0102)
	if err != nil || got != 0x77 {
		t.Fatalf("ReadByteAt() = %#x, %v", got, err)
	}

	txs := f.rec.Transactions()
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}
	if txs[0].Kind != sim.KindWrite || !bytes.Equal(txs[0].Data, []byte{0x01, 0x02}) {
		t.Errorf("pointer write = %v % X", txs[0].Kind, txs[0].Data)
	}
	if txs[1].Kind != sim.KindRead || txs[1].Requested != 1 {
		t.Errorf("read = %v requested %d", txs[1].Kind, txs[1].Requested)
	}
	if len(f.clock.slept) != 0 {
		t.Errorf("read slept %v", f.clock.slept)
	}
}

func TestDriver_ReadByteAtSentinel(t *testing.T) {
	t.Run("absent device", func(t *testing.T) {
		f := newFixture(t, nil)
		f.dev.SetPresent(false)

		got, err := f.drv.ReadByteAt(0x10)
		if got != 0xFF {
			t.Errorf("ReadByteAt() = %#x, want 0xFF", got)
		}
		if !errors.Is(err, pkg.ErrNoDevice) {
			t.Errorf("ReadByteAt() error = %v, want ErrNoDevice", err)
		}
	})

	t.Run("no byte available", func(t *testing.T) {
		f := newFixture(t, nil)
		f.dev.Poke(0x10, []byte{0x00})
		f.dev.SetReadLimit(0)

		got, err := f.drv.ReadByteAt(0x10)
		if got != 0xFF {
			t.Errorf("ReadByteAt() = %#x, want 0xFF", got)
		}
		if !errors.Is(err, pkg.ErrNoData) {
			t.Errorf("ReadByteAt() error = %v, want ErrNoData", err)
		}
		if f.drv.Stats().ShortReads != 1 {
			t.Errorf("ShortReads = %d, want 1", f.drv.Stats().ShortReads)
		}
	})
}

func TestDriver_WriteByteAtAbsent(t *testing.T) {
	f := newFixture(t, nil)
	f.dev.SetPresent(false)

	err := f.drv.WriteByteAt(0x10, 0x01)
	if !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("WriteByteAt() error = %v, want ErrNoDevice", err)
	}
	if len(f.clock.slept) != 0 {
		t.Errorf("failed write waited %v", f.clock.slept)
	}
	if f.drv.Stats().WritesIssued != 0 {
		t.Errorf("WritesIssued = %d, want 0", f.drv.Stats().WritesIssued)
	}
}

func TestDriver_BlockRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	for n := 1; n <= DefaultMaxTransfer; n++ {
		for _, page := range []uint16{0, 1, 17, 511} {
			// Place the block at the start and at the end of the page.
			for _, a := range []uint16{page * 64, page*64 + uint16(64-n)} {
				buf := pattern(n, byte(a)+byte(n))
				wrote, err := f.drv.UpdateBlock(buf, a)
				if err != nil {
					t.Fatalf("UpdateBlock(n=%d, %#04x) error = %v", n, a, err)
				}
				if !wrote {
					t.Fatalf("UpdateBlock(n=%d, %#04x) did not write", n, a)
				}

				out := make([]byte, n)
				got, err := f.drv.ReadBlock(out, a)
				if err != nil || got != n {
					t.Fatalf("ReadBlock(n=%d, %#04x) = %d, %v", n, a, got, err)
				}
				if !bytes.Equal(out, buf) {
					t.Fatalf("ReadBlock(n=%d, %#04x) = % X, want % X", n, a, out, buf)
				}
			}
		}
	}
}

func TestDriver_UpdateBlockSuppressesWrite(t *testing.T) {
	f := newFixture(t, nil)
	buf := pattern(24, 0x30)
	f.dev.Poke(0x0200, buf)

	wrote, err := f.drv.UpdateBlock(buf, 0x0200)
	if err != nil {
		t.Fatalf("UpdateBlock() error = %v", err)
	}
	if wrote {
		t.Error("UpdateBlock() wrote matching contents")
	}
	if f.rec.DataWrites() != 0 {
		t.Errorf("data writes = %d, want 0", f.rec.DataWrites())
	}
	if f.rec.Reads() != 1 {
		t.Errorf("reads = %d, want 1", f.rec.Reads())
	}
	if f.dev.WriteCycles() != 0 {
		t.Errorf("write cycles = %d, want 0", f.dev.WriteCycles())
	}
	if len(f.clock.slept) != 0 {
		t.Errorf("suppressed update waited %v", f.clock.slept)
	}
	if f.drv.Stats().WritesSuppressed != 1 {
		t.Errorf("WritesSuppressed = %d, want 1", f.drv.Stats().WritesSuppressed)
	}
}

func TestDriver_UpdateBlockWritesOnDifference(t *testing.T) {
	f := newFixture(t, nil)
	buf := pattern(16, 0x40)
	old := append([]byte(nil), buf...)
	old[15] ^= 0x01 // differ in the last byte only
	f.dev.Poke(0x0300, old)

	wrote, err := f.drv.UpdateBlock(buf, 0x0300)
	if err != nil || !wrote {
		t.Fatalf("UpdateBlock() = %v, %v, want true, nil", wrote, err)
	}

	var data []sim.Transaction
	for _, tx := range f.rec.Transactions() {
		if tx.IsDataWrite() {
			data = append(data, tx)
		}
	}
	if len(data) != 1 {
		t.Fatalf("data writes = %d, want 1", len(data))
	}
	want := append([]byte{0x03, 0x00}, buf...)
	if !bytes.Equal(data[0].Data, want) {
		t.Errorf("data write = % X, want % X", data[0].Data, want)
	}
	if !bytes.Equal(f.dev.Bytes()[0x0300:0x0310], buf) {
		t.Error("device contents not updated")
	}

	// The next transaction is issued no earlier than the write delay.
	if err := f.drv.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.drv.ReadByteAt(0x0300); err != nil {
		t.Fatalf("ReadByteAt() after update error = %v", err)
	}
	txs := f.rec.Transactions()
	var writeAt time.Time
	for i, tx := range txs {
		if tx.IsDataWrite() {
			writeAt = tx.Time
			if next := txs[i+1].Time; next.Sub(writeAt) < DefaultWriteDelay {
				t.Errorf("next transaction after %v, want >= %v", next.Sub(writeAt), DefaultWriteDelay)
			}
		}
	}
	if st := f.drv.Stats(); st.WaitTime != DefaultWriteDelay || st.BytesWritten != 16 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestDriver_WriteDelayBeforeNextTransaction(t *testing.T) {
	f := newFixture(t, nil)

	ops := []func() error{
		func() error { return f.drv.WriteByteAt(0x10, 1) },
		func() error { _, err := f.drv.UpdateBlock(pattern(8, 1), 0x20); return err },
		func() error { return f.drv.WriteByteAt(0x11, 2) },
		func() error { _, err := f.drv.ReadBlock(make([]byte, 8), 0x20); return err },
		func() error { _, err := f.drv.UpdateBlock(pattern(8, 9), 0x20); return err },
		func() error { _, err := f.drv.ReadByteAt(0x10); return err },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d error = %v", i, err)
		}
	}

	txs := f.rec.Transactions()
	for i, tx := range txs {
		if tx.Err != nil {
			t.Errorf("transaction %d failed: %v", i, tx.Err)
		}
		if tx.IsDataWrite() && i+1 < len(txs) {
			if gap := txs[i+1].Time.Sub(tx.Time); gap < DefaultWriteDelay {
				t.Errorf("transaction %d follows a write after %v", i+1, gap)
			}
		}
	}
}

func TestDriver_AddressFramingMSBFirst(t *testing.T) {
	f := newFixture(t, nil)

	addrs := []uint16{0x0000, 0x00FE, 0x0100, 0x1281, 0x7F00, 0x7FC0}
	for _, a := range addrs {
		f.rec.Reset()
		if err := f.drv.WriteByteAt(a, 0xEE); err != nil {
			t.Fatal(err)
		}
		if _, err := f.drv.ReadByteAt(a); err != nil {
			t.Fatal(err)
		}
		if _, err := f.drv.UpdateBlock([]byte{0x01, 0x02}, a); err != nil {
			t.Fatal(err)
		}
		if _, err := f.drv.ReadBlock(make([]byte, 2), a); err != nil {
			t.Fatal(err)
		}

		for i, tx := range f.rec.Transactions() {
			if tx.Kind != sim.KindWrite {
				continue
			}
			if len(tx.Data) < 2 {
				t.Fatalf("%#04x: write %d has %d bytes", a, i, len(tx.Data))
			}
			if tx.Data[0] != byte(a>>8) || tx.Data[1] != byte(a) {
				t.Errorf("%#04x: write %d address bytes = % X", a, i, tx.Data[:2])
			}
		}
	}
}

func TestWordAddress(t *testing.T) {
	tests := []struct {
		addr uint16
		want [2]byte
	}{
		{0x0000, [2]byte{0x00, 0x00}},
		{0x00FF, [2]byte{0x00, 0xFF}},
		{0x1234, [2]byte{0x12, 0x34}},
		{0xFF00, [2]byte{0xFF, 0x00}},
	}
	for _, tt := range tests {
		if got := wordAddress(tt.addr); got != tt.want {
			t.Errorf("wordAddress(%#04x) = % X, want % X", tt.addr, got, tt.want)
		}
	}
}

func TestDriver_ReadBlockPartial(t *testing.T) {
	f := newFixture(t, nil)
	f.dev.Poke(0x0400, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	f.dev.SetReadLimit(3)

	dst := bytes.Repeat([]byte{0xCC}, 8)
	n, err := f.drv.ReadBlock(dst, 0x0400)
	if n != 3 {
		t.Errorf("ReadBlock() n = %d, want 3", n)
	}
	if !errors.Is(err, pkg.ErrShortRead) {
		t.Errorf("ReadBlock() error = %v, want ErrShortRead", err)
	}
	want := []byte{1, 2, 3, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC}
	if !bytes.Equal(dst, want) {
		t.Errorf("dst = % X, want % X", dst, want)
	}
	if f.drv.Stats().ShortReads != 1 {
		t.Errorf("ShortReads = %d, want 1", f.drv.Stats().ShortReads)
	}
}

func TestDriver_ReadBlockAbsent(t *testing.T) {
	f := newFixture(t, nil)
	f.dev.SetPresent(false)

	dst := []byte{9, 9, 9}
	n, err := f.drv.ReadBlock(dst, 0)
	if n != 0 || !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("ReadBlock() = %d, %v, want 0, ErrNoDevice", n, err)
	}
	if !bytes.Equal(dst, []byte{9, 9, 9}) {
		t.Errorf("dst modified: % X", dst)
	}
}

func TestDriver_RejectsOversizedRequests(t *testing.T) {
	f := newFixture(t, nil)
	big := make([]byte, DefaultMaxTransfer+1)

	if _, err := f.drv.ReadBlock(big, 0); !errors.Is(err, pkg.ErrTransferTooLarge) {
		t.Errorf("ReadBlock() error = %v, want ErrTransferTooLarge", err)
	}
	if _, err := f.drv.UpdateBlock(big, 0); !errors.Is(err, pkg.ErrTransferTooLarge) {
		t.Errorf("UpdateBlock() error = %v, want ErrTransferTooLarge", err)
	}
	if len(f.rec.Transactions()) != 0 {
		t.Errorf("rejected requests issued %d transactions", len(f.rec.Transactions()))
	}
}

func TestDriver_RejectsPageCrossing(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.drv.UpdateBlock(pattern(8, 0), 60)
	if !errors.Is(err, pkg.ErrPageBoundary) {
		t.Errorf("UpdateBlock() error = %v, want ErrPageBoundary", err)
	}
	if len(f.rec.Transactions()) != 0 {
		t.Errorf("rejected request issued %d transactions", len(f.rec.Transactions()))
	}

	// Reads are not page bound.
	if _, err := f.drv.ReadBlock(make([]byte, 8), 60); err != nil {
		t.Errorf("ReadBlock() across page error = %v", err)
	}
}

func TestDriver_PageCheckDisabled(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.PageSize = 0 })

	buf := pattern(8, 0x10)
	if _, err := f.drv.UpdateBlock(buf, 60); err != nil {
		t.Fatalf("UpdateBlock() error = %v", err)
	}

	// The device wraps within the page: bytes 4..7 land at 64-byte page start.
	mem := f.dev.Bytes()
	if !bytes.Equal(mem[60:64], buf[:4]) || !bytes.Equal(mem[0:4], buf[4:]) {
		t.Errorf("page wrap not reproduced: % X / % X", mem[60:64], mem[0:4])
	}
}

func TestDriver_RejectsOutOfRange(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.drv.WriteByteAt(testCapacity, 0); !errors.Is(err, pkg.ErrAddressRange) {
		t.Errorf("WriteByteAt() error = %v, want ErrAddressRange", err)
	}
	if _, err := f.drv.ReadByteAt(0xFFFF); !errors.Is(err, pkg.ErrAddressRange) {
		t.Errorf("ReadByteAt() error = %v, want ErrAddressRange", err)
	}
	if _, err := f.drv.ReadBlock(make([]byte, 4), testCapacity-2); !errors.Is(err, pkg.ErrAddressRange) {
		t.Errorf("ReadBlock() error = %v, want ErrAddressRange", err)
	}
	if len(f.rec.Transactions()) != 0 {
		t.Error("rejected requests reached the bus")
	}
}

// A default simulator is 32 KiB, so the driver must be told its capacity or
// addresses past the end alias back to the start of the device.
func TestDriver_DefaultSimulatorCapacity(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	dev := sim.NewDevice(sim.Config{Now: clk.Now})
	rec := sim.NewRecorder(dev, clk.Now)

	cfg := DefaultConfig()
	cfg.Capacity = sim.DefaultCapacity
	cfg.Sleep = clk.Sleep
	cfg.Now = clk.Now
	drv, err := New(bus.NewTransport(rec, 0), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := []byte("settings")
	if wrote, err := drv.UpdateBlock(want, 0x0040); err != nil || !wrote {
		t.Fatalf("UpdateBlock() = %v, %v, want true, nil", wrote, err)
	}
	got := make([]byte, len(want))
	if n, err := drv.ReadBlock(got, 0x0040); err != nil || n != len(want) {
		t.Fatalf("ReadBlock() = %d, %v", n, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadBlock() = %q, want %q", got, want)
	}

	before := len(rec.Transactions())
	if _, err := drv.ReadByteAt(sim.DefaultCapacity + 0x0040); !errors.Is(err, pkg.ErrAddressRange) {
		t.Errorf("ReadByteAt(past end) error = %v, want ErrAddressRange", err)
	}
	if len(rec.Transactions()) != before {
		t.Error("out of range read reached the bus")
	}
}

func TestDriver_EmptyBlocks(t *testing.T) {
	f := newFixture(t, nil)

	if n, err := f.drv.ReadBlock(nil, 0); n != 0 || err != nil {
		t.Errorf("ReadBlock(nil) = %d, %v", n, err)
	}
	if wrote, err := f.drv.UpdateBlock(nil, 0); wrote || err != nil {
		t.Errorf("UpdateBlock(nil) = %v, %v", wrote, err)
	}
	if len(f.rec.Transactions()) != 0 {
		t.Error("empty blocks reached the bus")
	}
}

func TestDriver_UpdateBlockShortRead(t *testing.T) {
	buf := pattern(10, 0x20)

	tests := []struct {
		name      string
		policy    ShortReadPolicy
		stored    []byte
		wantWrote bool
		wantErr   error
	}{
		{"skip matching prefix", ShortReadSkip, buf, false, pkg.ErrShortRead},
		{"force matching prefix", ShortReadForceWrite, buf, true, nil},
		{"skip differing prefix", ShortReadSkip, pattern(10, 0x99), true, nil},
		{"force differing prefix", ShortReadForceWrite, pattern(10, 0x99), true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *Config) { c.ShortRead = tt.policy })
			f.dev.Poke(0x0500, tt.stored)
			f.dev.SetReadLimit(4)

			wrote, err := f.drv.UpdateBlock(buf, 0x0500)
			if wrote != tt.wantWrote {
				t.Errorf("UpdateBlock() wrote = %v, want %v", wrote, tt.wantWrote)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("UpdateBlock() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateBlock() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantWrote && !bytes.Equal(f.dev.Bytes()[0x0500:0x050A], buf) {
				t.Error("device contents not updated")
			}
			if f.drv.Stats().ShortReads != 1 {
				t.Errorf("ShortReads = %d, want 1", f.drv.Stats().ShortReads)
			}
		})
	}
}

func TestDriver_WaitPoll(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Wait = WaitPoll
		c.PollInterval = time.Millisecond
	})

	if err := f.drv.WriteByteAt(0x42, 0x24); err != nil {
		t.Fatalf("WriteByteAt() error = %v", err)
	}

	// One data write, then pings until the 5 ms cycle elapsed.
	txs := f.rec.Transactions()
	if !txs[0].IsDataWrite() {
		t.Fatalf("first transaction = % X", txs[0].Data)
	}
	pings := txs[1:]
	if len(pings) != 6 {
		t.Errorf("pings = %d, want 6", len(pings))
	}
	for i, p := range pings {
		if len(p.Data) != 0 {
			t.Errorf("ping %d carried data % X", i, p.Data)
		}
		last := i == len(pings)-1
		if (p.Err == nil) != last {
			t.Errorf("ping %d error = %v", i, p.Err)
		}
	}
	if f.dev.Busy() {
		t.Error("device still busy after poll")
	}
	if got := f.drv.Stats().WaitTime; got != 5*time.Millisecond {
		t.Errorf("WaitTime = %v, want 5ms", got)
	}
}

func TestDriver_WaitPollTimeout(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Wait = WaitPoll
		c.PollInterval = time.Millisecond
		c.PollTimeout = 3 * time.Millisecond
	})

	err := f.drv.WriteByteAt(0x42, 0x24)
	if !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("WriteByteAt() error = %v, want ErrTimeout", err)
	}
}

func TestDriver_Logging(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, func(c *Config) {
		c.Logger = pkg.NewLogger(&buf, pkg.LogFormatText)
	})
	f.dev.SetReadLimit(1)

	f.drv.ReadBlock(make([]byte, 4), 0)
	out := buf.String()
	if !strings.Contains(out, "short block read") || !strings.Contains(out, "component=driver") {
		t.Errorf("log output = %q", out)
	}
}

func TestDriver_ResetStats(t *testing.T) {
	f := newFixture(t, nil)
	f.drv.WriteByteAt(0, 0)
	f.drv.ResetStats()
	if st := f.drv.Stats(); st != (Stats{}) {
		t.Errorf("Stats() after reset = %+v", st)
	}
}
