package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/eeprom"
	"github.com/ardnew/i2ceeprom/pkg"
)

// dumpWidth is the number of bytes per dump row.
const dumpWidth = 16

type cli struct {
	drv    *eeprom.Driver
	bus    bus.Bus
	out    io.Writer
	legacy bool
}

func (c *cli) dispatch(args []string) error {
	name, args := args[0], args[1:]
	switch name {
	case "read":
		return c.read(args)
	case "write":
		return c.write(args)
	case "readblock":
		return c.readBlock(args)
	case "update":
		return c.update(args)
	case "dump":
		return c.dump(args)
	case "load":
		return c.load(args)
	case "scan":
		return c.scan(args)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, name)
}

func nargs(args []string, lo, hi int, form string) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("%w: %s", errUsage, form)
	}
	return nil
}

func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: address %q", errUsage, s)
	}
	return uint16(v), nil
}

func parseCount(s string) (int, error) {
	v, err := strconv.ParseUint(s, 0, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: count %q", errUsage, s)
	}
	return int(v), nil
}

func (c *cli) read(args []string) error {
	if err := nargs(args, 1, 1, "read <addr>"); err != nil {
		return err
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}

	var v byte
	if c.legacy {
		v = eeprom.NewCompat(c.drv).ReadByteAt(addr)
	} else if v, err = c.drv.ReadByteAt(addr); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%04X: %02X\n", addr, v)
	return nil
}

func (c *cli) write(args []string) error {
	if err := nargs(args, 2, 2, "write <addr> <byte>"); err != nil {
		return err
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("%w: byte %q", errUsage, args[1])
	}

	if c.legacy {
		eeprom.NewCompat(c.drv).WriteByteAt(addr, byte(v))
		return nil
	}
	return c.drv.WriteByteAt(addr, byte(v))
}

func (c *cli) readBlock(args []string) error {
	if err := nargs(args, 2, 2, "readblock <addr> <n>"); err != nil {
		return err
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	n, err := parseCount(args[1])
	if err != nil {
		return err
	}

	buf := make([]byte, n)
	if c.legacy {
		eeprom.NewCompat(c.drv).ReadBlock(buf, addr)
	} else if n, err = c.drv.ReadBlock(buf, addr); err != nil {
		if n > 0 {
			fmt.Fprintf(c.out, "%04X: % X\n", addr, buf[:n])
		}
		return err
	}
	fmt.Fprintf(c.out, "%04X: % X\n", addr, buf[:n])
	return nil
}

func (c *cli) update(args []string) error {
	if err := nargs(args, 2, 2, "update <addr> <hex>"); err != nil {
		return err
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	src, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
	if err != nil {
		return fmt.Errorf("%w: hex data: %v", errUsage, err)
	}

	if c.legacy {
		eeprom.NewCompat(c.drv).UpdateBlock(src, addr)
		return nil
	}
	wrote, err := c.drv.UpdateBlock(src, addr)
	if err != nil {
		return err
	}
	if wrote {
		fmt.Fprintf(c.out, "%04X: %d bytes written\n", addr, len(src))
	} else {
		fmt.Fprintf(c.out, "%04X: unchanged\n", addr)
	}
	return nil
}

func (c *cli) dump(args []string) error {
	if err := nargs(args, 0, 2, "dump [start] [n]"); err != nil {
		return err
	}
	store := eeprom.NewStore(c.drv)

	var start uint16
	n := int(store.Size())
	var err error
	if len(args) > 0 {
		if start, err = parseAddr(args[0]); err != nil {
			return err
		}
		if int64(start) >= store.Size() {
			return fmt.Errorf("dump at %04X: %w", start, pkg.ErrAddressRange)
		}
		n -= int(start)
	}
	if len(args) > 1 {
		if n, err = parseCount(args[1]); err != nil {
			return err
		}
	}

	buf := make([]byte, n)
	got, err := store.ReadAt(buf, int64(start))
	for off := 0; off < got; off += dumpWidth {
		end := min(off+dumpWidth, got)
		fmt.Fprintf(c.out, "%04X: % X\n", int(start)+off, buf[off:end])
	}
	if err == io.EOF {
		return nil
	}
	return err
}

func (c *cli) load(args []string) error {
	if err := nargs(args, 2, 2, "load <addr> <file>"); err != nil {
		return err
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	before := c.drv.Stats().WritesIssued
	n, err := eeprom.NewStore(c.drv).WriteAt(data, int64(addr))
	if err != nil {
		return err
	}
	written := c.drv.Stats().WritesIssued - before
	pkg.LogInfo(component, "file loaded", "path", args[1], "addr", addr, "bytes", n)
	fmt.Fprintf(c.out, "%d bytes loaded at %04X (%d chunks written)\n", n, addr, written)
	return nil
}

func (c *cli) scan(args []string) error {
	if err := nargs(args, 0, 0, "scan"); err != nil {
		return err
	}
	found, err := bus.Scan(c.bus, bus.MinScan, bus.MaxScan)
	if err != nil {
		return err
	}
	for _, addr := range found {
		fmt.Fprintln(c.out, addr)
	}
	return nil
}

func (c *cli) printStats() {
	s := c.drv.Stats()
	fmt.Fprintf(c.out, "byte_reads        %d\n", s.ByteReads)
	fmt.Fprintf(c.out, "byte_writes       %d\n", s.ByteWrites)
	fmt.Fprintf(c.out, "block_reads       %d\n", s.BlockReads)
	fmt.Fprintf(c.out, "block_updates     %d\n", s.BlockUpdates)
	fmt.Fprintf(c.out, "writes_issued     %d\n", s.WritesIssued)
	fmt.Fprintf(c.out, "writes_suppressed %d\n", s.WritesSuppressed)
	fmt.Fprintf(c.out, "short_reads       %d\n", s.ShortReads)
	fmt.Fprintf(c.out, "bytes_written     %d\n", s.BytesWritten)
	fmt.Fprintf(c.out, "wait_time         %v\n", s.WaitTime)
}
