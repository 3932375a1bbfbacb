package eeprom

import "log/slog"

// Compat exposes the driver through the legacy call surface, where no
// operation reports failure.
//
// Errors are logged at warn level and dropped. A failed ReadByteAt returns
// SentinelByte, which callers cannot tell apart from a stored 0xFF, and a
// short ReadBlock leaves the tail of dst stale without notice. New code
// should call the Driver directly.
type Compat struct {
	d *Driver
}

// NewCompat wraps d.
func NewCompat(d *Driver) *Compat {
	return &Compat{d: d}
}

func (c *Compat) warn(op string, addr uint16, err error) {
	if err != nil {
		c.d.log.Warn("legacy call failed", slog.String("op", op), slog.Any("addr", addr), slog.Any("error", err))
	}
}

// WriteByteAt stores v at addr.
func (c *Compat) WriteByteAt(addr uint16, v byte) {
	c.warn("write_byte", addr, c.d.WriteByteAt(addr, v))
}

// ReadByteAt returns the byte at addr, or SentinelByte on failure.
func (c *Compat) ReadByteAt(addr uint16) byte {
	b, err := c.d.ReadByteAt(addr)
	c.warn("read_byte", addr, err)
	return b
}

// UpdateBlock writes src at addr when the device contents differ.
func (c *Compat) UpdateBlock(src []byte, addr uint16) {
	_, err := c.d.UpdateBlock(src, addr)
	c.warn("update_block", addr, err)
}

// ReadBlock fills as much of dst as the device returns.
func (c *Compat) ReadBlock(dst []byte, addr uint16) {
	_, err := c.d.ReadBlock(dst, addr)
	c.warn("read_block", addr, err)
}
