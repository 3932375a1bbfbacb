package eeprom

import (
	"fmt"
	"io"

	"github.com/ardnew/i2ceeprom/pkg"
)

// Store adapts a Driver to io.ReaderAt and io.WriterAt.
//
// Ranges of any length are split into chunks no longer than MaxTransfer.
// Write chunks are also cut at page boundaries and go through UpdateBlock,
// so unchanged chunks are not rewritten.
type Store struct {
	d *Driver
}

// NewStore creates a Store over d.
func NewStore(d *Driver) *Store {
	return &Store{d: d}
}

// Size returns the device capacity in bytes.
func (s *Store) Size() int64 {
	return int64(s.d.Capacity())
}

// ReadAt implements io.ReaderAt.
func (s *Store) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: %w", off, pkg.ErrInvalidParameter)
	}
	if off >= s.Size() {
		return 0, io.EOF
	}

	var eof error
	if rem := s.Size() - off; int64(len(p)) > rem {
		p = p[:rem]
		eof = io.EOF
	}

	max := s.d.cfg.MaxTransfer
	total := 0
	for total < len(p) {
		end := min(total+max, len(p))
		n, err := s.d.ReadBlock(p[total:end], uint16(off+int64(total)))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, eof
}

// WriteAt implements io.WriterAt. Writes extending past the device
// capacity are rejected without writing anything.
func (s *Store) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("write at %d: %w", off, pkg.ErrInvalidParameter)
	}
	if off+int64(len(p)) > s.Size() {
		return 0, fmt.Errorf("write %d bytes at %d (capacity %d): %w", len(p), off, s.Size(), pkg.ErrAddressRange)
	}

	max := s.d.cfg.MaxTransfer
	page := s.d.cfg.PageSize
	total, written := 0, 0
	for total < len(p) {
		addr := int(off) + total
		n := min(max, len(p)-total)
		if page > 0 {
			n = min(n, page-addr%page)
		}
		wrote, err := s.d.UpdateBlock(p[total:total+n], uint16(addr))
		if err != nil {
			return total, err
		}
		if wrote {
			written++
		}
		total += n
	}
	pkg.LogDebug(pkg.ComponentStore, "range stored", "off", off, "len", len(p), "chunksWritten", written)
	return total, nil
}
