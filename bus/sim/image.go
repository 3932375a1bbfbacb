package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/errs"

	"github.com/ardnew/i2ceeprom/pkg"
)

// Error is the class of image persistence errors.
var Error = errs.Class("sim")

// Load replaces the memory array with exactly Capacity bytes from r.
func (d *Device) Load(r io.Reader) error {
	buf := make([]byte, d.cfg.Capacity)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Error.Wrap(fmt.Errorf("image shorter than %d bytes: %w", d.cfg.Capacity, pkg.ErrInvalidParameter))
		}
		return Error.Wrap(err)
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n > 0 {
		return Error.Wrap(fmt.Errorf("image longer than %d bytes: %w", d.cfg.Capacity, pkg.ErrInvalidParameter))
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	copy(d.mem, buf)
	return nil
}

// Save writes the memory array to w.
func (d *Device) Save(w io.Writer) error {
	_, err := io.Copy(w, bytes.NewReader(d.Bytes()))
	return Error.Wrap(err)
}

// LoadFile loads an image file into the device. A missing file leaves the
// device erased and is not an error.
func (d *Device) LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		pkg.LogInfo(pkg.ComponentSim, "image not found, starting erased", "path", path)
		return nil
	}
	if err != nil {
		return Error.Wrap(err)
	}
	defer f.Close()

	if err := d.Load(f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentSim, "image loaded", "path", path, "size", d.cfg.Capacity)
	return nil
}

// SaveFile writes the device contents to path, replacing any existing file.
func (d *Device) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Error.Wrap(err)
	}
	if err := d.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return Error.Wrap(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return Error.Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Error.Wrap(err)
	}
	pkg.LogDebug(pkg.ComponentSim, "image saved", "path", path, "size", d.cfg.Capacity)
	return nil
}
