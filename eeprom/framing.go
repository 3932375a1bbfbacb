package eeprom

import (
	"fmt"

	"github.com/ardnew/i2ceeprom/pkg"
)

// wordAddress returns addr as the two bytes sent on the bus, most
// significant byte first.
func wordAddress(addr uint16) [AddressSize]byte {
	return [AddressSize]byte{byte(addr >> 8), byte(addr)}
}

// beginAt opens a write transaction to the device and queues the word
// address. The caller may queue data bytes before ending the transaction.
func (d *Driver) beginAt(addr uint16) error {
	if err := d.bus.BeginTransmission(d.cfg.Address); err != nil {
		return err
	}
	for _, b := range wordAddress(addr) {
		if err := d.bus.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// seek sets the device address pointer with an address-only write.
func (d *Driver) seek(addr uint16) error {
	if err := d.beginAt(addr); err != nil {
		return fmt.Errorf("seek 0x%04X: %w", addr, err)
	}
	if err := d.bus.EndTransmission(); err != nil {
		return fmt.Errorf("seek 0x%04X: %w", addr, err)
	}
	return nil
}

// program writes data at addr in one transaction and waits for the write
// cycle to complete.
func (d *Driver) program(addr uint16, data []byte) error {
	if err := d.beginAt(addr); err != nil {
		return fmt.Errorf("write 0x%04X: %w", addr, err)
	}
	for _, b := range data {
		if err := d.bus.WriteByte(b); err != nil {
			return fmt.Errorf("write 0x%04X: %w", addr, err)
		}
	}
	if err := d.bus.EndTransmission(); err != nil {
		return fmt.Errorf("write 0x%04X: %w", addr, err)
	}
	d.stats.WritesIssued++
	d.stats.BytesWritten += uint64(len(data))
	return d.waitWrite()
}

// checkRange validates an n-byte request at addr against the configured
// transfer limit and capacity.
func (d *Driver) checkRange(addr uint16, n int) error {
	if n > d.cfg.MaxTransfer {
		return fmt.Errorf("%d bytes at 0x%04X (max %d): %w", n, addr, d.cfg.MaxTransfer, pkg.ErrTransferTooLarge)
	}
	if int(addr)+n > d.cfg.capacity() {
		return fmt.Errorf("%d bytes at 0x%04X (capacity %d): %w", n, addr, d.cfg.capacity(), pkg.ErrAddressRange)
	}
	return nil
}

// checkPage validates that an n-byte write at addr stays within one page.
func (d *Driver) checkPage(addr uint16, n int) error {
	page := d.cfg.PageSize
	if page == 0 || n == 0 {
		return nil
	}
	first := int(addr) / page
	last := (int(addr) + n - 1) / page
	if first != last {
		return fmt.Errorf("%d bytes at 0x%04X (page %d): %w", n, addr, page, pkg.ErrPageBoundary)
	}
	return nil
}
