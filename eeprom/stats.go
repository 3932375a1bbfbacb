package eeprom

import "time"

// Stats holds driver operation counters.
type Stats struct {
	ByteReads        uint64        // ReadByteAt calls
	ByteWrites       uint64        // WriteByteAt calls
	BlockReads       uint64        // ReadBlock calls
	BlockUpdates     uint64        // UpdateBlock calls
	WritesIssued     uint64        // Data write transactions sent
	WritesSuppressed uint64        // UpdateBlock calls that matched the device
	ShortReads       uint64        // Reads that returned fewer bytes than requested
	BytesWritten     uint64        // Payload bytes sent in data writes
	WaitTime         time.Duration // Total time spent waiting for write cycles
}

// Stats returns a snapshot of the operation counters.
func (d *Driver) Stats() Stats {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stats
}

// ResetStats clears the operation counters.
func (d *Driver) ResetStats() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stats = Stats{}
}
