package eeprom

import (
	"fmt"

	"github.com/ardnew/i2ceeprom/bus"
	"github.com/ardnew/i2ceeprom/pkg"
)

// waitWrite blocks until the device has committed the last write.
func (d *Driver) waitWrite() error {
	start := d.now()
	defer func() {
		d.stats.WaitTime += d.now().Sub(start)
	}()

	switch d.cfg.Wait {
	case WaitPoll:
		return d.pollAck()
	default:
		d.sleep(d.cfg.WriteDelay)
		return nil
	}
}

// pollAck pings the device address until it acknowledges or PollTimeout
// elapses. The device does not acknowledge while its write cycle runs.
func (d *Driver) pollAck() error {
	start := d.now()
	for polls := 1; ; polls++ {
		ok, err := bus.Ping(d.bus, d.cfg.Address)
		if err != nil {
			return fmt.Errorf("poll %v: %w", d.cfg.Address, err)
		}
		if ok {
			d.log.Debug("write cycle complete", "polls", polls, "elapsed", d.now().Sub(start))
			return nil
		}
		if d.now().Sub(start) >= d.cfg.PollTimeout {
			return fmt.Errorf("poll %v after %d attempts: %w", d.cfg.Address, polls, pkg.ErrTimeout)
		}
		d.sleep(d.cfg.PollInterval)
	}
}
