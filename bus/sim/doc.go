// Package sim provides a simulated two-byte-addressed serial EEPROM and a
// transaction recorder, both implementing [bus.Conn].
//
// The simulator is the test double for the EEPROM driver. It models the
// internal address pointer, page wraparound on writes, sequential reads,
// the post-write busy period and an absent or under-responding device.
//
// # Usage
//
//	dev := sim.NewDevice(sim.Config{Capacity: 32 * 1024, PageSize: 64})
//	rec := sim.NewRecorder(dev, nil)
//	b := bus.NewTransport(rec, bus.DefaultBufferSize)
//
//	// ... drive b ...
//
//	fmt.Println(rec.DataWrites(), "payload writes")
//
// Device contents can be persisted to an image file with [Device.SaveFile]
// and restored with [Device.LoadFile].
package sim
