// Package i2cdev implements a [bus.Conn] backend for Linux i2c-dev
// character devices such as /dev/i2c-1.
//
// Each target address gets its own handle, opened on first use and cached
// until Close. Transfers are issued through golang.org/x/exp/io/i2c.
//
//	conn, err := i2cdev.Open("/dev/i2c-1")
//	if err != nil {
//	    return err
//	}
//	b := bus.NewTransport(conn, bus.DefaultBufferSize)
//	defer b.Close()
//
// On platforms other than Linux, [Open] returns an error wrapping
// [pkg.ErrNotSupported].
package i2cdev
