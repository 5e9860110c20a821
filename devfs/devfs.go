// Package devfs implements the drivers.I2C bus interface on top of the
// Linux i2c-dev character devices (/dev/i2c-N), for running I²C slave
// drivers such as ads7830 on single-board computers.
//
// Device access provided by: https://golang.org/x/exp/io/i2c
package devfs

import (
	"fmt"

	i2c "golang.org/x/exp/io/i2c"
	"tinygo.org/x/drivers"
)

// Bus is an open handle to one i2c-dev adapter. The i2c-dev interface binds
// a file descriptor to a single slave address, so a Bus talks to exactly
// one slave; open one Bus per device.
type Bus struct {
	dev  *i2c.Device
	addr uint16
}

// Tx (and therefore the bus) satisfies the tinygo.org/x/drivers I²C bus
// interface.
var _ drivers.I2C = (*Bus)(nil)

// Open returns a new Bus on the i2c-dev adapter at the given path (e.g.
// "/dev/i2c-1"), bound to the given 7-bit slave address.
//
// Returns an error if the character device could not be opened or the slave
// address could not be selected.
func Open(path string, addr uint16) (*Bus, error) {

	dev, err := i2c.Open(&i2c.Devfs{Dev: path}, int(addr))
	if nil != err {
		return nil, err
	}

	return &Bus{dev: dev, addr: addr}, nil
}

// valid verifies the receiver and character device are both not nil.
//
// Returns false with a descriptive error if any required field is nil.
func (b *Bus) valid() (bool, error) {

	if nil == b {
		return false, fmt.Errorf("nil Bus")
	}

	if nil == b.dev {
		return false, fmt.Errorf("nil i2c-dev device")
	}

	return true, nil
}

// Addr returns the 7-bit slave address the receiver b is bound to.
func (b *Bus) Addr() uint16 { return b.addr }

// Close will clean up any resources and close the character device.
//
// Returns an error if the device is invalid or failed to close gracefully.
func (b *Bus) Close() error {

	if ok, err := b.valid(); !ok {
		return err
	}

	return b.dev.Close()
}

// Tx performs an I²C transaction with the slave at 7-bit address addr: the
// bytes in w (if any) are written, then the buffer r (if non-empty) is
// filled with bytes read from the slave. The common one-byte-command case
// is issued as a combined write-then-read exchange (repeated-START, no
// intervening STOP).
//
// Tx implements the tinygo.org/x/drivers I²C bus interface.
//
// Returns an error if the receiver is invalid, addr differs from the
// address the bus was bound to at Open(), or the exchange failed.
func (b *Bus) Tx(addr uint16, w []byte, r []byte) error {

	if ok, err := b.valid(); !ok {
		return err
	}

	if addr != b.addr {
		return fmt.Errorf("invalid slave address: 0x%02X (bus bound to 0x%02X)", addr, b.addr)
	}

	if 1 == len(w) && len(r) > 0 {
		return b.dev.ReadReg(w[0], r)
	}

	if len(w) > 0 {
		if err := b.dev.Write(w); nil != err {
			return err
		}
	}

	if len(r) > 0 {
		return b.dev.Read(r)
	}

	return nil
}
