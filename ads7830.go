// Package ads7830 provides a driver for the Texas Instruments ADS7830
// 8-channel, 8-bit analog-to-digital converter with I²C interface.
//
// The driver is transport-agnostic. It accepts any bus implementing the
// drivers.I2C interface from tinygo.org/x/drivers, which is satisfied by
// machine.I2C on TinyGo targets as well as the mcp2221a (USB) and devfs
// (Linux i2c-dev) packages in this module.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/ads7830.pdf
package ads7830

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// DefaultAddr is the 7-bit I²C slave address of the ADS7830 with both
// address pins tied to ground. The A1:A0 pins offset this by 0-3.
const DefaultAddr uint16 = 0x48

// ChannelCount is the number of analog input channels on the device.
const ChannelCount = 8

// PowerMode represents one of the enumerated constants selecting the
// power-down state of the internal reference and the converter between
// conversions (PD1:PD0 bits of the command byte).
type PowerMode byte

// Constants for enumerated power-down modes used when composing the
// command byte.
const (
	PowerDown    PowerMode = 0x00 // power down between conversions
	RefOffADCOn  PowerMode = 0x01 // internal reference off, converter on
	RefOnADCOff  PowerMode = 0x02 // internal reference on, converter off
	RefOnADCOn   PowerMode = 0x03 // internal reference on, converter on
	PowerDefault           = RefOnADCOn
)

// isPowerValid verifies the given PowerMode p is one of the recognized
// enumerated power-down modes.
func isPowerValid(p PowerMode) bool {
	return p <= RefOnADCOn
}

// -----------------------------------------------------------------------------
// -- COMMAND ------------------------------------------------------- [start] --

// selSingle is the SD bit of the selector nibble: set for single-ended
// conversions, clear for differential.
const selSingle byte = 0x08

// selSingleEnded returns the selector nibble for a single-ended conversion
// on channel ch, measured relative to ground.
// The channel bits C2:C0 are not a plain binary index: the multiplexer
// addresses even channels first (C2:C1 = ch/2) with C0 selecting the odd
// member of the pair.
func selSingleEnded(ch byte) byte {
	return selSingle | (ch >> 1) | ((ch & 0x01) << 2)
}

// selDifferential returns the selector nibble for a differential conversion
// with positive input pos and negative input pos^1.
// The converter only supports its four fixed input pairs (0/1, 2/3, 4/5,
// 6/7), in either polarity; which member of the pair is the positive input
// is selected by C0.
func selDifferential(pos byte) byte {
	return (pos >> 1) | ((pos & 0x01) << 2)
}

// command composes the command byte sent to the device: selector nibble in
// bits 7:4, power-down mode in bits 3:2. Bits 1:0 are unused.
func command(sel byte, power PowerMode) byte {
	return (sel << 4) | (byte(power) << 2)
}

// -- COMMAND --------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------

// -----------------------------------------------------------------------------
// -- DEVICE -------------------------------------------------------- [start] --

// Device is the primary object used for interacting with the converter.
// The struct wraps a caller-owned I²C bus along with the chip's slave
// address. The bus is shared, not owned: the driver performs no locking of
// its own, so access to a bus shared between goroutines or devices must be
// serialized by the caller.
type Device struct {
	bus   drivers.I2C
	addr  uint16
	power PowerMode
}

// New returns a new Device on the given I²C bus at the given 7-bit slave
// address. Use DefaultAddr unless the chip's address pins are strapped
// otherwise. The bus must already be configured.
func New(bus drivers.I2C, addr uint16) *Device {
	return &Device{
		bus:   bus,
		addr:  addr,
		power: PowerDefault,
	}
}

// valid verifies the receiver and I²C bus are both not nil.
//
// Returns false with a descriptive error if any required field is nil.
func (d *Device) valid() (bool, error) {

	if nil == d {
		return false, fmt.Errorf("nil ADS7830")
	}

	if nil == d.bus {
		return false, fmt.Errorf("nil I²C bus")
	}

	return true, nil
}

// Addr returns the 7-bit I²C slave address of the receiver d.
func (d *Device) Addr() uint16 { return d.addr }

// SetPower selects the power-down mode encoded into all subsequently
// composed command bytes. The change takes effect with the next conversion;
// no bus traffic is generated.
//
// Returns an error if the receiver is invalid or the mode is not one of the
// PowerMode constants.
func (d *Device) SetPower(power PowerMode) error {

	if ok, err := d.valid(); !ok {
		return err
	}

	if !isPowerValid(power) {
		return fmt.Errorf("invalid power mode: %d", power)
	}

	d.power = power
	return nil
}

// ReadRaw writes the given command byte to the device and reads back the
// 8-bit result of the conversion it selects. The write and read compose a
// single bus transaction (write command, repeated-START, read one byte).
//
// Returns an error if the receiver is invalid. Any transport error (e.g. no
// acknowledgment from the slave address) is returned to the caller
// unmodified, and no retry is attempted.
func (d *Device) ReadRaw(cmd byte) (byte, error) {

	if ok, err := d.valid(); !ok {
		return 0, err
	}

	var buf [1]byte
	if err := d.bus.Tx(d.addr, []byte{cmd}, buf[:]); nil != err {
		return 0, err
	}

	return buf[0], nil
}

// Sample performs a single-ended conversion on the given channel (0-7) and
// returns the raw 8-bit result.
//
// Returns an error if the channel is out of range, or if the bus
// transaction failed.
func (d *Device) Sample(ch byte) (byte, error) {

	if ch >= ChannelCount {
		return 0, fmt.Errorf("invalid channel: %d", ch)
	}

	return d.ReadRaw(command(selSingleEnded(ch), d.power))
}

// SampleDiff performs a differential conversion measuring the voltage on
// channel pos relative to channel neg and returns the raw 8-bit result.
// The two channels must be distinct members of one of the converter's fixed
// input pairs (0/1, 2/3, 4/5, 6/7); either polarity is accepted.
//
// Returns an error if either channel is out of range, the channels do not
// form a supported pair, or if the bus transaction failed.
func (d *Device) SampleDiff(pos byte, neg byte) (byte, error) {

	if pos >= ChannelCount {
		return 0, fmt.Errorf("invalid channel: %d", pos)
	}

	if neg >= ChannelCount {
		return 0, fmt.Errorf("invalid channel: %d", neg)
	}

	if neg != (pos ^ 0x01) {
		return 0, fmt.Errorf("invalid channel pair: (%d, %d)", pos, neg)
	}

	return d.ReadRaw(command(selDifferential(pos), d.power))
}

// -- DEVICE ---------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------
