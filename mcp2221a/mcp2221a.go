// Package mcp2221a implements the drivers.I2C bus interface on top of the
// Microchip MCP2221A USB to I²C protocol converter, so that I²C slave
// drivers such as ads7830 can run on a desktop host over USB.
// The bridge is a USB HID-class device; only the I²C master function is
// exposed here.
//
// Datasheet: http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
//
// USB HID support provided by: https://github.com/karalabe/hid
package mcp2221a

import (
	"fmt"
	"time"

	usb "github.com/karalabe/hid"
	"tinygo.org/x/drivers"
)

// VID and PID are the official vendor and product identifiers assigned by
// the USB-IF.
const (
	VID = 0x04D8 // 16-bit vendor ID for Microchip Technology Inc.
	PID = 0x00DD // 16-bit product ID for the Microchip MCP2221A.
)

// msgSz is the size (in bytes) of all command and response messages.
const msgSz = 64

// clkHz is the internal clock frequency of the MCP2221A.
const clkHz = 12000000

// BaudRate is the default I²C bus clock rate (BPS).
const BaudRate = 100000

// wordClr is the logical false value for a single word (byte) in a message.
const wordClr byte = 0x00

// makeMsg creates a new zero'd slice with required length of command and
// response messages, both of which are always 64 bytes.
func makeMsg() []byte { return make([]byte, msgSz) }

// Constants for all recognized commands (and responses). These are sent as
// the first word in all command messages, and are echoed back as the first
// word in all response messages.
const (
	cmdStatus    byte = 0x10
	cmdSetParams byte = 0x10

	cmdI2CWrite         byte = 0x90
	cmdI2CWriteRepStart byte = 0x92
	cmdI2CWriteNoStop   byte = 0x94
	cmdI2CRead          byte = 0x91
	cmdI2CReadRepStart  byte = 0x93
	cmdI2CReadGetData   byte = 0x40
)

// Private constants associated with the I²C engine.
const (
	i2cReadMax  = 60 // maximum number of bytes we can read at a time
	i2cWriteMax = 60 // maximum number of bytes we can write at a time

	i2cStateStartTimeout    byte = 0x12
	i2cStateRepStartTimeout byte = 0x17
	i2cStateStopTimeout     byte = 0x62

	i2cStateAddrTimeout byte = 0x23
	i2cStateAddrNACK    byte = 0x25

	i2cStatePartialData   byte = 0x41
	i2cStateWriteTimeout  byte = 0x44
	i2cStateWritingNoStop byte = 0x45
	i2cStateReadTimeout   byte = 0x52
	i2cStateReadPartial   byte = 0x54
	i2cStateReadComplete  byte = 0x55

	i2cStateReadError byte = 0x7F

	i2cRetry = 50 // maximum number of polls permitted for a single transfer
)

// i2cStateNACK tests if the given internal I²C state machine status
// indicates an I²C NACK from a requested slave address.
// This is considered an I²C fatal error.
func i2cStateNACK(state byte) bool {
	return (i2cStateAddrNACK == state)
}

// i2cStateTimeout tests if the given internal I²C state machine status
// indicates any type of I²C communication timeout.
// This is considered an I²C fatal error.
func i2cStateTimeout(state byte) bool {
	return (i2cStateStartTimeout == state) ||
		(i2cStateRepStartTimeout == state) ||
		(i2cStateStopTimeout == state) ||
		(i2cStateReadTimeout == state) ||
		(i2cStateWriteTimeout == state) ||
		(i2cStateAddrTimeout == state)
}

// MCP2221A is an open connection to one MCP2221A bridge, exposing its I²C
// master as a drivers.I2C bus.
// If multiple bridges are connected to the host PC, the index of the
// desired target can be determined with Attached() and passed to Open().
// An index of 0 will use the first device found.
// Call Close() on the bus when finished to also close the USB connection.
type MCP2221A struct {
	dev   *usb.Device
	index byte
}

// Tx (and therefore the bus) satisfies the tinygo.org/x/drivers I²C bus
// interface.
var _ drivers.I2C = (*MCP2221A)(nil)

// Attached returns a slice of all connected USB HID device descriptors
// matching the MCP2221A vendor and product IDs.
//
// Returns an empty slice if no devices were found. See the hid package
// documentation for details on inspecting the returned objects.
func Attached() []usb.DeviceInfo {

	var info []usb.DeviceInfo

	for _, i := range usb.Enumerate(VID, PID) {
		info = append(info, i)
	}

	return info
}

// Open returns a new MCP2221A bus enumerated at the given index (an index
// of 0 will use the first device found), with the I²C engine configured for
// the default baud rate.
//
// Returns an error if index is out of range (according to Attached()), if
// the USB HID device could not be claimed or opened, or if the I²C engine
// could not be configured.
func Open(idx byte) (*MCP2221A, error) {

	info := Attached()
	if int(idx) >= len(info) {
		return nil, fmt.Errorf("device index %d out of range [0, %d]", idx, len(info)-1)
	}

	dev, err := info[idx].Open()
	if nil != err {
		return nil, err
	}

	m := &MCP2221A{dev: dev, index: idx}

	if err := m.SetBaud(BaudRate); nil != err {
		m.Close()
		return nil, fmt.Errorf("SetBaud(): %v", err)
	}

	return m, nil
}

// valid verifies the receiver and USB HID device are both not nil.
//
// Returns false with a descriptive error if any required field is nil.
func (m *MCP2221A) valid() (bool, error) {

	if nil == m {
		return false, fmt.Errorf("nil MCP2221A")
	}

	if nil == m.dev {
		return false, fmt.Errorf("nil USB HID device")
	}

	return true, nil
}

// Close will clean up any resources and close the USB HID connection.
//
// Returns an error if the USB HID device is invalid or failed to close
// gracefully.
func (m *MCP2221A) Close() error {

	if ok, err := m.valid(); !ok {
		return err
	}

	if err := m.dev.Close(); nil != err {
		return err
	}
	return nil
}

// send transmits an MCP2221A command message and returns the response
// message. The data argument is a byte slice created by makeMsg(), and the
// cmd argument is one of the recognized command byte constants. The cmd
// byte is inserted into the slice at the appropriate position
// automatically.
//
// A nil slice is returned with an error if the receiver is invalid or if
// the USB HID device could not be written to or read from.
// If any data was successfully read from the USB HID device, then that data
// slice is returned along with an error if fewer than expected bytes were
// received or if the reserved status byte (common to all response messages)
// does not indicate success.
func (m *MCP2221A) send(cmd byte, data []byte) ([]byte, error) {

	if ok, err := m.valid(); !ok {
		return nil, err
	}

	data[0] = cmd
	if _, err := m.dev.Write(data); nil != err {
		return nil, fmt.Errorf("Write([cmd=0x%02X]): %v", cmd, err)
	}

	rsp := makeMsg()
	if recv, err := m.dev.Read(rsp); nil != err {
		return nil, fmt.Errorf("Read([cmd=0x%02X]): %v", cmd, err)
	} else {
		if recv < msgSz {
			return rsp, fmt.Errorf("Read([cmd=0x%02X]): short read (%d of %d bytes)", cmd, recv, msgSz)
		}
		if rsp[0] != cmd || rsp[1] != wordClr {
			return rsp, fmt.Errorf("Read([cmd=0x%02X]): command failed", cmd)
		}
	}

	return rsp, nil
}

// status contains the I²C engine fields parsed from the response message of
// a status command.
type status struct {
	ok        bool
	i2cCancel byte
	i2cSpdChg byte
	i2cState  byte
}

// newStatus parses the response message of a status command.
//
// Returns a pointer to a newly-created status object on success, or nil if
// the given response message is nil or has inadequate length.
func newStatus(msg []byte) *status {
	if nil == msg || len(msg) < msgSz {
		return nil
	}
	return &status{
		ok:        (0 == msg[1]),
		i2cCancel: msg[2],
		i2cSpdChg: msg[3],
		i2cState:  msg[8],
	}
}

// status sends a status command request, parsing the response into an
// object referred to by the return value.
//
// Returns a pointer to the parsed object on success, or nil along with an
// error if the receiver is invalid or the status command could not be sent.
func (m *MCP2221A) status() (*status, error) {

	if ok, err := m.valid(); !ok {
		return nil, err
	}

	cmd := makeMsg()
	if rsp, err := m.send(cmdStatus, cmd); nil != err {
		return nil, fmt.Errorf("send(): %v", err)
	} else {
		return newStatus(rsp), nil
	}
}

// SetBaud configures the I²C bus clock divider calculated from a given baud
// rate (BPS). If in doubt, use global constant BaudRate.
//
// Returns an error if the receiver is invalid, the given baud rate is
// invalid, the set-parameters command could not be sent, or if an I²C
// transfer is currently in-progress.
func (m *MCP2221A) SetBaud(baud uint32) error {

	if ok, err := m.valid(); !ok {
		return err
	}

	if baud > clkHz/3 || baud < clkHz/258 {
		return fmt.Errorf("invalid baud rate: %d", baud)
	}

	cmd := makeMsg()
	cmd[3] = 0x20
	cmd[4] = byte(clkHz/baud - 3)

	if rsp, err := m.send(cmdSetParams, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	} else {
		stat := newStatus(rsp)
		if 0x21 == stat.i2cSpdChg {
			return fmt.Errorf("transfer in progress")
		}
	}

	return nil
}

// cancel sends a set-parameters command to abort any I²C transfer currently
// in progress, returning the engine to idle.
//
// Returns an error if the receiver is invalid, or if the command could not
// be sent.
func (m *MCP2221A) cancel() error {

	if ok, err := m.valid(); !ok {
		return err
	}

	cmd := makeMsg()
	cmd[2] = 0x10

	if rsp, err := m.send(cmdSetParams, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	} else {
		stat := newStatus(rsp)
		if 0x10 == stat.i2cCancel {
			time.Sleep(300 * time.Microsecond)
		}
	}

	return nil
}

// idle verifies the I²C engine is ready for a new transfer, cancelling any
// stale transfer left over from a previous (failed) exchange.
//
// Returns an error if the receiver is invalid, the engine status could not
// be read, the previous transfer ended in a slave NACK, or a stale transfer
// could not be cancelled.
func (m *MCP2221A) idle(addr uint16) error {

	stat, err := m.status()
	if nil != err {
		return fmt.Errorf("status(): %v", err)
	}

	if wordClr != stat.i2cState && i2cStateWritingNoStop != stat.i2cState {
		if i2cStateNACK(stat.i2cState) {
			return fmt.Errorf("I²C NACK from address (0x%02X)", addr)
		}
		if err := m.cancel(); nil != err {
			return fmt.Errorf("cancel(): %v", err)
		}
	}

	return nil
}

// write transmits the given bytes to I²C slave address addr.
// If argument stop is true, then an I²C STOP condition is generated on the
// bus once all bytes have been transmitted (this is the "usual" case).
// Otherwise, the STOP condition is not generated, and the bus remains
// "active" for subsequent I/O (e.g. a repeated-START read).
//
// Returns an error if any of the following occur: invalid receiver, the
// engine could not be brought to idle, could not send command message, the
// slave NACK'd, the engine timed out, or too many polls were attempted.
func (m *MCP2221A) write(stop bool, addr uint16, out []byte) error {

	if ok, err := m.valid(); !ok {
		return err
	}

	if 0 == len(out) {
		return nil
	}

	if err := m.idle(addr); nil != err {
		return err
	}

	cmdID := cmdI2CWrite
	if !stop {
		cmdID = cmdI2CWriteNoStop
	}

	cnt := len(out)
	pos := 0
	for pos < cnt {

		sz := cnt - pos
		if sz > i2cWriteMax {
			sz = i2cWriteMax
		}

		cmd := makeMsg()
		cmd[1] = byte(cnt & 0xFF)
		cmd[2] = byte((cnt >> 8) & 0xFF)
		cmd[3] = byte(addr << 1)

		copy(cmd[4:], out[pos:pos+sz])

		retry := 0
		for retry < i2cRetry {
			retry++
			if rsp, err := m.send(cmdID, cmd); nil != err {
				if nil != rsp {
					if i2cStateNACK(rsp[2]) {
						return fmt.Errorf("send(): I²C NACK from address (0x%02X)", addr)
					}
					if i2cStateTimeout(rsp[2]) {
						return fmt.Errorf("send(): I²C write timed out")
					}
				} else {
					return fmt.Errorf("send(): %v", err)
				}
				time.Sleep(300 * time.Microsecond)
			} else {
				partial := true
				for partial {
					if stat, err := m.status(); nil != err {
						return fmt.Errorf("status(): %v", err)
					} else {
						partial = i2cStatePartialData == stat.i2cState
					}
				}
				pos += sz
				break
			}
		}
		if retry >= i2cRetry {
			return fmt.Errorf("too many retries")
		}
	}

	retry := 0
	for retry < i2cRetry {
		retry++
		if stat, err := m.status(); nil != err {
			return fmt.Errorf("status(): %v", err)
		} else {
			if wordClr == stat.i2cState {
				break
			}
			if (cmdI2CWriteNoStop == cmdID) && (i2cStateWritingNoStop == stat.i2cState) {
				break
			}
			if i2cStateNACK(stat.i2cState) {
				return fmt.Errorf("status(): I²C NACK from address (0x%02X)", addr)
			}
			if i2cStateTimeout(stat.i2cState) {
				return fmt.Errorf("status(): I²C write timed out")
			}
			time.Sleep(300 * time.Microsecond)
		}
	}

	return nil
}

// read fills the given buffer with bytes received from I²C slave address
// addr. If argument rep is true, a REP-START condition is generated
// (instead of the usual START condition) to indicate we are reading data
// from a slave subaddress configured before this call to read().
//
// Returns an error if any of the following occur: invalid receiver, the
// engine could not be brought to idle, could not send command message, the
// slave NACK'd, or the engine entered an unrecoverable state.
func (m *MCP2221A) read(rep bool, addr uint16, in []byte) error {

	if ok, err := m.valid(); !ok {
		return err
	}

	cnt := len(in)
	if 0 == cnt {
		return nil
	}

	if err := m.idle(addr); nil != err {
		return err
	}

	cmd := makeMsg()
	cmd[1] = byte(cnt & 0xFF)
	cmd[2] = byte((cnt >> 8) & 0xFF)
	cmd[3] = byte((addr << 1) | 0x01)

	cmdID := cmdI2CRead
	if rep {
		cmdID = cmdI2CReadRepStart
	}

	if _, err := m.send(cmdID, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	}

	pos := 0
	for pos < cnt {

		var (
			rsp []byte
			err error
		)

		retry := 0
		for retry < i2cRetry {
			retry++
			cmd := makeMsg()
			if rsp, err = m.send(cmdI2CReadGetData, cmd); nil != err {
				return fmt.Errorf("send(): %v", err)
			} else {
				if i2cStatePartialData == rsp[1] || i2cStateReadError == rsp[3] {
					time.Sleep(300 * time.Microsecond)
					continue
				}
				if i2cStateNACK(rsp[2]) {
					return fmt.Errorf("send(): I²C NACK from address (0x%02X)", addr)
				}
				if wordClr == rsp[2] && 0 == rsp[3] {
					break
				}
				if i2cStateReadPartial == rsp[2] || i2cStateReadComplete == rsp[2] {
					break
				}
			}
		}
		if retry >= i2cRetry {
			return fmt.Errorf("too many retries")
		}

		if len(rsp) > 0 {
			sz := cnt - pos
			if sz > i2cReadMax {
				sz = i2cReadMax
			}
			copy(in[pos:], rsp[4:4+sz])
			pos += sz
		}
	}

	return nil
}

// Tx performs an I²C transaction with the slave at 7-bit address addr:
// the bytes in w (if any) are written, then the buffer r (if non-empty) is
// filled with bytes read from the slave. When both w and r are given, the
// read follows the write with a repeated-START (no intervening STOP),
// composing the standard write-then-read register exchange.
//
// Tx implements the tinygo.org/x/drivers I²C bus interface.
//
// Returns an error if the receiver is invalid or the exchange failed en
// route (slave NACK, engine timeout, or USB transport failure).
func (m *MCP2221A) Tx(addr uint16, w []byte, r []byte) error {

	if ok, err := m.valid(); !ok {
		return err
	}

	if len(w) > 0 {
		stop := 0 == len(r)
		if err := m.write(stop, addr, w); nil != err {
			return fmt.Errorf("write(): %v", err)
		}
	}

	if len(r) > 0 {
		rep := len(w) > 0
		if err := m.read(rep, addr, r); nil != err {
			return fmt.Errorf("read(): %v", err)
		}
	}

	return nil
}
