package mcp2221a

import (
	"fmt"
	"testing"
)

func TestNilReceiver(t *testing.T) {

	var m *MCP2221A

	type TC struct {
		name string
		call func() error
	}

	tc := []TC{
		{name: "Close()", call: func() error { return m.Close() }},
		{name: "SetBaud()", call: func() error { return m.SetBaud(BaudRate) }},
		{name: "Tx()", call: func() error { return m.Tx(0x48, []byte{0x00}, make([]byte, 1)) }},
	}

	want := fmt.Errorf("nil MCP2221A")

	for _, c := range tc {

		e := c.call()
		d := fmt.Sprintf("(*MCP2221A)(nil).%s == %+v", c.name, e)

		if (nil != e) && (want.Error() == e.Error()) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | {%+v} != {%+v}", d, e, want)
		}
	}
}

func TestUnopened(t *testing.T) {

	// non-nil handle with no USB device attached: receiver validity is
	// checked before anything touches the bus
	m := &MCP2221A{}

	want := fmt.Errorf("nil USB HID device")

	type TC struct {
		name string
		call func() error
	}

	tc := []TC{
		{name: "Close()", call: func() error { return m.Close() }},
		{name: "SetBaud(BaudRate)", call: func() error { return m.SetBaud(BaudRate) }},
		{name: "Tx(0x48, w, r)", call: func() error { return m.Tx(0x48, []byte{0x00}, make([]byte, 1)) }},
	}

	for _, c := range tc {

		e := c.call()
		d := fmt.Sprintf("(&MCP2221A{}).%s == %+v", c.name, e)

		if (nil != e) && (want.Error() == e.Error()) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | {%+v} != {%+v}", d, e, want)
		}
	}
}

func TestNewStatus(t *testing.T) {

	if nil != newStatus(nil) {
		t.Errorf("[ ] FAIL: newStatus(nil) != nil")
	}

	if nil != newStatus(make([]byte, msgSz-1)) {
		t.Errorf("[ ] FAIL: newStatus([%d]byte) != nil", msgSz-1)
	}

	msg := makeMsg()
	msg[2] = 0x10
	msg[3] = 0x21
	msg[8] = i2cStateAddrNACK

	s := newStatus(msg)
	if nil == s {
		t.Fatalf("[ ] FAIL: newStatus([%d]byte) == nil", msgSz)
	}

	if !s.ok || 0x10 != s.i2cCancel || 0x21 != s.i2cSpdChg || i2cStateAddrNACK != s.i2cState {
		t.Errorf("[ ] FAIL: newStatus() == %+v", s)
	}
}

func TestI2CState(t *testing.T) {

	type TC struct {
		state   byte
		nack    bool
		timeout bool
	}

	tc := []TC{
		{state: wordClr, nack: false, timeout: false},
		{state: i2cStateAddrNACK, nack: true, timeout: false},
		{state: i2cStateStartTimeout, nack: false, timeout: true},
		{state: i2cStateRepStartTimeout, nack: false, timeout: true},
		{state: i2cStateStopTimeout, nack: false, timeout: true},
		{state: i2cStateReadTimeout, nack: false, timeout: true},
		{state: i2cStateWriteTimeout, nack: false, timeout: true},
		{state: i2cStateAddrTimeout, nack: false, timeout: true},
		{state: i2cStateReadComplete, nack: false, timeout: false},
		{state: i2cStateWritingNoStop, nack: false, timeout: false},
	}

	for _, c := range tc {

		n := i2cStateNACK(c.state)
		o := i2cStateTimeout(c.state)
		d := fmt.Sprintf("i2cState(0x%02X) == (nack=%v, timeout=%v)", c.state, n, o)

		if (c.nack == n) && (c.timeout == o) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | != (nack=%v, timeout=%v)", d, c.nack, c.timeout)
		}
	}
}
