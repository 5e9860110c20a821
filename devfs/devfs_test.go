package devfs

import (
	"fmt"
	"testing"
)

func TestOpenMissing(t *testing.T) {

	if b, err := Open("/dev/i2c-devfs-test-missing", 0x48); nil == err {
		b.Close()
		t.Errorf("[ ] FAIL: Open(missing): expected error, got nil")
	} else {
		t.Logf("[ ] PASS: Open(missing) == %v", err)
	}
}

func TestNilReceiver(t *testing.T) {

	var b *Bus

	want := fmt.Errorf("nil Bus")

	if e := b.Close(); (nil == e) || (want.Error() != e.Error()) {
		t.Errorf("[ ] FAIL: (*Bus)(nil).Close() == %+v != %+v", e, want)
	}

	if e := b.Tx(0x48, []byte{0x00}, make([]byte, 1)); (nil == e) || (want.Error() != e.Error()) {
		t.Errorf("[ ] FAIL: (*Bus)(nil).Tx() == %+v != %+v", e, want)
	}
}

func TestTxUnopened(t *testing.T) {

	// receiver validity is checked before the address binding
	b := &Bus{addr: 0x48}

	want := fmt.Errorf("nil i2c-dev device")

	if e := b.Tx(0x49, []byte{0x00}, make([]byte, 1)); (nil == e) || (want.Error() != e.Error()) {
		t.Errorf("[ ] FAIL: Tx(0x49) == %+v != %+v", e, want)
	}

	if 0x48 != b.Addr() {
		t.Errorf("[ ] FAIL: Addr() == 0x%02X != 0x48", b.Addr())
	}
}
