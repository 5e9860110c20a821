package ads7830

import "fmt"

// AnalogIn is a lightweight read-only view of one analog input, bound to a
// Device and a channel (or differential channel pair) at construction.
// It holds no state besides its configuration, and may be created once per
// logical input and queried repeatedly.
//
// Values are scaled to the 16-bit range shared by analog input abstractions
// of every converter resolution, so that inputs backed by converters of
// different bit depths are interchangeable to the caller.
type AnalogIn struct {
	adc  *Device
	pos  byte
	diff bool
}

// NewAnalogIn returns a new single-ended AnalogIn bound to the given
// channel (0-7) of device adc.
//
// Returns an error if adc is nil or the channel is out of range.
func NewAnalogIn(adc *Device, ch byte) (*AnalogIn, error) {

	if nil == adc {
		return nil, fmt.Errorf("nil ADS7830")
	}

	if ch >= ChannelCount {
		return nil, fmt.Errorf("invalid channel: %d", ch)
	}

	return &AnalogIn{adc: adc, pos: ch}, nil
}

// NewDifferential returns a new differential AnalogIn measuring channel pos
// relative to channel neg on device adc. The two channels must be distinct
// members of one of the converter's fixed input pairs (0/1, 2/3, 4/5, 6/7).
//
// Returns an error if adc is nil, either channel is out of range, or the
// channels do not form a supported pair.
func NewDifferential(adc *Device, pos byte, neg byte) (*AnalogIn, error) {

	if nil == adc {
		return nil, fmt.Errorf("nil ADS7830")
	}

	if pos >= ChannelCount {
		return nil, fmt.Errorf("invalid channel: %d", pos)
	}

	if neg >= ChannelCount {
		return nil, fmt.Errorf("invalid channel: %d", neg)
	}

	if neg != (pos ^ 0x01) {
		return nil, fmt.Errorf("invalid channel pair: (%d, %d)", pos, neg)
	}

	return &AnalogIn{adc: adc, pos: pos, diff: true}, nil
}

// Raw performs a conversion on the receiver's configured input and returns
// the unscaled 8-bit result.
//
// Returns an error if the receiver is invalid; transport errors from the
// underlying bus are returned unmodified.
func (a *AnalogIn) Raw() (byte, error) {

	if nil == a || nil == a.adc {
		return 0, fmt.Errorf("nil AnalogIn")
	}

	if a.diff {
		return a.adc.SampleDiff(a.pos, a.pos^0x01)
	}

	return a.adc.Sample(a.pos)
}

// Value performs a conversion on the receiver's configured input and
// returns the result scaled to the 16-bit range (raw × 257, so that a
// full-scale 8-bit reading maps to a full-scale 16-bit value).
// Each call is an independent conversion: no smoothing, averaging, or
// caching is performed.
//
// Returns an error under the same conditions as Raw().
func (a *AnalogIn) Value() (uint16, error) {

	raw, err := a.Raw()
	if nil != err {
		return 0, err
	}

	return uint16(raw) * 257, nil
}
