// Remote display wire protocol
// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package protocol implements the remote-display wire codec: the
// length-prefixed, little-endian binary packet grammar exchanged between a
// host (rendering UI frames) and a display endpoint over a reliable,
// in-order byte stream such as Bluetooth SPP.
//
// The receive path parses Backlight, Vibration, Ping and Frame packets, the
// only kinds a display endpoint must handle. The send path produces Pong and
// TouchEvent packets. The remaining kind identifiers are reserved: they have
// named Kind constants, but Decoder does not decode their bodies and returns
// an ErrDesync error for them, the same as for an unknown kind byte.
package protocol

import (
	"fmt"
	"time"
)

// Kind identifies the type of a Packet on the wire. Values are fixed by the
// protocol and must not be renumbered.
type Kind uint8

const (
	KindQueryDeviceInfo     Kind = 0
	KindDeviceInfo          Kind = 1
	KindTouchEvent          Kind = 2
	KindAccelerationEvent   Kind = 3
	KindPhysicalButtonEvent Kind = 4
	KindBacklight           Kind = 5
	KindVibration           Kind = 6
	KindPing                Kind = 7
	KindPong                Kind = 8
	KindFrame               Kind = 9
)

func (k Kind) String() string {
	switch k {
	case KindQueryDeviceInfo:
		return "QueryDeviceInfo"
	case KindDeviceInfo:
		return "DeviceInfo"
	case KindTouchEvent:
		return "TouchEvent"
	case KindAccelerationEvent:
		return "AccelerationEvent"
	case KindPhysicalButtonEvent:
		return "PhysicalButtonEvent"
	case KindBacklight:
		return "Backlight"
	case KindVibration:
		return "Vibration"
	case KindPing:
		return "Ping"
	case KindPong:
		return "Pong"
	case KindFrame:
		return "Frame"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// FrameEncoding identifies how a Frame's pixel data is laid out on the wire.
type FrameEncoding uint8

const (
	EncodingKeyframeRaw    FrameEncoding = 0
	EncodingKeyframeRle    FrameEncoding = 1
	EncodingDeltaframeRaw  FrameEncoding = 2
	EncodingDeltaframeRle  FrameEncoding = 3
)

func (e FrameEncoding) String() string {
	switch e {
	case EncodingKeyframeRaw:
		return "KeyframeRaw"
	case EncodingKeyframeRle:
		return "KeyframeRle"
	case EncodingDeltaframeRaw:
		return "DeltaframeRaw"
	case EncodingDeltaframeRle:
		return "DeltaframeRle"
	default:
		return fmt.Sprintf("FrameEncoding(%d)", uint8(e))
	}
}

// TouchPhase is the lifecycle stage of a touch contact.
type TouchPhase uint8

const (
	TouchDown TouchPhase = 0
	TouchMove TouchPhase = 1
	TouchUp   TouchPhase = 2
)

func (p TouchPhase) String() string {
	switch p {
	case TouchDown:
		return "Down"
	case TouchMove:
		return "Move"
	case TouchUp:
		return "Up"
	default:
		return fmt.Sprintf("TouchPhase(%d)", uint8(p))
	}
}

// AccelerationEventKind distinguishes the reserved AccelerationEvent kind's
// sub-events. Parsing of AccelerationEvent bodies is not implemented (see
// package doc); the constants are kept so a future receive-path addition has
// a typed home.
type AccelerationEventKind uint8

const (
	AccelerationStep AccelerationEventKind = 0
	AccelerationWake AccelerationEventKind = 1
)

// Rectangle is a region of the display in device coordinates. The window it
// describes is inclusive of (Left, Top) and exclusive of
// (Left+Width, Top+Height), matching the set-window semantics of the
// display driver interface in package present.
type Rectangle struct {
	Left, Top, Width, Height uint8
}

// RleRun is a single (count, color) run-length-encoded pixel span. Count is
// carried as one byte on the wire and is therefore in range 1..255; a
// conforming encoder never emits a zero count.
type RleRun struct {
	Count  uint8
	RGB565 uint16
}

// DamagedRect is one rectangle of screen damage in a deltaframe, together
// with the pixel data that repaints it. Exactly one of Pixels or Runs is
// populated, depending on the owning Frame's Encoding.
type DamagedRect struct {
	Rectangle

	// Pixels holds Width*Height RGB565 words in row-major order, set when
	// the owning frame uses DeltaframeRaw encoding.
	Pixels []uint16

	// Runs holds the run-length-encoded span list, set when the owning
	// frame uses DeltaframeRle encoding. Sum of run counts equals
	// Width*Height.
	Runs []RleRun
}

// Frame is a decoded screen update. Depending on Encoding, either Pixels,
// Runs, or Rects carries the frame's pixel data; the other fields are nil.
type Frame struct {
	Encoding FrameEncoding

	// Pixels holds W*H RGB565 words in row-major order, covering the full
	// screen. Set only for EncodingKeyframeRaw.
	Pixels []uint16

	// Runs holds the run-length-encoded span list covering the full
	// screen in raster order. Set only for EncodingKeyframeRle.
	Runs []RleRun

	// Rects holds the damaged rectangles of a deltaframe, in the order
	// they appeared on the wire. Set only for EncodingDeltaframeRaw and
	// EncodingDeltaframeRle.
	Rects []DamagedRect
}

// Backlight sets the display backlight intensity, linear 0..255.
type Backlight struct {
	Intensity uint8
}

// Vibration requests a haptic pulse. DurationCentis is the wire value in
// units of 10ms; use Duration to obtain a time.Duration.
type Vibration struct {
	DurationCentis uint8
}

// Duration converts the wire value to a time.Duration, treating it as
// centiseconds (10ms units).
func (v Vibration) Duration() time.Duration {
	return time.Duration(v.DurationCentis) * 10 * time.Millisecond
}

// TouchEvent reports a single touch-contact sample.
type TouchEvent struct {
	Pointer   uint8
	Timestamp uint32
	Phase     TouchPhase
	X, Y      uint8
}

// DeviceInfo describes the endpoint's capabilities. No wire grammar parses
// or emits this type yet (see package doc, supplemented-features note); it
// exists as a typed home for a future DeviceInfo exchange.
type DeviceInfo struct {
	Width, Height         int
	WidthMM, HeightMM     int
	SupportsVibration     bool
	SupportsBacklight     bool
	SupportsTouch         bool
	SupportsAccelerometer bool
}

// PhysicalButtonEvent reports a physical button press. Reserved: see
// DeviceInfo's doc comment.
type PhysicalButtonEvent struct {
	Button uint8
}

// Packet is a decoded protocol message. Kind selects which of the payload
// fields is meaningful; exactly one is non-nil for the kinds this package
// decodes (Backlight, Vibration, Ping carries no payload, Frame).
type Packet struct {
	Kind Kind

	Backlight *Backlight
	Vibration *Vibration
	Frame     *Frame
}
