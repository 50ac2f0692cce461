// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package present

import (
	"fmt"
	"testing"

	"github.com/usbarmory/tamago/display/protocol"
)

// call is one recorded driver invocation, used to assert the exact
// operation sequence a frame produces.
type call struct {
	op     string
	window protocol.Rectangle
	n      int
	color  uint16
}

type fakeDriver struct {
	calls []call
}

func (f *fakeDriver) SetWindow(w protocol.Rectangle) error {
	f.calls = append(f.calls, call{op: "set_window", window: w})
	return nil
}

func (f *fakeDriver) WritePixels(pixels []uint16) error {
	f.calls = append(f.calls, call{op: "write_pixels", n: len(pixels)})
	return nil
}

func (f *fakeDriver) WriteRun(count int, rgb565 uint16) error {
	f.calls = append(f.calls, call{op: "write_run", n: count, color: rgb565})
	return nil
}

func (f *fakeDriver) Present() error {
	f.calls = append(f.calls, call{op: "present"})
	return nil
}

func seq(calls []call) string {
	s := ""
	for _, c := range calls {
		s += fmt.Sprintf("%s ", c.op)
	}
	return s
}

// TestPresentDeltaframeRawOrdersWindowThenPixelsPerRect checks that each
// rectangle gets its own set-window/write-pixels pair, in order, with a
// single present call at the end.
func TestPresentDeltaframeRawOrdersWindowThenPixelsPerRect(t *testing.T) {
	frame := &protocol.Frame{
		Encoding: protocol.EncodingDeltaframeRaw,
		Rects: []protocol.DamagedRect{
			{Rectangle: protocol.Rectangle{Left: 0, Top: 0, Width: 1, Height: 1}, Pixels: []uint16{0xAAAA}},
			{Rectangle: protocol.Rectangle{Left: 5, Top: 5, Width: 1, Height: 1}, Pixels: []uint16{0xBBBB}},
		},
	}

	d := &fakeDriver{}
	if err := Frame(frame, 8, 8, d); err != nil {
		t.Fatal(err)
	}

	want := "set_window write_pixels set_window write_pixels present "
	if got := seq(d.calls); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if d.calls[0].window != frame.Rects[0].Rectangle {
		t.Errorf("rect 0 window = %+v", d.calls[0].window)
	}
	if d.calls[2].window != frame.Rects[1].Rectangle {
		t.Errorf("rect 1 window = %+v", d.calls[2].window)
	}

	// present must be called exactly once, after the loop.
	var presents int
	for _, c := range d.calls {
		if c.op == "present" {
			presents++
		}
	}
	if presents != 1 {
		t.Errorf("got %d present() calls, want 1", presents)
	}
	if d.calls[len(d.calls)-1].op != "present" {
		t.Error("present() was not the final call")
	}
}

func TestPresentKeyframeRaw(t *testing.T) {
	frame := &protocol.Frame{
		Encoding: protocol.EncodingKeyframeRaw,
		Pixels:   []uint16{1, 2, 3, 4},
	}

	d := &fakeDriver{}
	if err := Frame(frame, 2, 2, d); err != nil {
		t.Fatal(err)
	}

	want := "set_window write_pixels present "
	if got := seq(d.calls); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	full := protocol.Rectangle{Left: 0, Top: 0, Width: 2, Height: 2}
	if d.calls[0].window != full {
		t.Errorf("got window %+v, want %+v", d.calls[0].window, full)
	}
	if d.calls[1].n != 4 {
		t.Errorf("got %d pixels written, want 4", d.calls[1].n)
	}
}

func TestPresentKeyframeRle(t *testing.T) {
	frame := &protocol.Frame{
		Encoding: protocol.EncodingKeyframeRle,
		Runs:     []protocol.RleRun{{Count: 16, RGB565: 0xBBAA}},
	}

	d := &fakeDriver{}
	if err := Frame(frame, 4, 4, d); err != nil {
		t.Fatal(err)
	}

	want := "set_window write_run present "
	if got := seq(d.calls); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if d.calls[1].n != 16 || d.calls[1].color != 0xBBAA {
		t.Errorf("got run %+v", d.calls[1])
	}
}

func TestPresentDeltaframeRle(t *testing.T) {
	frame := &protocol.Frame{
		Encoding: protocol.EncodingDeltaframeRle,
		Rects: []protocol.DamagedRect{
			{
				Rectangle: protocol.Rectangle{Left: 1, Top: 1, Width: 2, Height: 2},
				Runs:      []protocol.RleRun{{Count: 4, RGB565: 0x1234}},
			},
		},
	}

	d := &fakeDriver{}
	if err := Frame(frame, 8, 8, d); err != nil {
		t.Fatal(err)
	}

	want := "set_window write_run present "
	if got := seq(d.calls); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPresentUnknownEncoding(t *testing.T) {
	frame := &protocol.Frame{Encoding: protocol.FrameEncoding(0xFE)}

	d := &fakeDriver{}
	if err := Frame(frame, 1, 1, d); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}
