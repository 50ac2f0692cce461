// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/usbarmory/tamago/display/chunk"
)

// decoderFor splits raw across the given chunk sizes (defaulting to "all in
// one chunk" when sizes is empty) and returns a Decoder reading from them.
func decoderFor(t *testing.T, width, height int, alloc Allocator, raw []byte, sizes ...int) *Decoder {
	t.Helper()

	if len(sizes) == 0 {
		sizes = []int{len(raw)}
	}

	in := make(chan *chunk.Chunk, len(sizes))
	off := 0
	for _, n := range sizes {
		if off+n > len(raw) {
			n = len(raw) - off
		}
		in <- chunk.New(raw[off : off+n])
		off += n
	}
	close(in)

	r := chunk.NewReader(in, nil, nil)
	return NewDecoder(r, width, height, alloc)
}

func TestDecodePing(t *testing.T) {
	d := decoderFor(t, 0, 0, nil, []byte{0x07})

	pkt, err := d.Decode()
	if err != nil {
		t.Fatal(err)
	}

	if pkt.Kind != KindPing {
		t.Errorf("got kind %v, want Ping", pkt.Kind)
	}
}

func TestDecodeBacklight(t *testing.T) {
	d := decoderFor(t, 0, 0, nil, []byte{0x05, 0x80})

	pkt, err := d.Decode()
	if err != nil {
		t.Fatal(err)
	}

	if pkt.Kind != KindBacklight {
		t.Errorf("got kind %v, want Backlight", pkt.Kind)
	}
	if pkt.Backlight.Intensity != 128 {
		t.Errorf("got intensity %d, want 128", pkt.Backlight.Intensity)
	}
}

func TestEncodeTouchEvent(t *testing.T) {
	ev := TouchEvent{
		Pointer:   0,
		Timestamp: 0x01020304,
		Phase:     TouchMove,
		X:         10,
		Y:         20,
	}

	got := EncodeTouchEvent(ev)
	want := []byte{0x02, 0x00, 0x04, 0x03, 0x02, 0x01, 0x01, 0x0A, 0x14}

	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestDecodeKeyframeRaw2x2(t *testing.T) {
	raw := []byte{0x09, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	d := decoderFor(t, 2, 2, nil, raw)

	pkt, err := d.Decode()
	if err != nil {
		t.Fatal(err)
	}

	if pkt.Kind != KindFrame || pkt.Frame.Encoding != EncodingKeyframeRaw {
		t.Fatalf("got kind=%v enc=%v", pkt.Kind, pkt.Frame.Encoding)
	}

	want := []uint16{1, 2, 3, 4}
	if len(pkt.Frame.Pixels) != len(want) {
		t.Fatalf("got %d pixels, want %d", len(pkt.Frame.Pixels), len(want))
	}
	for i := range want {
		if pkt.Frame.Pixels[i] != want[i] {
			t.Errorf("pixel %d: got %#x, want %#x", i, pkt.Frame.Pixels[i], want[i])
		}
	}
}

func TestDecodeKeyframeRleSingleRunCoversFullScreen(t *testing.T) {
	raw := []byte{0x09, 0x01, 0x01, 0x00, 0x10, 0xAA, 0xBB}
	d := decoderFor(t, 4, 4, nil, raw)

	pkt, err := d.Decode()
	if err != nil {
		t.Fatal(err)
	}

	if len(pkt.Frame.Runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(pkt.Frame.Runs))
	}

	run := pkt.Frame.Runs[0]
	if run.Count != 16 || run.RGB565 != 0xBBAA {
		t.Errorf("got run %+v", run)
	}

	var sum int
	for _, r := range pkt.Frame.Runs {
		sum += int(r.Count)
	}
	if sum != 16 {
		t.Errorf("coverage sum = %d, want W*H = 16", sum)
	}
}

func TestDecodeDeltaframeRawTwoRects(t *testing.T) {
	raw := []byte{
		0x09, 0x02,
		0x02,
		0x00, 0x00, 0x01, 0x01, 0xAA, 0xAA,
		0x05, 0x05, 0x01, 0x01, 0xBB, 0xBB,
	}
	d := decoderFor(t, 8, 8, nil, raw)

	pkt, err := d.Decode()
	if err != nil {
		t.Fatal(err)
	}

	if len(pkt.Frame.Rects) != 2 {
		t.Fatalf("got %d rects, want 2", len(pkt.Frame.Rects))
	}

	r0, r1 := pkt.Frame.Rects[0], pkt.Frame.Rects[1]

	if r0.Left != 0 || r0.Top != 0 || r0.Width != 1 || r0.Height != 1 || r0.Pixels[0] != 0xAAAA {
		t.Errorf("rect 0: got %+v pixels=%x", r0.Rectangle, r0.Pixels)
	}
	if r1.Left != 5 || r1.Top != 5 || r1.Width != 1 || r1.Height != 1 || r1.Pixels[0] != 0xBBBB {
		t.Errorf("rect 1: got %+v pixels=%x", r1.Rectangle, r1.Pixels)
	}
}

func TestDecodeUnknownKindIsFatal(t *testing.T) {
	d := decoderFor(t, 0, 0, nil, []byte{0xFE})

	_, err := d.Decode()
	if !errors.Is(err, ErrDesync) {
		t.Fatalf("got %v, want ErrDesync", err)
	}
}

func TestDecodeUnknownFrameEncodingIsFatal(t *testing.T) {
	d := decoderFor(t, 0, 0, nil, []byte{0x09, 0xFE})

	_, err := d.Decode()
	if !errors.Is(err, ErrDesync) {
		t.Fatalf("got %v, want ErrDesync", err)
	}
}

func TestDecodeZeroCountRleRunRejected(t *testing.T) {
	raw := []byte{0x09, 0x01, 0x01, 0x00, 0x00, 0xAA, 0xBB}
	d := decoderFor(t, 4, 4, nil, raw)

	_, err := d.Decode()
	if !errors.Is(err, ErrDesync) {
		t.Fatalf("got %v, want ErrDesync", err)
	}
}

func TestVibrationDurationIsCentiseconds(t *testing.T) {
	d := decoderFor(t, 0, 0, nil, []byte{0x06, 0x0A})

	pkt, err := d.Decode()
	if err != nil {
		t.Fatal(err)
	}

	if pkt.Vibration.DurationCentis != 10 {
		t.Fatalf("got %d", pkt.Vibration.DurationCentis)
	}
	if got, want := pkt.Vibration.Duration(), 100*time.Millisecond; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestDecodeIsIndifferentToChunkBoundaries feeds the same byte stream split
// several different ways and checks the decoded packet is identical.
func TestDecodeIsIndifferentToChunkBoundaries(t *testing.T) {
	raw := []byte{0x09, 0x01, 0x01, 0x00, 0x10, 0xAA, 0xBB}

	splits := [][]int{
		{len(raw)},
		{1, len(raw) - 1},
		{3, 4},
		{1, 1, 1, 1, 1, 1, 1},
	}

	var want *Packet
	for i, split := range splits {
		d := decoderFor(t, 4, 4, nil, raw, split...)
		pkt, err := d.Decode()
		if err != nil {
			t.Fatalf("split %v: %v", split, err)
		}

		if i == 0 {
			want = pkt
			continue
		}

		if len(pkt.Frame.Runs) != len(want.Frame.Runs) || pkt.Frame.Runs[0] != want.Frame.Runs[0] {
			t.Errorf("split %v: got %+v, want %+v", split, pkt.Frame.Runs, want.Frame.Runs)
		}
	}
}

// TestDecodeKeyframeRawConsumesExactByteCount checks that a keyframe raw
// decode consumes exactly 1 (kind) + 1 (encoding) + 2*W*H bytes, with
// nothing left over.
func TestDecodeKeyframeRawConsumesExactByteCount(t *testing.T) {
	raw := []byte{0x09, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00, 0xFF}
	in := make(chan *chunk.Chunk, 1)
	in <- chunk.New(raw)
	close(in)

	r := chunk.NewReader(in, nil, nil)
	d := NewDecoder(r, 2, 2, nil)

	if _, err := d.Decode(); err != nil {
		t.Fatal(err)
	}

	var trailer [1]byte
	if err := r.Read(1, trailer[:]); err != nil {
		t.Fatal(err)
	}
	if trailer[0] != 0xFF {
		t.Errorf("got %x, want trailing 0xFF byte untouched", trailer[0])
	}
}

// TestDropPreservesStreamSyncKeyframeRaw exercises the allocation-failure
// policy: when the pixel buffer allocation fails, the packet is dropped but
// the exact number of bytes it would have occupied is still consumed, so
// the next packet in the stream parses correctly.
func TestDropPreservesStreamSyncKeyframeRaw(t *testing.T) {
	raw := []byte{
		0x09, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00, // dropped keyframe raw, 2x2
		0x07, // Ping, should still parse
	}

	alloc := NewBudgetedAllocator(0)
	d := decoderFor(t, 2, 2, alloc, raw)

	_, err := d.Decode()
	if !errors.Is(err, ErrDropped) {
		t.Fatalf("got %v, want ErrDropped", err)
	}

	pkt, err := d.Decode()
	if err != nil {
		t.Fatalf("packet after drop did not parse: %v", err)
	}
	if pkt.Kind != KindPing {
		t.Errorf("got kind %v, want Ping", pkt.Kind)
	}
}

// TestDropPreservesStreamSyncDeltaframeRawCascades exercises the cascading
// discard path: the first rectangle's pixel buffer allocation succeeds, the
// second's fails, and the packet is still dropped with every byte consumed,
// so the following packet parses.
func TestDropPreservesStreamSyncDeltaframeRawCascades(t *testing.T) {
	raw := []byte{
		0x09, 0x02,
		0x02,
		0x00, 0x00, 0x01, 0x01, 0xAA, 0xAA,
		0x05, 0x05, 0x01, 0x01, 0xBB, 0xBB,
		0x07, // Ping
	}

	// Budget enough for the rect list allocation and exactly one 1x1
	// pixel buffer (2 bytes), so the second rect's allocation fails.
	alloc := NewBudgetedAllocator(8*2 + 2)
	d := decoderFor(t, 8, 8, alloc, raw)

	_, err := d.Decode()
	if !errors.Is(err, ErrDropped) {
		t.Fatalf("got %v, want ErrDropped", err)
	}

	pkt, err := d.Decode()
	if err != nil {
		t.Fatalf("packet after cascaded drop did not parse: %v", err)
	}
	if pkt.Kind != KindPing {
		t.Errorf("got kind %v, want Ping", pkt.Kind)
	}
}

// TestDropPreservesStreamSyncRectListAllocFailure exercises the case where
// the rectangle list itself cannot be allocated: every rectangle's bytes
// must still be discarded.
func TestDropPreservesStreamSyncRectListAllocFailure(t *testing.T) {
	raw := []byte{
		0x09, 0x02,
		0x02,
		0x00, 0x00, 0x01, 0x01, 0xAA, 0xAA,
		0x05, 0x05, 0x01, 0x01, 0xBB, 0xBB,
		0x07, // Ping
	}

	alloc := NewBudgetedAllocator(0)
	d := decoderFor(t, 8, 8, alloc, raw)

	_, err := d.Decode()
	if !errors.Is(err, ErrDropped) {
		t.Fatalf("got %v, want ErrDropped", err)
	}

	pkt, err := d.Decode()
	if err != nil {
		t.Fatalf("packet after drop did not parse: %v", err)
	}
	if pkt.Kind != KindPing {
		t.Errorf("got kind %v, want Ping", pkt.Kind)
	}
}

// TestTouchEventWireLayoutRoundTrips checks that the encoder's output, fed
// back through a plain field-level decode, reproduces the original value.
// The receive path never decodes TouchEvent, so this checks the wire layout
// by hand rather than through Decoder.
func TestTouchEventWireLayoutRoundTrips(t *testing.T) {
	ev := TouchEvent{Pointer: 3, Timestamp: 0xDEADBEEF, Phase: TouchUp, X: 7, Y: 9}
	raw := EncodeTouchEvent(ev)

	if Kind(raw[0]) != KindTouchEvent {
		t.Fatalf("got kind byte %#x", raw[0])
	}

	got := TouchEvent{
		Pointer:   raw[1],
		Timestamp: uint32(raw[2]) | uint32(raw[3])<<8 | uint32(raw[4])<<16 | uint32(raw[5])<<24,
		Phase:     TouchPhase(raw[6]),
		X:         raw[7],
		Y:         raw[8],
	}

	if got != ev {
		t.Errorf("got %+v, want %+v", got, ev)
	}
}

func TestEncodePong(t *testing.T) {
	raw := EncodePong()
	if len(raw) != 1 || Kind(raw[0]) != KindPong {
		t.Fatalf("got %x", raw)
	}
}
