// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package protocol

import (
	"fmt"

	"github.com/usbarmory/tamago/display/chunk"
)

// Decoder parses one packet at a time from a chunk.Reader, by single linear
// descent with no lookahead: it reads the kind byte and dispatches, reading
// each field directly into its target in wire order.
type Decoder struct {
	r             *chunk.Reader
	width, height int
	alloc         Allocator
}

// NewDecoder returns a Decoder for a screen of the given dimensions, reading
// from r. A nil alloc defaults to DefaultAllocator{}.
func NewDecoder(r *chunk.Reader, width, height int, alloc Allocator) *Decoder {
	if alloc == nil {
		alloc = DefaultAllocator{}
	}
	return &Decoder{r: r, width: width, height: height, alloc: alloc}
}

// Decode reads and returns the next packet.
//
// Three outcomes are possible:
//   - (packet, nil): a well-formed packet, fully constructed.
//   - (nil, err) where errors.Is(err, ErrDropped): an allocation failed
//     partway through the packet; the exact number of bytes the packet
//     would have occupied were still consumed, so the stream remains in
//     sync and the caller should simply decode again.
//   - (nil, err) where errors.Is(err, ErrDesync) (or err wraps the reader's
//     close/queue error): fatal. The caller cannot recover the stream
//     position and must stop reading from this Decoder.
func (d *Decoder) Decode() (*Packet, error) {
	kindByte, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}

	kind := Kind(kindByte)

	switch kind {
	case KindBacklight:
		return d.decodeBacklight()
	case KindVibration:
		return d.decodeVibration()
	case KindPing:
		return &Packet{Kind: KindPing}, nil
	case KindFrame:
		return d.decodeFrame()
	default:
		return nil, fmt.Errorf("protocol: unknown packet kind %d: %w", kindByte, ErrDesync)
	}
}

func (d *Decoder) decodeBacklight() (*Packet, error) {
	intensity, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}
	return &Packet{Kind: KindBacklight, Backlight: &Backlight{Intensity: intensity}}, nil
}

func (d *Decoder) decodeVibration() (*Packet, error) {
	durationCentis, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}
	return &Packet{Kind: KindVibration, Vibration: &Vibration{DurationCentis: durationCentis}}, nil
}

func (d *Decoder) decodeFrame() (*Packet, error) {
	encByte, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}

	var frame *Frame

	switch FrameEncoding(encByte) {
	case EncodingKeyframeRaw:
		frame, err = d.decodeKeyframeRaw()
	case EncodingKeyframeRle:
		frame, err = d.decodeKeyframeRle()
	case EncodingDeltaframeRaw:
		frame, err = d.decodeDeltaframeRaw()
	case EncodingDeltaframeRle:
		frame, err = d.decodeDeltaframeRle()
	default:
		return nil, fmt.Errorf("protocol: unknown frame encoding %d: %w", encByte, ErrDesync)
	}

	if err != nil {
		return nil, err
	}

	return &Packet{Kind: KindFrame, Frame: frame}, nil
}

func (d *Decoder) decodeKeyframeRaw() (*Frame, error) {
	n := d.width * d.height

	pixels, err := d.alloc.AllocPixels(n)
	if err != nil {
		if derr := d.r.Discard(n * 2); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("protocol: keyframe raw pixel buffer: %w: %v", ErrDropped, err)
	}

	for i := range pixels {
		v, err := d.r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		pixels[i] = v
	}

	return &Frame{Encoding: EncodingKeyframeRaw, Pixels: pixels}, nil
}

func (d *Decoder) decodeKeyframeRle() (*Frame, error) {
	nRuns, err := d.r.ReadU16LE()
	if err != nil {
		return nil, err
	}

	runs, err := d.alloc.AllocRuns(int(nRuns))
	if err != nil {
		if derr := d.r.Discard(int(nRuns) * 3); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("protocol: keyframe rle run list: %w: %v", ErrDropped, err)
	}

	for i := range runs {
		count, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("protocol: zero-count rle run: %w", ErrDesync)
		}
		color, err := d.r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		runs[i] = RleRun{Count: count, RGB565: color}
	}

	return &Frame{Encoding: EncodingKeyframeRle, Runs: runs}, nil
}

// discardRawRect consumes one DeltaframeRaw rectangle's bytes (header and
// pixel data) without storing anything, used once the packet is already
// known to be dropped so that stream position tracking does not stop at the
// first failed allocation: every remaining rectangle's bytes must still be
// walked to keep the stream in sync.
func (d *Decoder) discardRawRect() error {
	if _, err := d.r.ReadU8(); err != nil { // x
		return err
	}
	if _, err := d.r.ReadU8(); err != nil { // y
		return err
	}
	w, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	h, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	return d.r.Discard(int(w) * int(h) * 2)
}

func (d *Decoder) decodeDeltaframeRaw() (*Frame, error) {
	nRectsByte, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}
	n := int(nRectsByte)

	rects, err := d.alloc.AllocRects(n)
	if err != nil {
		for i := 0; i < n; i++ {
			if derr := d.discardRawRect(); derr != nil {
				return nil, derr
			}
		}
		return nil, fmt.Errorf("protocol: deltaframe raw rectangle list: %w: %v", ErrDropped, err)
	}

	var dropErr error

	for i := 0; i < n; i++ {
		x, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		y, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		w, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		h, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}

		nPixels := int(w) * int(h)

		if dropErr != nil {
			if err := d.r.Discard(nPixels * 2); err != nil {
				return nil, err
			}
			continue
		}

		pixels, aerr := d.alloc.AllocPixels(nPixels)
		if aerr != nil {
			dropErr = fmt.Errorf("protocol: deltaframe raw rect %d pixel buffer: %w: %v", i, ErrDropped, aerr)
			if err := d.r.Discard(nPixels * 2); err != nil {
				return nil, err
			}
			continue
		}

		for j := range pixels {
			v, err := d.r.ReadU16LE()
			if err != nil {
				return nil, err
			}
			pixels[j] = v
		}

		rects[i] = DamagedRect{
			Rectangle: Rectangle{Left: x, Top: y, Width: w, Height: h},
			Pixels:    pixels,
		}
	}

	if dropErr != nil {
		return nil, dropErr
	}

	return &Frame{Encoding: EncodingDeltaframeRaw, Rects: rects}, nil
}

// discardRleRect is discardRawRect's counterpart for DeltaframeRle.
func (d *Decoder) discardRleRect() error {
	for i := 0; i < 4; i++ { // x, y, w, h
		if _, err := d.r.ReadU8(); err != nil {
			return err
		}
	}
	nRuns, err := d.r.ReadU16LE()
	if err != nil {
		return err
	}
	return d.r.Discard(int(nRuns) * 3)
}

func (d *Decoder) decodeDeltaframeRle() (*Frame, error) {
	nRects, err := d.r.ReadU16LE()
	if err != nil {
		return nil, err
	}
	n := int(nRects)

	rects, err := d.alloc.AllocRects(n)
	if err != nil {
		for i := 0; i < n; i++ {
			if derr := d.discardRleRect(); derr != nil {
				return nil, derr
			}
		}
		return nil, fmt.Errorf("protocol: deltaframe rle rectangle list: %w: %v", ErrDropped, err)
	}

	var dropErr error

	for i := 0; i < n; i++ {
		x, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		y, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		w, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		h, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}

		nRuns, err := d.r.ReadU16LE()
		if err != nil {
			return nil, err
		}

		if dropErr != nil {
			if err := d.r.Discard(int(nRuns) * 3); err != nil {
				return nil, err
			}
			continue
		}

		runs, aerr := d.alloc.AllocRuns(int(nRuns))
		if aerr != nil {
			dropErr = fmt.Errorf("protocol: deltaframe rle rect %d run list: %w: %v", i, ErrDropped, aerr)
			if err := d.r.Discard(int(nRuns) * 3); err != nil {
				return nil, err
			}
			continue
		}

		for j := range runs {
			count, err := d.r.ReadU8()
			if err != nil {
				return nil, err
			}
			if count == 0 {
				return nil, fmt.Errorf("protocol: zero-count rle run in rect %d: %w", i, ErrDesync)
			}
			color, err := d.r.ReadU16LE()
			if err != nil {
				return nil, err
			}
			runs[j] = RleRun{Count: count, RGB565: color}
		}

		rects[i] = DamagedRect{
			Rectangle: Rectangle{Left: x, Top: y, Width: w, Height: h},
			Runs:      runs,
		}
	}

	if dropErr != nil {
		return nil, dropErr
	}

	return &Frame{Encoding: EncodingDeltaframeRle, Rects: rects}, nil
}
