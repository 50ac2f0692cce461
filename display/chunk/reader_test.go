// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package chunk

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func feed(t *testing.T, parts ...[]byte) *Reader {
	t.Helper()

	in := make(chan *Chunk, len(parts))
	for _, p := range parts {
		in <- New(p)
	}
	close(in)

	return NewReader(in, nil, nil)
}

func TestReadWithinSingleChunk(t *testing.T) {
	r := feed(t, []byte{0x01, 0x02, 0x03, 0x04})

	dest := make([]byte, 4)
	if err := r.Read(4, dest); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(dest, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("got %x", dest)
	}
}

func TestReadAcrossChunkBoundary(t *testing.T) {
	r := feed(t, []byte{0x01, 0x02}, []byte{0x03, 0x04, 0x05})

	dest := make([]byte, 5)
	if err := r.Read(5, dest); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(dest, []byte{0x01, 0x02, 0x03, 0x04, 0x05}) {
		t.Errorf("got %x", dest)
	}
}

// TestReadIsIndifferentToChunkSplit checks that however the same stream is
// sliced into chunks, a sequence of reads asking for the same field widths
// returns the same bytes.
func TestReadIsIndifferentToChunkSplit(t *testing.T) {
	stream := []byte{0x09, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}

	splits := [][]int{
		{9},
		{1, 8},
		{1, 1, 7},
		{4, 5},
		{1, 1, 1, 1, 1, 1, 1, 1, 1},
	}

	for _, split := range splits {
		var parts [][]byte
		off := 0
		for _, n := range split {
			parts = append(parts, stream[off:off+n])
			off += n
		}

		r := feed(t, parts...)

		got := make([]byte, len(stream))
		if err := r.Read(len(stream), got); err != nil {
			t.Fatalf("split %v: %v", split, err)
		}

		if !bytes.Equal(got, stream) {
			t.Errorf("split %v: got %x, want %x", split, got, stream)
		}
	}
}

func TestDiscard(t *testing.T) {
	r := feed(t, []byte{0xAA, 0xBB, 0xCC, 0xDD})

	if err := r.Discard(2); err != nil {
		t.Fatal(err)
	}

	dest := make([]byte, 2)
	if err := r.Read(2, dest); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(dest, []byte{0xCC, 0xDD}) {
		t.Errorf("got %x", dest)
	}
}

func TestReadU8AndU16LE(t *testing.T) {
	r := feed(t, []byte{0x7F, 0x34, 0x12})

	b, err := r.ReadU8()
	if err != nil {
		t.Fatal(err)
	}
	if b != 0x7F {
		t.Errorf("got %x", b)
	}

	u, err := r.ReadU16LE()
	if err != nil {
		t.Fatal(err)
	}
	if u != 0x1234 {
		t.Errorf("got %x", u)
	}
}

func TestReadOnClosedChannelReturnsErrClosed(t *testing.T) {
	r := feed(t)

	dest := make([]byte, 1)
	err := r.Read(1, dest)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestStopChannelUnblocksRead(t *testing.T) {
	in := make(chan *Chunk)
	stop := make(chan struct{})
	r := NewReader(in, stop, nil)

	done := make(chan error, 1)
	go func() {
		done <- r.Read(1, make([]byte, 1))
	}()

	close(stop)

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("got %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock on stop")
	}
}

func TestOnChunkCallback(t *testing.T) {
	r := feed(t, []byte{0x01}, []byte{0x02})

	var calls int
	r.OnChunk(func(latency time.Duration) {
		calls++
	})

	dest := make([]byte, 2)
	if err := r.Read(2, dest); err != nil {
		t.Fatal(err)
	}

	if calls != 2 {
		t.Errorf("got %d onChunk calls, want 2", calls)
	}
}
