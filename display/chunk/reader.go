// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package chunk

import (
	"encoding/binary"
	"errors"
	"log"
	"time"
)

// ErrClosed is returned by Reader.Read when the input channel is closed
// (session teardown) while a read is pending or starts after closure.
var ErrClosed = errors.New("chunk: reader closed")

// Reader sequences reads across a channel of Chunks, blocking until enough
// data has arrived. It never surfaces ordinary queue waits as errors — the
// only error it returns is ErrClosed, once the producer will never send
// again.
//
// A Reader is not safe for concurrent use; the parser goroutine that owns it
// is the only caller, matching the single-threaded descent of the packet
// codec in package protocol.
type Reader struct {
	in     <-chan *Chunk
	stop   <-chan struct{}
	logger *log.Logger

	cur    *Chunk
	offset int

	lastReceive time.Time
	onChunk     func(latency time.Duration)
}

// NewReader returns a Reader pulling Chunks from in. stop, if non-nil, is a
// channel that unblocks a pending Read with ErrClosed once closed — the
// session's teardown signal. A nil logger defaults to log.Default().
func NewReader(in <-chan *Chunk, stop <-chan struct{}, logger *log.Logger) *Reader {
	if logger == nil {
		logger = log.Default()
	}
	return &Reader{in: in, stop: stop, logger: logger}
}

// OnChunk registers a callback invoked each time a new Chunk is pulled off
// in, with the time elapsed between the chunk's creation and its arrival at
// the front of the reader. session.Session uses it to populate
// Stats.LastChunkLatency; the latency itself is not logged. Independently of
// this callback, Read logs the time elapsed since the previous chunk arrived
// each time it pulls a chunk after the first.
func (r *Reader) OnChunk(f func(latency time.Duration)) {
	r.onChunk = f
}

// Read consumes exactly n bytes, blocking as needed across chunk boundaries.
// If dest is non-nil its first n bytes are filled; if dest is nil the bytes
// are discarded. Discard mode is used by package protocol to stay in sync
// with the stream after an allocation failure mid-packet.
func (r *Reader) Read(n int, dest []byte) error {
	for n > 0 {
		if r.cur == nil {
			var c *Chunk
			var ok bool

			select {
			case c, ok = <-r.in:
				if !ok {
					return ErrClosed
				}
			case <-r.stop:
				return ErrClosed
			}

			r.cur = c
			r.offset = 0

			now := time.Now()
			if r.onChunk != nil {
				r.onChunk(now.Sub(c.Timestamp))
			}
			if !r.lastReceive.IsZero() {
				r.logger.Printf("chunk: processing took %s", now.Sub(r.lastReceive))
			}
			r.lastReceive = now
		}

		avail := len(r.cur.Data) - r.offset
		toCopy := n
		if avail < toCopy {
			toCopy = avail
		}

		if dest != nil {
			copy(dest, r.cur.Data[r.offset:r.offset+toCopy])
			dest = dest[toCopy:]
		}

		r.offset += toCopy
		n -= toCopy

		if r.offset == len(r.cur.Data) {
			r.cur = nil
		}
	}

	return nil
}

// Discard advances past n bytes without copying them anywhere.
func (r *Reader) Discard(n int) error {
	return r.Read(n, nil)
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	var b [1]byte
	if err := r.Read(1, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16LE reads a little-endian 16-bit word, the wire byte order for every
// multi-byte integer in the protocol.
func (r *Reader) ReadU16LE() (uint16, error) {
	var b [2]byte
	if err := r.Read(2, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}
