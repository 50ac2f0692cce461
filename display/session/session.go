// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package session implements the remote-display public surface: construct
// a session over a Transport, feed it raw bytes as they arrive from the
// wire, and drain decoded packets as the application is ready for them. It
// wires together package chunk (byte reader) and package protocol (codec)
// into a two-queue, one-worker pipeline.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/usbarmory/tamago/display/chunk"
	"github.com/usbarmory/tamago/display/protocol"
)

// queueDepth is the size of both the chunk-in and packet-out queues.
const queueDepth = 32

// ErrClosed is returned by PushBytes once the session has been torn down,
// either by an explicit Close or by a fatal parse error, and by
// WaitForPacket after an explicit Close. After a fatal parse error
// WaitForPacket returns that error instead.
var ErrClosed = errors.New("session: closed")

// Transport sends framed protocol bytes to the host. It is a borrowed
// reference: the session never closes or frees it. Implementations are
// expected to be thread-safe if send operations may be called concurrently
// with each other; the session does not add locking around it.
type Transport interface {
	SendBytes(buf []byte) error
}

type counters struct {
	chunksReceived        uint64
	packetsDelivered      uint64
	packetsDropped        uint64
	lastChunkLatencyNanos int64
}

// Stats is per-session telemetry, scoped to one Session rather than shared
// process-wide state.
type Stats struct {
	ChunksReceived    uint64
	PacketsDelivered  uint64
	PacketsDropped    uint64
	LastChunkLatency  time.Duration
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithAllocator overrides the default allocator used when decoding frame
// payloads. See protocol.Allocator.
func WithAllocator(a protocol.Allocator) Option {
	return func(s *Session) { s.alloc = a }
}

// WithLogger overrides the logger used for drop/fatal diagnostics. A nil
// logger (the default if this option is not given) falls back to
// log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is the remote-display endpoint core: construct, push bytes in,
// wait for packets out, send pong/touch events, close.
type Session struct {
	width, height int
	transport     Transport
	alloc         protocol.Allocator
	logger        *log.Logger

	chunks  chan *chunk.Chunk
	packets chan *protocol.Packet

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	fatal atomic.Value // holds fatalErr

	stats counters
}

type fatalErr struct{ err error }

// New constructs a session for a width x height screen, sending outbound
// bytes through transport. The queues are created and the state is zeroed,
// but the parser worker is not started until the first PushBytes call.
func New(width, height int, transport Transport, opts ...Option) *Session {
	s := &Session{
		width:     width,
		height:    height,
		transport: transport,
		alloc:     protocol.DefaultAllocator{},
		logger:    log.Default(),
		chunks:    make(chan *chunk.Chunk, queueDepth),
		packets:   make(chan *protocol.Packet, queueDepth),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.Default()
	}

	return s
}

// PushBytes hands n bytes received from the transport to the session. The
// first call spawns the parser worker; later calls reuse it. A session that
// is closed before its first PushBytes call never spawns a worker at all —
// see Close. PushBytes blocks if the chunk queue is full, the deliberate
// backpressure signal for a slow consumer, and returns ErrClosed if the
// session has already been torn down.
func (s *Session) PushBytes(buf []byte) error {
	s.startOnce.Do(func() { go s.run() })

	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	if len(buf) == 0 {
		return nil
	}

	c := chunk.New(buf)

	select {
	case s.chunks <- c:
		atomic.AddUint64(&s.stats.chunksReceived, 1)
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// WaitForPacket blocks until the next decoded packet is available; there is
// no deadline or cancellation here. It returns ErrClosed (or the fatal
// error that caused teardown, such as an unknown packet kind or frame
// encoding) once the session is closed and no further packets will arrive.
func (s *Session) WaitForPacket() (*protocol.Packet, error) {
	p, ok := <-s.packets
	if !ok {
		if f, ok := s.fatal.Load().(fatalErr); ok && f.err != nil {
			return nil, f.err
		}
		return nil, ErrClosed
	}
	return p, nil
}

// SendPong serializes and sends a Pong packet.
func (s *Session) SendPong() error {
	if err := s.transport.SendBytes(protocol.EncodePong()); err != nil {
		s.logger.Printf("session: send pong: %v", err)
		return err
	}
	return nil
}

// SendTouchEvent serializes and sends a TouchEvent packet.
func (s *Session) SendTouchEvent(ev protocol.TouchEvent) error {
	if err := s.transport.SendBytes(protocol.EncodeTouchEvent(ev)); err != nil {
		s.logger.Printf("session: send touch event: %v", err)
		return err
	}
	return nil
}

// Stats returns a snapshot of the session's telemetry counters.
func (s *Session) Stats() Stats {
	return Stats{
		ChunksReceived:   atomic.LoadUint64(&s.stats.chunksReceived),
		PacketsDelivered: atomic.LoadUint64(&s.stats.packetsDelivered),
		PacketsDropped:   atomic.LoadUint64(&s.stats.packetsDropped),
		LastChunkLatency: time.Duration(atomic.LoadInt64(&s.stats.lastChunkLatencyNanos)),
	}
}

// Close stops the parser worker and unblocks any pending or future
// WaitForPacket call. It does not drain or free in-flight packets still
// sitting in the packet queue — the caller must drain those itself first if
// it cares about them.
//
// Close is safe to call on a session that never received a PushBytes call:
// the parser worker is started lazily, so in that case there is no worker
// to stop and no one left to close the packet queue. Close and PushBytes
// race on the same startOnce guard for exactly this reason — whichever
// runs first either spawns the worker (which then owns closing the packet
// queue via finish, once it observes done closed) or closes the packet
// queue itself (which permanently forecloses the worker ever starting, so
// nothing can send on the now-closed channel).
func (s *Session) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	s.startOnce.Do(func() { close(s.packets) })
	return nil
}

// run is the parser worker: decode one packet at a time and push it to the
// packet-out queue, blocking if full; on an allocation drop, log and
// continue; on a fatal desync, stop the session.
func (s *Session) run() {
	r := chunk.NewReader(s.chunks, s.done, s.logger)
	r.OnChunk(func(latency time.Duration) {
		atomic.StoreInt64(&s.stats.lastChunkLatencyNanos, int64(latency))
	})

	dec := protocol.NewDecoder(r, s.width, s.height, s.alloc)

	for {
		pkt, err := dec.Decode()

		switch {
		case err == nil:
			atomic.AddUint64(&s.stats.packetsDelivered, 1)

			select {
			case s.packets <- pkt:
			case <-s.done:
				s.finish(nil)
				return
			}

		case errors.Is(err, chunk.ErrClosed):
			s.finish(nil)
			return

		case errors.Is(err, protocol.ErrDropped):
			atomic.AddUint64(&s.stats.packetsDropped, 1)
			s.logger.Printf("session: packet dropped: %v", err)

		default:
			s.logger.Printf("session: fatal parse error, tearing down session: %v", err)
			s.finish(fmt.Errorf("session: %w", err))
			return
		}
	}
}

func (s *Session) finish(err error) {
	if err != nil {
		s.fatal.Store(fatalErr{err})
	}
	s.stopOnce.Do(func() { close(s.done) })
	close(s.packets)
}
