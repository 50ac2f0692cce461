// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/usbarmory/tamago/display/protocol"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (t *fakeTransport) SendBytes(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	t.sent = append(t.sent, cp)
	return nil
}

func (t *fakeTransport) last() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}

func waitForPacket(t *testing.T, s *Session) (*protocol.Packet, error) {
	t.Helper()

	type result struct {
		pkt *protocol.Packet
		err error
	}

	ch := make(chan result, 1)
	go func() {
		pkt, err := s.WaitForPacket()
		ch <- result{pkt, err}
	}()

	select {
	case r := <-ch:
		return r.pkt, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForPacket timed out")
		return nil, nil
	}
}

func TestPushBytesAndWaitForPacket(t *testing.T) {
	s := New(4, 4, &fakeTransport{})
	defer s.Close()

	if err := s.PushBytes([]byte{0x07}); err != nil { // Ping
		t.Fatal(err)
	}

	pkt, err := waitForPacket(t, s)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Kind != protocol.KindPing {
		t.Errorf("got kind %v, want Ping", pkt.Kind)
	}
}

func TestPushBytesSplitAcrossCalls(t *testing.T) {
	s := New(2, 2, &fakeTransport{})
	defer s.Close()

	raw := []byte{0x09, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	for _, b := range raw {
		if err := s.PushBytes([]byte{b}); err != nil {
			t.Fatal(err)
		}
	}

	pkt, err := waitForPacket(t, s)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Kind != protocol.KindFrame || len(pkt.Frame.Pixels) != 4 {
		t.Fatalf("got %+v", pkt)
	}
}

func TestSendPongAndTouchEvent(t *testing.T) {
	tr := &fakeTransport{}
	s := New(4, 4, tr)
	defer s.Close()

	if err := s.SendPong(); err != nil {
		t.Fatal(err)
	}
	if got := tr.last(); len(got) != 1 || protocol.Kind(got[0]) != protocol.KindPong {
		t.Errorf("got %x", got)
	}

	ev := protocol.TouchEvent{Pointer: 0, Timestamp: 0x01020304, Phase: protocol.TouchMove, X: 10, Y: 20}
	if err := s.SendTouchEvent(ev); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x02, 0x00, 0x04, 0x03, 0x02, 0x01, 0x01, 0x0A, 0x14}
	got := tr.last()
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestUnknownKindTearsDownSession(t *testing.T) {
	s := New(4, 4, &fakeTransport{})
	defer s.Close()

	if err := s.PushBytes([]byte{0xFE}); err != nil {
		t.Fatal(err)
	}

	_, err := waitForPacket(t, s)
	if err == nil {
		t.Fatal("expected a fatal error after unknown kind byte")
	}
	if !errors.Is(err, protocol.ErrDesync) {
		t.Errorf("got %v, want wrapped ErrDesync", err)
	}

	// the session is now closed; further calls report ErrClosed.
	if err := s.PushBytes([]byte{0x07}); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestAllocationDropDoesNotTearDownSession(t *testing.T) {
	alloc := protocol.NewBudgetedAllocator(0)
	s := New(2, 2, &fakeTransport{}, WithAllocator(alloc))
	defer s.Close()

	dropped := []byte{0x09, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	if err := s.PushBytes(dropped); err != nil {
		t.Fatal(err)
	}
	if err := s.PushBytes([]byte{0x07}); err != nil { // Ping, should still arrive
		t.Fatal(err)
	}

	pkt, err := waitForPacket(t, s)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Kind != protocol.KindPing {
		t.Errorf("got kind %v, want Ping", pkt.Kind)
	}

	stats := s.Stats()
	if stats.PacketsDropped != 1 {
		t.Errorf("got %d drops, want 1", stats.PacketsDropped)
	}
	if stats.PacketsDelivered != 1 {
		t.Errorf("got %d delivered, want 1", stats.PacketsDelivered)
	}
}

func TestCloseUnblocksWaitForPacketBeforeAnyPushBytes(t *testing.T) {
	s := New(4, 4, &fakeTransport{})

	ch := make(chan error, 1)
	go func() {
		_, err := s.WaitForPacket()
		ch <- err
	}()

	// Close before any PushBytes call: the parser worker never starts, so
	// Close itself must be the one to close the packet queue.
	s.Close()

	select {
	case err := <-ch:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("got %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForPacket did not unblock on Close")
	}
}

func TestCloseUnblocksWaitForPacketAfterPushBytes(t *testing.T) {
	s := New(4, 4, &fakeTransport{})

	ch := make(chan error, 1)
	go func() {
		_, err := s.WaitForPacket()
		ch <- err
	}()

	if err := s.PushBytes(nil); err != nil {
		t.Fatal(err)
	}

	s.Close()

	select {
	case err := <-ch:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("got %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForPacket did not unblock on Close")
	}
}

func TestPushBytesAfterCloseNeverStartsWorker(t *testing.T) {
	s := New(4, 4, &fakeTransport{})

	s.Close()

	if err := s.PushBytes([]byte{0x07}); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}

	if _, err := waitForPacket(t, s); !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
}

func TestStatsChunksReceived(t *testing.T) {
	s := New(4, 4, &fakeTransport{})
	defer s.Close()

	if err := s.PushBytes([]byte{0x07}); err != nil {
		t.Fatal(err)
	}
	if _, err := waitForPacket(t, s); err != nil {
		t.Fatal(err)
	}

	if got := s.Stats().ChunksReceived; got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}
