// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package chunk implements the byte-reader half of the remote-display
// pipeline: a blocking "read N bytes" primitive over a channel of
// variable-sized byte chunks, transparently spanning chunk boundaries. It is
// the transport-ingress side of the producer/consumer handoff, a buffered
// Go channel standing in for a bounded hardware queue.
package chunk

import "time"

// Chunk is one batch of bytes handed from the transport to the session, with
// the time it was received. Timestamp exists for latency instrumentation
// only (see session.Stats) and is not part of the wire protocol.
type Chunk struct {
	Timestamp time.Time
	Data      []byte
}

// New copies buf into a new Chunk stamped with the current time. The copy
// matters: the caller (typically a transport callback) may reuse buf's
// backing array the moment this call returns.
func New(buf []byte) *Chunk {
	data := make([]byte, len(buf))
	copy(data, buf)
	return &Chunk{Timestamp: time.Now(), Data: data}
}
