// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package protocol

// EncodePong serializes a Pong packet: a single byte equal to the Pong kind
// identifier.
func EncodePong() []byte {
	return []byte{byte(KindPong)}
}

// EncodeTouchEvent serializes a TouchEvent packet: kind byte, pointer,
// little-endian 32-bit timestamp, phase, x, y — 9 bytes total.
func EncodeTouchEvent(ev TouchEvent) []byte {
	ts := ev.Timestamp
	return []byte{
		byte(KindTouchEvent),
		ev.Pointer,
		byte(ts),
		byte(ts >> 8),
		byte(ts >> 16),
		byte(ts >> 24),
		byte(ev.Phase),
		ev.X,
		ev.Y,
	}
}
