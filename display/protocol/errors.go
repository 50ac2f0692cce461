// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package protocol

import "errors"

// ErrDropped wraps a per-packet error that is recoverable: the parser has
// consumed exactly the bytes the packet would have occupied, stream
// synchronization is intact, and the caller should discard the packet and
// keep reading.
var ErrDropped = errors.New("protocol: packet dropped")

// ErrDesync wraps a per-stream error that is not recoverable: the parser
// could not determine how many bytes the packet occupies, so the position
// of the next packet in the stream is unknown. Callers must treat this as
// fatal and stop reading from the Decoder.
var ErrDesync = errors.New("protocol: stream desynchronized")

// ErrAlloc is the underlying cause wrapped by ErrDropped when an Allocator
// call failed.
var ErrAlloc = errors.New("protocol: allocation failed")
