// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm
// +build tamago,arm

// Package boardsupport wires package session onto real USB armory Mk II
// hardware: the ANNA-B112 BLE module (board/usbarmory/mk2) standing in for
// a Bluetooth SPP link, driven as a plain byte pipe. It is reference
// wiring, not a Bluetooth SPP stack or a display panel driver — both remain
// external collaborators; this package only shows where their
// four/one-method interfaces plug in.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/tamago.
package boardsupport

import (
	"github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/display/session"
)

// BLETransport adapts the ANNA-B112 module's UART to session.Transport.
// SendBytes is the only operation the session needs from it; pairing, link
// supervision and RTS/CTS flow control are handled by
// board/usbarmory/mk2 itself, out of scope here.
type BLETransport struct {
	ble *mk2.ANNA
}

// NewBLETransport wraps ble, which must already be initialized
// (ble.Init()).
func NewBLETransport(ble *mk2.ANNA) *BLETransport {
	return &BLETransport{ble: ble}
}

func (t *BLETransport) SendBytes(buf []byte) error {
	_, err := t.ble.UART.Write(buf)
	return err
}

// Ingest reads from the ANNA-B112 UART in a loop, handing each chunk it
// reads to sess.PushBytes, until Read returns an error. The BLE module is a
// plain UART byte pipe, so a dedicated reader goroutine is the idiomatic
// transport-ingress context here. Run it in its own goroutine.
func Ingest(sess *session.Session, ble *mk2.ANNA) error {
	buf := make([]byte, 512)

	for {
		n, err := ble.UART.Read(buf)
		if err != nil {
			return err
		}

		if n == 0 {
			continue
		}

		if err := sess.PushBytes(buf[:n]); err != nil {
			return err
		}
	}
}
