// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package present translates a decoded protocol.Frame into the sequence of
// display-driver operations that reproduces it on screen.
// The driver itself — the SPI/parallel panel controller — is out of scope;
// this package only orders the four operations any such driver must expose.
package present

import (
	"fmt"

	"github.com/usbarmory/tamago/display/protocol"
)

// Driver is the display endpoint's four-operation interface. set-window
// defines an inclusive-exclusive window, in display coordinates, that
// subsequent pixel writes fill in row-major order; present makes all prior
// writes visible as a single atomic update. Implementations are free to
// batch underlying SPI/DMA transactions as long as observable screen state
// after Present equals the frame's semantic content.
type Driver interface {
	SetWindow(window protocol.Rectangle) error
	WritePixels(pixels []uint16) error
	WriteRun(count int, rgb565 uint16) error
	Present() error
}

// Frame drives driver with the operation sequence that reproduces frame on
// a width x height screen. Exactly one logical transaction is issued per
// frame: driver.Present is called exactly once, at the end.
func Frame(frame *protocol.Frame, width, height int, driver Driver) error {
	switch frame.Encoding {
	case protocol.EncodingKeyframeRaw:
		return presentKeyframeRaw(frame, width, height, driver)
	case protocol.EncodingKeyframeRle:
		return presentKeyframeRle(frame, width, height, driver)
	case protocol.EncodingDeltaframeRaw:
		return presentDeltaframeRaw(frame, driver)
	case protocol.EncodingDeltaframeRle:
		return presentDeltaframeRle(frame, driver)
	default:
		return fmt.Errorf("present: unknown frame encoding %v", frame.Encoding)
	}
}

func fullScreen(width, height int) protocol.Rectangle {
	return protocol.Rectangle{Left: 0, Top: 0, Width: uint8(width), Height: uint8(height)}
}

func presentKeyframeRaw(frame *protocol.Frame, width, height int, driver Driver) error {
	if err := driver.SetWindow(fullScreen(width, height)); err != nil {
		return err
	}
	if err := driver.WritePixels(frame.Pixels); err != nil {
		return err
	}
	return driver.Present()
}

func presentKeyframeRle(frame *protocol.Frame, width, height int, driver Driver) error {
	if err := driver.SetWindow(fullScreen(width, height)); err != nil {
		return err
	}
	for _, run := range frame.Runs {
		if err := driver.WriteRun(int(run.Count), run.RGB565); err != nil {
			return err
		}
	}
	return driver.Present()
}

func presentDeltaframeRaw(frame *protocol.Frame, driver Driver) error {
	for _, rect := range frame.Rects {
		if err := driver.SetWindow(rect.Rectangle); err != nil {
			return err
		}
		if err := driver.WritePixels(rect.Pixels); err != nil {
			return err
		}
	}
	return driver.Present()
}

func presentDeltaframeRle(frame *protocol.Frame, driver Driver) error {
	for _, rect := range frame.Rects {
		if err := driver.SetWindow(rect.Rectangle); err != nil {
			return err
		}
		for _, run := range rect.Runs {
			if err := driver.WriteRun(int(run.Count), run.RGB565); err != nil {
				return err
			}
		}
	}
	return driver.Present()
}
