// NXP i.MX8MP OCRAM support
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package imx8mp

// On-Chip Random-Access Memory
const (
	OCRAM_START = 0x00900000
	OCRAM_SIZE  = 0x90000
)
