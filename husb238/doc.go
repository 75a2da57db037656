// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package husb238 controls a Hynetek HUSB238 USB Power-Delivery sink
// controller over an I²C bus.
//
// The chip negotiates a PD contract on its own. The driver reads the
// negotiated voltage and current, lists the fixed rails (5V, 9V, 12V, 15V,
// 18V, 20V) the source offers, selects one of them and triggers the
// request, get-source-capabilities and hard-reset commands.
//
// Every method is a single request/response exchange: nothing is cached and
// nothing runs in the background. A Dev must not be shared by concurrent
// callers without external synchronization.
//
// Two front ends exist. Dev blocks on a periph.io i2c.Bus. ContextDev passes
// a context.Context to the transport at every transaction so a cooperative
// host can run other work while the bus is busy. Both issue exactly the same
// bus traffic.
//
// # Registers
//
//	0x00     PD_STATUS0   R   voltage (bits 7-4), current (bits 3-0)
//	0x01     PD_STATUS1   R   unused
//	0x02-07  SRC_PDO_xV   R   detected (bit 7), current (bits 3-0)
//	0x08     SRC_PDO      R/W selected profile (bits 7-4)
//	0x09     GO_COMMAND   W   command trigger
package husb238
