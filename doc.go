// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usbpd is a container for the HUSB238 USB Power-Delivery sink
// driver and the tools around it.
//
// husb238 is the driver, railbar and pdcard render its readings on a
// terminal and on small displays, and cmd/husb238 is a command line tool.
package usbpd
