// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package husb238

import (
	"context"

	"tinygo.org/x/drivers"
)

// ContextBus is the transport of a ContextDev.
//
// TxContext performs a write when r is nil and otherwise a write followed by
// a read without releasing the bus. The host decides what to do with ctx:
// yield to a scheduler, bound the transfer, or ignore it.
type ContextBus interface {
	TxContext(ctx context.Context, addr uint16, w, r []byte) error
}

// ContextBusFunc adapts a function to ContextBus.
type ContextBusFunc func(ctx context.Context, addr uint16, w, r []byte) error

// TxContext implements ContextBus.
func (f ContextBusFunc) TxContext(ctx context.Context, addr uint16, w, r []byte) error {
	return f(ctx, addr, w, r)
}

// ContextBusOf returns a ContextBus on top of a blocking bus. TinyGo
// machine.I2C and periph.io i2c.Bus both qualify.
//
// The returned bus checks ctx before each transaction and returns ctx.Err()
// without touching the bus once ctx is done. A transaction that started
// always runs to completion.
func ContextBusOf(bus drivers.I2C) ContextBus {
	return ContextBusFunc(func(ctx context.Context, addr uint16, w, r []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return bus.Tx(addr, w, r)
	})
}
