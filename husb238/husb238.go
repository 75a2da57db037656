// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package husb238

import (
	"context"
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the I²C address of the HUSB238. It is not configurable
// on the chip.
const DefaultAddress uint16 = 0x08

// Opts holds the configuration of a Dev or ContextDev.
type Opts struct {
	// Addr is the 7 bit I²C address. 0 means DefaultAddress.
	Addr uint16
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Addr: DefaultAddress}

func (o *Opts) address() (uint16, error) {
	if o == nil || o.Addr == 0 {
		return DefaultAddress, nil
	}
	if o.Addr > 0x7F {
		return 0, errors.New("husb238: address must be a 7 bit I²C address")
	}
	return o.Addr, nil
}

// BusError is returned when a bus transaction fails.
//
// Err is the error returned by the transport, unchanged.
type BusError struct {
	Op  string // "read" or "write"
	Reg Register
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("husb238: %s %s: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Contract is the negotiated voltage and current in physical units.
type Contract struct {
	// Voltage is only meaningful when HasVoltage is true. HasVoltage is false
	// when no source is attached or the chip reports a reserved encoding.
	Voltage    physic.ElectricPotential
	HasVoltage bool
	Current    physic.ElectricCurrent
}

// ContractOf converts the fields of PD_STATUS0 to physical units.
func ContractOf(v Voltage, i Current) Contract {
	p, ok := v.Potential()
	return Contract{Voltage: p, HasVoltage: ok, Current: i.Value()}
}

// Power returns the maximum power of the contract, 0 without a voltage.
func (c Contract) Power() physic.Power {
	if !c.HasVoltage {
		return 0
	}
	// mV * mA = µW, which keeps the product inside int64.
	return physic.Power(int64(c.Voltage/physic.MilliVolt)*int64(c.Current/physic.MilliAmpere)) * physic.MicroWatt
}

func (c Contract) String() string {
	if !c.HasVoltage {
		return fmt.Sprintf("no voltage, %s", c.Current)
	}
	return fmt.Sprintf("%s %s", c.Voltage, c.Current)
}

// Capability is a rail offered by the attached source.
type Capability struct {
	Rail    Rail
	Current Current // maximum current offered on the rail
}

func (c Capability) String() string {
	return c.Rail.String() + " " + c.Current.String()
}

// core holds the register logic shared by Dev and ContextDev. tx performs
// a write when r is nil and a combined write-read otherwise.
type core struct {
	tx func(ctx context.Context, w, r []byte) error
}

func (c *core) write(ctx context.Context, reg Register, v byte) error {
	if err := c.tx(ctx, []byte{byte(reg), v}, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

func (c *core) read(ctx context.Context, reg Register) (byte, error) {
	var r [1]byte
	if err := c.tx(ctx, []byte{byte(reg)}, r[:]); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return r[0], nil
}

func (c *core) readStatus(ctx context.Context) (Voltage, Current, error) {
	b, err := c.read(ctx, RegPDStatus0)
	if err != nil {
		return Unattached, 0, err
	}
	return VoltageFromStatus(b), CurrentFromNibble(b), nil
}

func (c *core) readContract(ctx context.Context) (Contract, error) {
	v, i, err := c.readStatus(ctx)
	if err != nil {
		return Contract{}, err
	}
	return ContractOf(v, i), nil
}

func (c *core) readSelectedProfile(ctx context.Context) (SourceProfile, error) {
	b, err := c.read(ctx, RegSrcPDO)
	if err != nil {
		return NotSelected, err
	}
	return ProfileFromRegister(b), nil
}

func (c *core) readDetection(ctx context.Context, rail Rail) (Current, bool, error) {
	reg, _, _, ok := rail.info()
	if !ok {
		return 0, false, fmt.Errorf("husb238: invalid rail %d", rail)
	}
	b, err := c.read(ctx, reg)
	if err != nil {
		return 0, false, err
	}
	if b&detectedBit == 0 {
		return 0, false, nil
	}
	return CurrentFromNibble(b), true, nil
}

func (c *core) readCapabilities(ctx context.Context) ([]Capability, error) {
	var caps []Capability
	for _, r := range Rails {
		i, ok, err := c.readDetection(ctx, r)
		if err != nil {
			return nil, err
		}
		if ok {
			caps = append(caps, Capability{Rail: r, Current: i})
		}
	}
	return caps, nil
}

// Dev is a handle to a HUSB238 on a blocking periph.io I²C bus.
type Dev struct {
	d *i2c.Dev
	c core
}

// New returns a Dev for the HUSB238 on bus. opts may be nil.
//
// The chip is not accessed.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	addr, err := opts.address()
	if err != nil {
		return nil, err
	}
	d := &Dev{d: &i2c.Dev{Bus: bus, Addr: addr}}
	d.c.tx = func(_ context.Context, w, r []byte) error {
		return d.d.Tx(w, r)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("husb238{%s}", d.d)
}

// Halt implements conn.Resource. There is nothing to stop.
func (d *Dev) Halt() error {
	return nil
}

// ReadStatus reads the negotiated voltage and current from PD_STATUS0.
func (d *Dev) ReadStatus() (Voltage, Current, error) {
	return d.c.readStatus(context.Background())
}

// ReadActualVoltageAndCurrent reads PD_STATUS0 like ReadStatus and converts
// the fields to physical units.
func (d *Dev) ReadActualVoltageAndCurrent() (Contract, error) {
	return d.c.readContract(context.Background())
}

// ReadSelectedProfile reads the profile held in SRC_PDO.
func (d *Dev) ReadSelectedProfile() (SourceProfile, error) {
	return d.c.readSelectedProfile(context.Background())
}

// SelectProfile writes p to SRC_PDO. The source is asked for it only once
// Request is triggered.
func (d *Dev) SelectProfile(p SourceProfile) error {
	return d.c.write(context.Background(), RegSrcPDO, byte(p))
}

// TriggerCommand writes cmd to GO_COMMAND.
func (d *Dev) TriggerCommand(cmd Command) error {
	return d.c.write(context.Background(), RegGoCommand, byte(cmd))
}

// ReadDetection reads the detection register of rail. ok is false when the
// source does not offer the rail; otherwise i is the maximum current offered.
func (d *Dev) ReadDetection(rail Rail) (i Current, ok bool, err error) {
	return d.c.readDetection(context.Background(), rail)
}

// Detect5V is ReadDetection(Rail5V).
func (d *Dev) Detect5V() (Current, bool, error) { return d.ReadDetection(Rail5V) }

// Detect9V is ReadDetection(Rail9V).
func (d *Dev) Detect9V() (Current, bool, error) { return d.ReadDetection(Rail9V) }

// Detect12V is ReadDetection(Rail12V).
func (d *Dev) Detect12V() (Current, bool, error) { return d.ReadDetection(Rail12V) }

// Detect15V is ReadDetection(Rail15V).
func (d *Dev) Detect15V() (Current, bool, error) { return d.ReadDetection(Rail15V) }

// Detect18V is ReadDetection(Rail18V).
func (d *Dev) Detect18V() (Current, bool, error) { return d.ReadDetection(Rail18V) }

// Detect20V is ReadDetection(Rail20V).
func (d *Dev) Detect20V() (Current, bool, error) { return d.ReadDetection(Rail20V) }

// ReadSourceCapabilities reads the six detection registers in ascending
// voltage order and returns the rails the source offers.
func (d *Dev) ReadSourceCapabilities() ([]Capability, error) {
	return d.c.readCapabilities(context.Background())
}

// ContextDev is a handle to a HUSB238 on a ContextBus.
//
// Every method hands ctx to the bus for each transaction. The driver adds
// no deadline of its own.
type ContextDev struct {
	addr uint16
	c    core
}

// NewContext returns a ContextDev for the HUSB238 on bus. opts may be nil.
//
// The chip is not accessed.
func NewContext(bus ContextBus, opts *Opts) (*ContextDev, error) {
	addr, err := opts.address()
	if err != nil {
		return nil, err
	}
	d := &ContextDev{addr: addr}
	d.c.tx = func(ctx context.Context, w, r []byte) error {
		return bus.TxContext(ctx, addr, w, r)
	}
	return d, nil
}

func (d *ContextDev) String() string {
	return fmt.Sprintf("husb238{%#x}", d.addr)
}

// Halt implements conn.Resource. There is nothing to stop.
func (d *ContextDev) Halt() error {
	return nil
}

// ReadStatus reads the negotiated voltage and current from PD_STATUS0.
func (d *ContextDev) ReadStatus(ctx context.Context) (Voltage, Current, error) {
	return d.c.readStatus(ctx)
}

// ReadActualVoltageAndCurrent reads PD_STATUS0 like ReadStatus and converts
// the fields to physical units.
func (d *ContextDev) ReadActualVoltageAndCurrent(ctx context.Context) (Contract, error) {
	return d.c.readContract(ctx)
}

// ReadSelectedProfile reads the profile held in SRC_PDO.
func (d *ContextDev) ReadSelectedProfile(ctx context.Context) (SourceProfile, error) {
	return d.c.readSelectedProfile(ctx)
}

// SelectProfile writes p to SRC_PDO.
func (d *ContextDev) SelectProfile(ctx context.Context, p SourceProfile) error {
	return d.c.write(ctx, RegSrcPDO, byte(p))
}

// TriggerCommand writes cmd to GO_COMMAND.
func (d *ContextDev) TriggerCommand(ctx context.Context, cmd Command) error {
	return d.c.write(ctx, RegGoCommand, byte(cmd))
}

// ReadDetection reads the detection register of rail.
func (d *ContextDev) ReadDetection(ctx context.Context, rail Rail) (i Current, ok bool, err error) {
	return d.c.readDetection(ctx, rail)
}

func (d *ContextDev) Detect5V(ctx context.Context) (Current, bool, error) {
	return d.ReadDetection(ctx, Rail5V)
}

func (d *ContextDev) Detect9V(ctx context.Context) (Current, bool, error) {
	return d.ReadDetection(ctx, Rail9V)
}

func (d *ContextDev) Detect12V(ctx context.Context) (Current, bool, error) {
	return d.ReadDetection(ctx, Rail12V)
}

func (d *ContextDev) Detect15V(ctx context.Context) (Current, bool, error) {
	return d.ReadDetection(ctx, Rail15V)
}

func (d *ContextDev) Detect18V(ctx context.Context) (Current, bool, error) {
	return d.ReadDetection(ctx, Rail18V)
}

func (d *ContextDev) Detect20V(ctx context.Context) (Current, bool, error) {
	return d.ReadDetection(ctx, Rail20V)
}

// ReadSourceCapabilities returns the rails the source offers.
func (d *ContextDev) ReadSourceCapabilities(ctx context.Context) ([]Capability, error) {
	return d.c.readCapabilities(ctx)
}

var _ conn.Resource = &Dev{}
var _ conn.Resource = &ContextDev{}
var _ fmt.Stringer = Contract{}
