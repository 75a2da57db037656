// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package husb238

import (
	"context"
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

const addr = DefaultAddress

var _ drivers.I2C = &i2ctest.Playback{}

// getDev returns a Dev on a playback bus holding ops. The caller checks
// pb.Close() to verify every operation was consumed.
func getDev(t *testing.T, ops ...i2ctest.IO) (*Dev, *i2ctest.Playback) {
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := New(pb, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dev, pb
}

func done(t *testing.T, pb *i2ctest.Playback) {
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

// failBus fails every transaction with err.
type failBus struct {
	err error
	n   int
}

func (f *failBus) String() string                  { return "failBus" }
func (f *failBus) SetSpeed(physic.Frequency) error { return nil }
func (f *failBus) Tx(addr uint16, w, r []byte) error {
	f.n++
	return f.err
}

func TestNew(t *testing.T) {
	for _, opts := range []*Opts{nil, {}, &DefaultOpts, {Addr: 0x08}} {
		dev, err := New(&i2ctest.Playback{}, opts)
		if err != nil {
			t.Fatal(err)
		}
		if dev.d.Addr != addr {
			t.Errorf("Addr=%#x expected %#x", dev.d.Addr, addr)
		}
		if len(dev.String()) == 0 {
			t.Error("empty String()")
		}
		if err := dev.Halt(); err != nil {
			t.Error(err)
		}
	}
	if _, err := New(&i2ctest.Playback{}, &Opts{Addr: 0x80}); err == nil {
		t.Error("expected error for 8 bit address")
	}
	if _, err := NewContext(ContextBusOf(&i2ctest.Playback{}), &Opts{Addr: 0x100}); err == nil {
		t.Error("expected error for 8 bit address")
	}
}

func TestReadStatus(t *testing.T) {
	dev, pb := getDev(t, i2ctest.IO{Addr: addr, W: []byte{0x00}, R: []byte{0x58}})
	v, c, err := dev.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	if v != Voltage18V || c != Current2A5 {
		t.Errorf("ReadStatus()=(%s, %s) expected (18V, 2.5A)", v, c)
	}
	done(t, pb)
}

func TestReadActualVoltageAndCurrent(t *testing.T) {
	tests := []struct {
		raw     byte
		hasV    bool
		voltage physic.ElectricPotential
		current physic.ElectricCurrent
		power   physic.Power
	}{
		{0x58, true, 18 * physic.Volt, 2500 * physic.MilliAmpere, 45 * physic.Watt},
		{0x6F, true, 20 * physic.Volt, 5 * physic.Ampere, 100 * physic.Watt},
		{0x1A, true, 5 * physic.Volt, 3 * physic.Ampere, 15 * physic.Watt},
		{0x00, false, 0, 500 * physic.MilliAmpere, 0},
		{0x7C, false, 0, 3500 * physic.MilliAmpere, 0},
		{0xF3, false, 0, 1250 * physic.MilliAmpere, 0},
	}
	for _, test := range tests {
		// A single write-read, same as ReadStatus.
		dev, pb := getDev(t, i2ctest.IO{Addr: addr, W: []byte{byte(RegPDStatus0)}, R: []byte{test.raw}})
		c, err := dev.ReadActualVoltageAndCurrent()
		if err != nil {
			t.Fatal(err)
		}
		if c.HasVoltage != test.hasV || c.Voltage != test.voltage || c.Current != test.current {
			t.Errorf("%#x: got %+v", test.raw, c)
		}
		if p := c.Power(); p != test.power {
			t.Errorf("%#x: Power()=%s expected %s", test.raw, p, test.power)
		}
		if len(c.String()) == 0 {
			t.Error("empty String()")
		}
		done(t, pb)
	}
}

func TestReadSelectedProfile(t *testing.T) {
	tests := []struct {
		raw  byte
		want SourceProfile
	}{
		{0x20, Profile9V},
		{0x2F, Profile9V},
		{0x00, NotSelected},
		{0x80, Profile15V},
		{0x90, Profile18V},
		{0xA0, Profile20V},
		{0x40, ProfileReserved},
		{0x60, ProfileReserved},
	}
	for _, test := range tests {
		dev, pb := getDev(t, i2ctest.IO{Addr: addr, W: []byte{0x08}, R: []byte{test.raw}})
		p, err := dev.ReadSelectedProfile()
		if err != nil {
			t.Fatal(err)
		}
		if p != test.want {
			t.Errorf("%#x: ReadSelectedProfile()=%s expected %s", test.raw, p, test.want)
		}
		done(t, pb)
	}
}

func TestSelectProfile(t *testing.T) {
	tests := []struct {
		p   SourceProfile
		raw byte
	}{
		{Profile5V, 0x10},
		{Profile9V, 0x20},
		{Profile12V, 0x30},
		{Profile15V, 0x80},
		{Profile18V, 0x90},
		{Profile20V, 0xA0},
	}
	for _, test := range tests {
		dev, pb := getDev(t, i2ctest.IO{Addr: addr, W: []byte{0x08, test.raw}})
		if err := dev.SelectProfile(test.p); err != nil {
			t.Fatal(err)
		}
		done(t, pb)
	}
}

func TestTriggerCommand(t *testing.T) {
	tests := []struct {
		cmd Command
		raw byte
	}{
		{Request, 0x01},
		{GetSourceCapabilities, 0x04},
		{HardReset, 0x10},
	}
	for _, test := range tests {
		dev, pb := getDev(t, i2ctest.IO{Addr: addr, W: []byte{0x09, test.raw}})
		if err := dev.TriggerCommand(test.cmd); err != nil {
			t.Fatal(err)
		}
		done(t, pb)
	}
}

// Exactly one write, recorded.
func TestSelectAndRequestRecord(t *testing.T) {
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: addr, W: []byte{0x08, 0x30}},
		{Addr: addr, W: []byte{0x09, 0x01}},
	}, DontPanic: true}
	record := &i2ctest.Record{Bus: pb}
	dev, err := New(record, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.SelectProfile(Profile12V); err != nil {
		t.Fatal(err)
	}
	if err := dev.TriggerCommand(Request); err != nil {
		t.Fatal(err)
	}
	if len(record.Ops) != 2 {
		t.Fatalf("record.Ops=%#v", record.Ops)
	}
	t.Logf("record.Ops=%#v", record.Ops)
	done(t, pb)
}

func TestReadDetection(t *testing.T) {
	tests := []struct {
		raw  byte
		want Current
		ok   bool
	}{
		{0x00, 0, false},
		{0x0F, 0, false},
		{0x7A, 0, false},
		{0x80, Current0A5, true},
		{0x83, Current1A25, true},
		{0x8A, Current3A0, true},
		{0xFF, Current5A0, true},
	}
	for _, test := range tests {
		for _, rail := range Rails {
			dev, pb := getDev(t, i2ctest.IO{Addr: addr, W: []byte{byte(rail.Register())}, R: []byte{test.raw}})
			c, ok, err := dev.ReadDetection(rail)
			if err != nil {
				t.Fatal(err)
			}
			if ok != test.ok || (ok && c != test.want) {
				t.Errorf("%s %#x: ReadDetection()=(%s, %t) expected (%s, %t)", rail, test.raw, c, ok, test.want, test.ok)
			}
			done(t, pb)
		}
	}
	dev, pb := getDev(t)
	if _, _, err := dev.ReadDetection(Rail(6)); err == nil {
		t.Error("expected error for invalid rail")
	}
	done(t, pb)
}

func TestDetectRails(t *testing.T) {
	dev, pb := getDev(t,
		i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x8A}},
		i2ctest.IO{Addr: addr, W: []byte{0x03}, R: []byte{0x83}},
		i2ctest.IO{Addr: addr, W: []byte{0x04}, R: []byte{0x00}},
		i2ctest.IO{Addr: addr, W: []byte{0x05}, R: []byte{0x88}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x0F}},
		i2ctest.IO{Addr: addr, W: []byte{0x07}, R: []byte{0x8F}},
	)
	detect := []struct {
		f    func() (Current, bool, error)
		want Current
		ok   bool
	}{
		{dev.Detect5V, Current3A0, true},
		{dev.Detect9V, Current1A25, true},
		{dev.Detect12V, 0, false},
		{dev.Detect15V, Current2A5, true},
		{dev.Detect18V, 0, false},
		{dev.Detect20V, Current5A0, true},
	}
	for i, d := range detect {
		c, ok, err := d.f()
		if err != nil {
			t.Fatal(err)
		}
		if ok != d.ok || (ok && c != d.want) {
			t.Errorf("%s: got (%s, %t) expected (%s, %t)", Rails[i], c, ok, d.want, d.ok)
		}
	}
	done(t, pb)
}

func TestReadSourceCapabilities(t *testing.T) {
	dev, pb := getDev(t,
		i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x8A}},
		i2ctest.IO{Addr: addr, W: []byte{0x03}, R: []byte{0x8A}},
		i2ctest.IO{Addr: addr, W: []byte{0x04}, R: []byte{0x00}},
		i2ctest.IO{Addr: addr, W: []byte{0x05}, R: []byte{0x88}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x00}},
		i2ctest.IO{Addr: addr, W: []byte{0x07}, R: []byte{0x86}},
	)
	caps, err := dev.ReadSourceCapabilities()
	if err != nil {
		t.Fatal(err)
	}
	want := []Capability{{Rail5V, Current3A0}, {Rail9V, Current3A0}, {Rail15V, Current2A5}, {Rail20V, Current2A0}}
	if len(caps) != len(want) {
		t.Fatalf("caps=%v expected %v", caps, want)
	}
	for i := range want {
		if caps[i] != want[i] {
			t.Errorf("caps[%d]=%s expected %s", i, caps[i], want[i])
		}
	}
	done(t, pb)
}

func TestBusError(t *testing.T) {
	sentinel := errors.New("nack")
	bus := &failBus{err: sentinel}
	dev, err := New(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	ops := []struct {
		name string
		reg  Register
		op   string
		f    func() error
	}{
		{"ReadStatus", RegPDStatus0, "read", func() error { _, _, err := dev.ReadStatus(); return err }},
		{"ReadActualVoltageAndCurrent", RegPDStatus0, "read", func() error { _, err := dev.ReadActualVoltageAndCurrent(); return err }},
		{"ReadSelectedProfile", RegSrcPDO, "read", func() error { _, err := dev.ReadSelectedProfile(); return err }},
		{"SelectProfile", RegSrcPDO, "write", func() error { return dev.SelectProfile(Profile9V) }},
		{"TriggerCommand", RegGoCommand, "write", func() error { return dev.TriggerCommand(HardReset) }},
		{"Detect18V", RegSrcPDO18V, "read", func() error { _, _, err := dev.Detect18V(); return err }},
		{"ReadSourceCapabilities", RegSrcPDO5V, "read", func() error { _, err := dev.ReadSourceCapabilities(); return err }},
	}
	for _, op := range ops {
		bus.n = 0
		err := op.f()
		if !errors.Is(err, sentinel) {
			t.Errorf("%s: error %v does not wrap the bus error", op.name, err)
		}
		var be *BusError
		if !errors.As(err, &be) {
			t.Fatalf("%s: %T is not a *BusError", op.name, err)
		}
		if be.Reg != op.reg || be.Op != op.op || be.Err != sentinel {
			t.Errorf("%s: got %+v", op.name, be)
		}
		// Bus errors are never retried.
		if bus.n != 1 {
			t.Errorf("%s: %d transactions, expected 1", op.name, bus.n)
		}
	}
}

func TestContextDev(t *testing.T) {
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: addr, W: []byte{0x00}, R: []byte{0x58}},
		{Addr: addr, W: []byte{0x00}, R: []byte{0x58}},
		{Addr: addr, W: []byte{0x08}, R: []byte{0x20}},
		{Addr: addr, W: []byte{0x08, 0x30}},
		{Addr: addr, W: []byte{0x09, 0x01}},
		{Addr: addr, W: []byte{0x02}, R: []byte{0x00}},
		{Addr: addr, W: []byte{0x03}, R: []byte{0x83}},
		{Addr: addr, W: []byte{0x04}, R: []byte{0x83}},
		{Addr: addr, W: []byte{0x05}, R: []byte{0x83}},
		{Addr: addr, W: []byte{0x06}, R: []byte{0x83}},
		{Addr: addr, W: []byte{0x07}, R: []byte{0x03}},
	}, DontPanic: true}
	dev, err := NewContext(ContextBusOf(pb), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if len(dev.String()) == 0 {
		t.Error("empty String()")
	}
	v, c, err := dev.ReadStatus(ctx)
	if err != nil || v != Voltage18V || c != Current2A5 {
		t.Errorf("ReadStatus()=(%s, %s, %v)", v, c, err)
	}
	contract, err := dev.ReadActualVoltageAndCurrent(ctx)
	if err != nil || !contract.HasVoltage || contract.Voltage != 18*physic.Volt || contract.Current != 2500*physic.MilliAmpere {
		t.Errorf("ReadActualVoltageAndCurrent()=(%+v, %v)", contract, err)
	}
	p, err := dev.ReadSelectedProfile(ctx)
	if err != nil || p != Profile9V {
		t.Errorf("ReadSelectedProfile()=(%s, %v)", p, err)
	}
	if err := dev.SelectProfile(ctx, Profile12V); err != nil {
		t.Error(err)
	}
	if err := dev.TriggerCommand(ctx, Request); err != nil {
		t.Error(err)
	}
	detect := []func(context.Context) (Current, bool, error){
		dev.Detect5V, dev.Detect9V, dev.Detect12V, dev.Detect15V, dev.Detect18V, dev.Detect20V,
	}
	for i, f := range detect {
		c, ok, err := f(ctx)
		if err != nil {
			t.Fatal(err)
		}
		wantOK := i != 0 && i != 5
		if ok != wantOK || (ok && c != Current1A25) {
			t.Errorf("%s: got (%s, %t)", Rails[i], c, ok)
		}
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestContextDevCanceled(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	dev, err := NewContext(ContextBusOf(pb), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dev.ReadSourceCapabilities(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, expected context.Canceled", err)
	}
	if err := dev.TriggerCommand(ctx, HardReset); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, expected context.Canceled", err)
	}
	if pb.Count != 0 {
		t.Errorf("%d transactions on a canceled context", pb.Count)
	}
}

func TestContextBusFunc(t *testing.T) {
	type key struct{}
	var seen []interface{}
	bus := ContextBusFunc(func(ctx context.Context, a uint16, w, r []byte) error {
		seen = append(seen, ctx.Value(key{}))
		if a != addr {
			t.Errorf("addr=%#x", a)
		}
		if len(r) == 1 {
			r[0] = 0x83
		}
		return nil
	})
	dev, err := NewContext(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.WithValue(context.Background(), key{}, "tx")
	caps, err := dev.ReadSourceCapabilities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != len(Rails) {
		t.Errorf("caps=%v", caps)
	}
	// The context reaches the bus at every transaction.
	if len(seen) != len(Rails) {
		t.Fatalf("%d transactions, expected %d", len(seen), len(Rails))
	}
	for _, v := range seen {
		if v != "tx" {
			t.Errorf("context value %v", v)
		}
	}
}
