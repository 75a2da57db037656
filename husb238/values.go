// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package husb238

import (
	"strconv"

	"periph.io/x/conn/v3/physic"
)

// Register is the address of one of the chip registers.
type Register byte

const (
	RegPDStatus0 Register = 0x00 // R, negotiated voltage and current
	RegPDStatus1 Register = 0x01 // R, unused by this driver
	RegSrcPDO5V  Register = 0x02 // R, 5V rail detection
	RegSrcPDO9V  Register = 0x03 // R, 9V rail detection
	RegSrcPDO12V Register = 0x04 // R, 12V rail detection
	RegSrcPDO15V Register = 0x05 // R, 15V rail detection
	RegSrcPDO18V Register = 0x06 // R, 18V rail detection
	RegSrcPDO20V Register = 0x07 // R, 20V rail detection
	RegSrcPDO    Register = 0x08 // R/W, selected source profile
	RegGoCommand Register = 0x09 // W, command trigger
)

func (r Register) String() string {
	switch r {
	case RegPDStatus0:
		return "PD_STATUS0"
	case RegPDStatus1:
		return "PD_STATUS1"
	case RegSrcPDO5V:
		return "SRC_PDO_5V"
	case RegSrcPDO9V:
		return "SRC_PDO_9V"
	case RegSrcPDO12V:
		return "SRC_PDO_12V"
	case RegSrcPDO15V:
		return "SRC_PDO_15V"
	case RegSrcPDO18V:
		return "SRC_PDO_18V"
	case RegSrcPDO20V:
		return "SRC_PDO_20V"
	case RegSrcPDO:
		return "SRC_PDO"
	case RegGoCommand:
		return "GO_COMMAND"
	default:
		return "Register(0x" + strconv.FormatUint(uint64(r), 16) + ")"
	}
}

const (
	statusVoltageMask byte = 0xF0
	statusCurrentMask byte = 0x0F
	srcPDOMask        byte = 0xF0
	detectedBit       byte = 0x80
)

// Voltage is the negotiated voltage reported in PD_STATUS0.
//
// The value is the raw high nibble of the register.
type Voltage byte

const (
	Unattached Voltage = 0x00
	Voltage5V  Voltage = 0x10
	Voltage9V  Voltage = 0x20
	Voltage12V Voltage = 0x30
	Voltage15V Voltage = 0x40
	Voltage18V Voltage = 0x50
	Voltage20V Voltage = 0x60
	// VoltageReserved stands for every encoding the chip leaves undefined.
	VoltageReserved Voltage = 0x70
)

// VoltageFromStatus decodes the voltage field of a PD_STATUS0 byte.
//
// It never fails; undefined encodings decode to VoltageReserved.
func VoltageFromStatus(b byte) Voltage {
	switch v := Voltage(b & statusVoltageMask); v {
	case Unattached, Voltage5V, Voltage9V, Voltage12V, Voltage15V, Voltage18V, Voltage20V:
		return v
	default:
		return VoltageReserved
	}
}

// Potential returns the voltage as a physical value. ok is false for
// Unattached and VoltageReserved.
func (v Voltage) Potential() (p physic.ElectricPotential, ok bool) {
	switch v {
	case Voltage5V:
		return 5 * physic.Volt, true
	case Voltage9V:
		return 9 * physic.Volt, true
	case Voltage12V:
		return 12 * physic.Volt, true
	case Voltage15V:
		return 15 * physic.Volt, true
	case Voltage18V:
		return 18 * physic.Volt, true
	case Voltage20V:
		return 20 * physic.Volt, true
	default:
		return 0, false
	}
}

func (v Voltage) String() string {
	switch v {
	case Unattached:
		return "Unattached"
	case Voltage5V:
		return "5V"
	case Voltage9V:
		return "9V"
	case Voltage12V:
		return "12V"
	case Voltage15V:
		return "15V"
	case Voltage18V:
		return "18V"
	case Voltage20V:
		return "20V"
	default:
		return "Reserved"
	}
}

// Current is one of the 16 current steps the chip encodes in 4 bits.
//
// The steps are not evenly spaced.
type Current byte

const (
	Current0A5  Current = 0x0
	Current0A7  Current = 0x1
	Current1A0  Current = 0x2
	Current1A25 Current = 0x3
	Current1A5  Current = 0x4
	Current1A75 Current = 0x5
	Current2A0  Current = 0x6
	Current2A25 Current = 0x7
	Current2A5  Current = 0x8
	Current2A75 Current = 0x9
	Current3A0  Current = 0xA
	Current3A25 Current = 0xB
	Current3A5  Current = 0xC
	Current4A0  Current = 0xD
	Current4A5  Current = 0xE
	Current5A0  Current = 0xF
)

// currentSteps is indexed by the 4 bit encoding.
var currentSteps = [16]struct {
	value physic.ElectricCurrent
	label string
}{
	{500 * physic.MilliAmpere, "0.5A"},
	{700 * physic.MilliAmpere, "0.7A"},
	{1000 * physic.MilliAmpere, "1.0A"},
	{1250 * physic.MilliAmpere, "1.25A"},
	{1500 * physic.MilliAmpere, "1.5A"},
	{1750 * physic.MilliAmpere, "1.75A"},
	{2000 * physic.MilliAmpere, "2.0A"},
	{2250 * physic.MilliAmpere, "2.25A"},
	{2500 * physic.MilliAmpere, "2.5A"},
	{2750 * physic.MilliAmpere, "2.75A"},
	{3000 * physic.MilliAmpere, "3.0A"},
	{3250 * physic.MilliAmpere, "3.25A"},
	{3500 * physic.MilliAmpere, "3.5A"},
	{4000 * physic.MilliAmpere, "4.0A"},
	{4500 * physic.MilliAmpere, "4.5A"},
	{5000 * physic.MilliAmpere, "5.0A"},
}

// CurrentFromNibble decodes the low 4 bits of b. All 16 values are valid.
func CurrentFromNibble(b byte) Current {
	return Current(b & statusCurrentMask)
}

// Value returns the step as a physical value.
func (c Current) Value() physic.ElectricCurrent {
	return currentSteps[c&0x0F].value
}

func (c Current) String() string {
	return currentSteps[c&0x0F].label
}

// SourceProfile is the profile held in the SRC_PDO register.
//
// The 15V, 18V and 20V encodings differ from the ones used by Voltage in
// PD_STATUS0. This is how the chip works.
type SourceProfile byte

const (
	NotSelected SourceProfile = 0x00
	Profile5V   SourceProfile = 0x10
	Profile9V   SourceProfile = 0x20
	Profile12V  SourceProfile = 0x30
	Profile15V  SourceProfile = 0x80
	Profile18V  SourceProfile = 0x90
	Profile20V  SourceProfile = 0xA0
	// ProfileReserved stands for every encoding the chip leaves undefined.
	ProfileReserved SourceProfile = 0xF0
)

// ProfileFromRegister decodes the profile field of a SRC_PDO byte.
//
// It never fails; undefined encodings decode to ProfileReserved.
func ProfileFromRegister(b byte) SourceProfile {
	switch p := SourceProfile(b & srcPDOMask); p {
	case NotSelected, Profile5V, Profile9V, Profile12V, Profile15V, Profile18V, Profile20V:
		return p
	default:
		return ProfileReserved
	}
}

// ParseProfile returns the profile with the given label, for example "9V".
func ParseProfile(s string) (SourceProfile, bool) {
	for _, p := range []SourceProfile{NotSelected, Profile5V, Profile9V, Profile12V, Profile15V, Profile18V, Profile20V} {
		if p.String() == s {
			return p, true
		}
	}
	return ProfileReserved, false
}

func (p SourceProfile) String() string {
	switch p {
	case NotSelected:
		return "NotSelected"
	case Profile5V:
		return "5V"
	case Profile9V:
		return "9V"
	case Profile12V:
		return "12V"
	case Profile15V:
		return "15V"
	case Profile18V:
		return "18V"
	case Profile20V:
		return "20V"
	default:
		return "Reserved"
	}
}

// Command is a one-shot action written to GO_COMMAND.
type Command byte

const (
	// Request asks the source for the profile selected in SRC_PDO.
	Request Command = 0x01
	// GetSourceCapabilities asks the source to resend its capabilities, which
	// refreshes the SRC_PDO_xV registers.
	GetSourceCapabilities Command = 0x04
	// HardReset sends a PD hard reset to the source.
	HardReset Command = 0x10
)

func (c Command) String() string {
	switch c {
	case Request:
		return "Request"
	case GetSourceCapabilities:
		return "GetSourceCapabilities"
	case HardReset:
		return "HardReset"
	default:
		return "Command(0x" + strconv.FormatUint(uint64(c), 16) + ")"
	}
}

// Rail is one of the fixed voltage tiers a source may offer.
type Rail uint8

const (
	Rail5V Rail = iota
	Rail9V
	Rail12V
	Rail15V
	Rail18V
	Rail20V
)

// Rails lists every rail in ascending voltage order.
var Rails = [...]Rail{Rail5V, Rail9V, Rail12V, Rail15V, Rail18V, Rail20V}

var rails = [...]struct {
	reg     Register
	voltage Voltage
	profile SourceProfile
}{
	Rail5V:  {RegSrcPDO5V, Voltage5V, Profile5V},
	Rail9V:  {RegSrcPDO9V, Voltage9V, Profile9V},
	Rail12V: {RegSrcPDO12V, Voltage12V, Profile12V},
	Rail15V: {RegSrcPDO15V, Voltage15V, Profile15V},
	Rail18V: {RegSrcPDO18V, Voltage18V, Profile18V},
	Rail20V: {RegSrcPDO20V, Voltage20V, Profile20V},
}

func (r Rail) info() (reg Register, v Voltage, p SourceProfile, ok bool) {
	if int(r) >= len(rails) {
		return 0, Unattached, NotSelected, false
	}
	i := rails[r]
	return i.reg, i.voltage, i.profile, true
}

// Register returns the detection register of the rail.
func (r Rail) Register() Register {
	reg, _, _, _ := r.info()
	return reg
}

// Voltage returns the PD_STATUS0 encoding of the rail.
func (r Rail) Voltage() Voltage {
	_, v, _, _ := r.info()
	return v
}

// Profile returns the SRC_PDO encoding that selects the rail.
func (r Rail) Profile() SourceProfile {
	_, _, p, _ := r.info()
	return p
}

// Potential returns the nominal voltage of the rail.
func (r Rail) Potential() physic.ElectricPotential {
	p, _ := r.Voltage().Potential()
	return p
}

func (r Rail) String() string {
	if _, v, _, ok := r.info(); ok {
		return v.String()
	}
	return "Rail(" + strconv.Itoa(int(r)) + ")"
}

// RailOf returns the rail a profile selects. ok is false for NotSelected and
// ProfileReserved.
func RailOf(p SourceProfile) (Rail, bool) {
	for _, r := range Rails {
		if r.Profile() == p {
			return r, true
		}
	}
	return 0, false
}
