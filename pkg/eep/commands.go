// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

// Telegram builders create outgoing telegrams for common profiles.
// Call Packet() on the result to obtain the RADIO_ERP1 packet.

// RockerButton identifies a rocker switch button (F6-02)
type RockerButton uint8

const (
	ButtonAI RockerButton = 0
	ButtonA0 RockerButton = 1
	ButtonBI RockerButton = 2
	ButtonB0 RockerButton = 3
)

// D2-01 output values
const (
	OutputOff = 0x00
	OutputOn  = 0x64
)

const rockerEnergyBow = 0x10

// ParseRockerButton parses a button name (AI, A0, BI or B0)
func ParseRockerButton(s string) (RockerButton, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AI":
		return ButtonAI, nil
	case "A0":
		return ButtonA0, nil
	case "BI":
		return ButtonBI, nil
	case "B0":
		return ButtonB0, nil
	}
	return 0, fmt.Errorf("%w: unknown rocker button %q", ErrInvalidCommand, s)
}

// NewActuatorCommand builds a D2-01 command from an action name: on, off,
// a percentage 0-100, status, energy or power.
func NewActuatorCommand(action string, sender, dest erp1.DeviceID, channel uint8) (*erp1.Telegram, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case "on":
		return NewActuatorSetOutput(sender, dest, channel, OutputOn), nil
	case "off":
		return NewActuatorSetOutput(sender, dest, channel, OutputOff), nil
	case "status":
		return NewActuatorStatusQuery(sender, dest, channel), nil
	case "energy":
		return NewActuatorMeasurementQuery(sender, dest, channel, false), nil
	case "power":
		return NewActuatorMeasurementQuery(sender, dest, channel, true), nil
	}

	value, err := strconv.ParseUint(strings.TrimSuffix(action, "%"), 10, 8)
	if err != nil || value > OutputOn {
		return nil, fmt.Errorf("%w: unknown actuator action %q", ErrInvalidCommand, action)
	}
	return NewActuatorSetOutput(sender, dest, channel, uint8(value)), nil
}

// NewRockerPress emulates pressing a rocker button (F6-02)
func NewRockerPress(sender erp1.DeviceID, button RockerButton) *erp1.Telegram {
	data := byte(button&0x07)<<5 | rockerEnergyBow
	return erp1.NewTelegram(erp1.RORGRPS, []byte{data}, sender, erp1.StatusT21|erp1.StatusNU).
		Addressed(erp1.BroadcastID)
}

// NewRockerRelease emulates releasing all rocker buttons (F6-02)
func NewRockerRelease(sender erp1.DeviceID) *erp1.Telegram {
	return erp1.NewTelegram(erp1.RORGRPS, []byte{0x00}, sender, erp1.StatusT21).
		Addressed(erp1.BroadcastID)
}

// NewActuatorSetOutput creates a D2-01 "Actuator Set Output" command.
// Value is 0 (off) to 100 (percent); channel 0x1E addresses all outputs.
func NewActuatorSetOutput(sender, dest erp1.DeviceID, channel, value uint8) *erp1.Telegram {
	payload := make([]byte, 3)
	_ = InsertBits(payload, 4, 4, D201CmdSetOutput)
	_ = InsertBits(payload, 11, 5, uint64(channel))
	_ = InsertBits(payload, 17, 7, uint64(value))
	return erp1.NewTelegram(erp1.RORGVLD, payload, sender, 0x00).Addressed(dest)
}

// NewActuatorStatusQuery creates a D2-01 "Actuator Status Query" command
func NewActuatorStatusQuery(sender, dest erp1.DeviceID, channel uint8) *erp1.Telegram {
	payload := make([]byte, 2)
	_ = InsertBits(payload, 4, 4, D201CmdStatusQuery)
	_ = InsertBits(payload, 11, 5, uint64(channel))
	return erp1.NewTelegram(erp1.RORGVLD, payload, sender, 0x00).Addressed(dest)
}

// NewActuatorMeasurementQuery creates a D2-01 "Actuator Measurement Query".
// The device answers with energy, or with power when power is true.
func NewActuatorMeasurementQuery(sender, dest erp1.DeviceID, channel uint8, power bool) *erp1.Telegram {
	payload := make([]byte, 2)
	_ = InsertBits(payload, 4, 4, D201CmdMeasurementQuery)
	if power {
		_ = InsertBits(payload, 10, 1, 1)
	}
	_ = InsertBits(payload, 11, 5, uint64(channel))
	return erp1.NewTelegram(erp1.RORGVLD, payload, sender, 0x00).Addressed(dest)
}

// NewUTETeachInResponse answers a UTE teach-in query
func NewUTETeachInResponse(query *TeachIn, sender erp1.DeviceID, result UTEResult) *erp1.Telegram {
	db6 := byte(0x40) | byte(result&0x03)<<4 | uteCmdResponse
	if query.Bidirectional {
		db6 |= 0x80
	}
	payload := []byte{
		db6,
		query.Channels,
		byte(query.Manufacturer),
		byte(query.Manufacturer>>8) & 0x07,
		query.Profile.Type,
		query.Profile.Func,
		byte(query.Profile.RORG),
	}
	return erp1.NewTelegram(erp1.RORGUTE, payload, sender, 0x00).Addressed(query.Sender)
}
