// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import "github.com/Thermoquad/enostat/pkg/erp1"

// Built-in profile IDs
var (
	ProfileA50205 = ProfileID{RORG: erp1.RORG4BS, Func: 0x02, Type: 0x05}
	ProfileA50401 = ProfileID{RORG: erp1.RORG4BS, Func: 0x04, Type: 0x01}
	ProfileA50701 = ProfileID{RORG: erp1.RORG4BS, Func: 0x07, Type: 0x01}
	ProfileA51201 = ProfileID{RORG: erp1.RORG4BS, Func: 0x12, Type: 0x01}
	ProfileD50001 = ProfileID{RORG: erp1.RORG1BS, Func: 0x00, Type: 0x01}
	ProfileF60201 = ProfileID{RORG: erp1.RORGRPS, Func: 0x02, Type: 0x01}
	ProfileF60202 = ProfileID{RORG: erp1.RORGRPS, Func: 0x02, Type: 0x02}
	ProfileD2010E = ProfileID{RORG: erp1.RORGVLD, Func: 0x01, Type: 0x0E}
)

// D2-01 command IDs
const (
	D201CmdSetOutput           = 0x01
	D201CmdSetLocal            = 0x02
	D201CmdStatusQuery         = 0x03
	D201CmdStatusResponse      = 0x04
	D201CmdSetMeasurement      = 0x05
	D201CmdMeasurementQuery    = 0x06
	D201CmdMeasurementResponse = 0x07
)

// lrnField is the 4BS/1BS learn bit at DB0.3
func lrnField(offset int) Field {
	return Field{
		Name:        "LRNB",
		Description: "Learn button",
		Offset:      offset,
		Size:        1,
		Enum:        map[uint64]string{0: "Teach-in telegram", 1: "Data telegram"},
	}
}

var rockerActions = map[uint64]string{
	0: "Button AI",
	1: "Button A0",
	2: "Button BI",
	3: "Button B0",
}

func rockerFields() []Field {
	return []Field{
		{Name: "R1", Description: "Rocker 1st action", Offset: 0, Size: 3, Enum: rockerActions},
		{Name: "EB", Description: "Energy bow", Offset: 3, Size: 1, Enum: map[uint64]string{0: "released", 1: "pressed"}},
		{Name: "R2", Description: "Rocker 2nd action", Offset: 4, Size: 3, Enum: rockerActions},
		{Name: "SA", Description: "2nd action", Offset: 7, Size: 1, Enum: map[uint64]string{0: "No 2nd action", 1: "2nd action valid"}},
	}
}

// BuiltinProfiles returns the profiles shipped with the package
func BuiltinProfiles() []*Profile {
	return []*Profile{
		{
			ID:    ProfileA50205,
			Title: "Temperature Sensor Range 0°C to +40°C",
			Fields: []Field{
				{Name: "TMP", Description: "Temperature", Offset: 16, Size: 8, Unit: "°C", Scale: &Scale{RawMin: 255, RawMax: 0, Min: 0, Max: 40}},
				lrnField(28),
			},
		},
		{
			ID:    ProfileA50401,
			Title: "Temperature and Humidity Sensor 0°C to +40°C, 0% to 100%",
			Fields: []Field{
				{Name: "HUM", Description: "Rel. Humidity (linear)", Offset: 8, Size: 8, Unit: "%", Scale: &Scale{RawMin: 0, RawMax: 250, Min: 0, Max: 100}},
				{Name: "TMP", Description: "Temperature (linear)", Offset: 16, Size: 8, Unit: "°C", Scale: &Scale{RawMin: 0, RawMax: 250, Min: 0, Max: 40}},
				lrnField(28),
				{Name: "TSN", Description: "T-Sensor", Offset: 30, Size: 1, Enum: map[uint64]string{0: "not available", 1: "available"}},
			},
		},
		{
			ID:    ProfileA50701,
			Title: "Occupancy Sensor",
			Fields: []Field{
				{Name: "SVC", Description: "Supply voltage", Offset: 0, Size: 8, Unit: "V", Scale: &Scale{RawMin: 0, RawMax: 250, Min: 0, Max: 5}},
				{Name: "PIRS", Description: "PIR status (0-127 uncertain, 128-255 motion)", Offset: 16, Size: 8},
				lrnField(28),
				{Name: "SVA", Description: "Supply voltage availability", Offset: 31, Size: 1, Enum: map[uint64]string{0: "not supported", 1: "supported"}},
			},
		},
		{
			ID:    ProfileA51201,
			Title: "Automated Meter Reading - Electricity",
			Fields: []Field{
				{Name: "MR", Description: "Meter reading", Offset: 0, Size: 24},
				{Name: "TI", Description: "Tariff info", Offset: 24, Size: 4},
				lrnField(28),
				{Name: "DT", Description: "Data type", Offset: 29, Size: 1, Enum: map[uint64]string{0: "Cumulative value [kWh]", 1: "Current value [W]"}},
				{Name: "DIV", Description: "Divisor", Offset: 30, Size: 2, Enum: map[uint64]string{0: "x/1", 1: "x/10", 2: "x/100", 3: "x/1000"}},
			},
		},
		{
			ID:    ProfileD50001,
			Title: "Single Input Contact",
			Fields: []Field{
				lrnField(4),
				{Name: "CO", Description: "Contact", Offset: 7, Size: 1, Enum: map[uint64]string{0: "open", 1: "closed"}},
			},
		},
		{
			ID:     ProfileF60201,
			Title:  "Light and Blind Control - Application Style 1",
			Fields: rockerFields(),
		},
		{
			ID:     ProfileF60202,
			Title:  "Light and Blind Control - Application Style 2",
			Fields: rockerFields(),
		},
		{
			ID:       ProfileD2010E,
			Title:    "Electronic switch with local control, metering",
			Selector: &Field{Name: "CMD", Description: "Command ID", Offset: 4, Size: 4},
			Variants: map[uint64][]Field{
				D201CmdStatusResponse: {
					{Name: "PF", Description: "Power failure", Offset: 0, Size: 1, Enum: map[uint64]string{0: "disabled", 1: "enabled"}},
					{Name: "PFD", Description: "Power failure detection", Offset: 1, Size: 1, Enum: map[uint64]string{0: "not detected", 1: "detected"}},
					{Name: "OC", Description: "Over current switch off", Offset: 8, Size: 1, Enum: map[uint64]string{0: "ready", 1: "executed"}},
					{Name: "EL", Description: "Error level", Offset: 9, Size: 2, Enum: map[uint64]string{0: "hardware OK", 1: "hardware warning", 2: "hardware failure", 3: "not supported"}},
					{Name: "IO", Description: "I/O channel", Offset: 11, Size: 5},
					{Name: "LC", Description: "Local control", Offset: 16, Size: 1, Enum: map[uint64]string{0: "disabled", 1: "enabled"}},
					{Name: "OV", Description: "Output value", Offset: 17, Size: 7, Unit: "%", Enum: map[uint64]string{0: "OFF", 127: "not valid or not set"}},
				},
				D201CmdMeasurementResponse: {
					{Name: "UN", Description: "Unit", Offset: 8, Size: 3, Enum: map[uint64]string{0: "Energy [Ws]", 1: "Energy [Wh]", 2: "Energy [KWh]", 3: "Power [W]", 4: "Power [KW]"}},
					{Name: "IO", Description: "I/O channel", Offset: 11, Size: 5},
					{Name: "MV", Description: "Measurement value", Offset: 16, Size: 32},
				},
			},
		},
	}
}
