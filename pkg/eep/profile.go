// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package eep interprets ERP1 telegram payloads according to EnOcean
// Equipment Profiles.
//
// A Profile describes the named bit fields of a payload. A Catalog holds the
// known profiles and a Registry maps sender IDs to the profile each device
// speaks. Both are supplied by the caller; nothing in this package assumes a
// particular installation.
package eep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

// ProfileID is an EEP identifier (RORG-FUNC-TYPE)
type ProfileID struct {
	RORG erp1.RORG
	Func uint8
	Type uint8
}

// String formats the ID as A5-04-01
func (id ProfileID) String() string {
	return fmt.Sprintf("%02X-%02X-%02X", uint8(id.RORG), id.Func, id.Type)
}

// ParseProfileID parses an identifier such as "A5-04-01"
func ParseProfileID(s string) (ProfileID, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return ProfileID{}, fmt.Errorf("%w: %q is not RORG-FUNC-TYPE", ErrInvalidProfile, s)
	}

	var values [3]uint8
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil || len(part) != 2 {
			return ProfileID{}, fmt.Errorf("%w: %q is not RORG-FUNC-TYPE", ErrInvalidProfile, s)
		}
		values[i] = uint8(v)
	}

	return ProfileID{RORG: erp1.RORG(values[0]), Func: values[1], Type: values[2]}, nil
}

// Scale maps a raw integer range linearly onto a physical range.
// Inverted ranges (RawMin > RawMax) are allowed.
type Scale struct {
	RawMin float64
	RawMax float64
	Min    float64
	Max    float64
}

// Apply converts a raw value
func (s Scale) Apply(raw uint64) float64 {
	if s.RawMax == s.RawMin {
		return s.Min
	}
	return s.Min + (float64(raw)-s.RawMin)*(s.Max-s.Min)/(s.RawMax-s.RawMin)
}

// Field is a named bit range within a payload
type Field struct {
	Name        string
	Description string
	Offset      int // bit offset, 0 is the MSB of the first payload byte
	Size        int // bits
	Unit        string
	Scale       *Scale
	Enum        map[uint64]string
}

// Profile describes the payload layout of one EEP.
//
// Profiles with a Selector (VLD command field) choose their layout from
// Variants by the selector's raw value; Fields then lists the fields common
// to all variants.
type Profile struct {
	ID       ProfileID
	Title    string
	Fields   []Field
	Selector *Field
	Variants map[uint64][]Field
}

// Validate checks field sizes and name uniqueness
func (p *Profile) Validate() error {
	base := p.Fields
	if p.Selector != nil {
		base = append([]Field{*p.Selector}, p.Fields...)
		if len(p.Variants) == 0 {
			return fmt.Errorf("%w: %s has a selector but no variants", ErrInvalidProfile, p.ID)
		}
	} else if len(p.Fields) == 0 {
		return fmt.Errorf("%w: %s has no fields", ErrInvalidProfile, p.ID)
	}

	if err := validateFields(p.ID, base); err != nil {
		return err
	}
	for value, fields := range p.Variants {
		if err := validateFields(p.ID, append(append([]Field{}, base...), fields...)); err != nil {
			return fmt.Errorf("variant %d: %w", value, err)
		}
	}
	return nil
}

func validateFields(id ProfileID, fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed field", ErrInvalidProfile, id)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s has duplicate field %s", ErrInvalidProfile, id, f.Name)
		}
		seen[f.Name] = true
		if f.Offset < 0 || f.Size <= 0 || f.Size > 64 {
			return fmt.Errorf("%w: %s field %s has offset %d size %d", ErrInvalidProfile, id, f.Name, f.Offset, f.Size)
		}
	}
	return nil
}

// Layout returns the fields that apply to payload
func (p *Profile) Layout(payload []byte) ([]Field, error) {
	if p.Selector == nil {
		return p.Fields, nil
	}

	selector, err := ExtractBits(payload, p.Selector.Offset, p.Selector.Size)
	if err != nil {
		return nil, err
	}
	variant, ok := p.Variants[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%d", ErrUnknownVariant, p.Selector.Name, selector)
	}

	fields := make([]Field, 0, 1+len(p.Fields)+len(variant))
	fields = append(fields, *p.Selector)
	fields = append(fields, p.Fields...)
	return append(fields, variant...), nil
}

// Value is a decoded field
type Value struct {
	Raw    uint64
	Value  float64 // scaled value, or Raw without scaling
	Unit   string
	Label  string // enumeration label, if any
	Scaled bool
}

// String renders the value the way a user reads it
func (v Value) String() string {
	if v.Label != "" {
		return v.Label
	}
	s := strconv.FormatFloat(v.Value, 'f', -1, 64)
	if v.Unit != "" {
		s += " " + v.Unit
	}
	return s
}

// Values maps field names to decoded values
type Values map[string]Value

// decode extracts and scales a single field
func (f Field) decode(payload []byte) (Value, error) {
	raw, err := ExtractBits(payload, f.Offset, f.Size)
	if err != nil {
		return Value{}, err
	}

	v := Value{Raw: raw, Value: float64(raw), Unit: f.Unit}
	if f.Scale != nil {
		v.Value = f.Scale.Apply(raw)
		v.Scaled = true
	}
	if label, ok := f.Enum[raw]; ok {
		v.Label = label
	}
	return v, nil
}
