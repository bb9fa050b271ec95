// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

// Lookup returns the profile registered for a sender ID
func Lookup(registry *Registry, id erp1.DeviceID) (ProfileID, bool) {
	d, ok := registry.Lookup(id)
	return d.Profile, ok
}

// DecodePayload decodes every field of the profile layout that applies to payload
func DecodePayload(profile *Profile, payload []byte) (Values, error) {
	fields, err := profile.Layout(payload)
	if err != nil {
		de := &DecodeError{Profile: profile.ID, Err: err}
		if profile.Selector != nil {
			de.Field = profile.Selector.Name
		}
		return nil, de
	}

	values := make(Values, len(fields))
	for _, f := range fields {
		v, err := f.decode(payload)
		if err != nil {
			return nil, &DecodeError{Profile: profile.ID, Field: f.Name, Err: err}
		}
		values[f.Name] = v
	}
	return values, nil
}

// Result is a telegram decoded against its device profile
type Result struct {
	Telegram *erp1.Telegram
	Device   Device
	Profile  *Profile
	Fields   []Field // layout used, in payload order
	Values   Values
}

// Decoder decodes telegrams using an injected registry and catalog
type Decoder struct {
	registry *Registry
	catalog  *Catalog
}

// NewDecoder creates a decoder
func NewDecoder(registry *Registry, catalog *Catalog) *Decoder {
	return &Decoder{registry: registry, catalog: catalog}
}

// Registry returns the device registry
func (d *Decoder) Registry() *Registry {
	return d.registry
}

// Catalog returns the profile catalog
func (d *Decoder) Catalog() *Catalog {
	return d.catalog
}

// Decode looks up the sender and decodes the telegram payload.
// Errors are per telegram and wrap ErrUnknownDevice, ErrUnknownProfile,
// ErrRORGMismatch or ErrBitRangeOutOfBounds.
func (d *Decoder) Decode(t *erp1.Telegram) (*Result, error) {
	device, ok := d.registry.Lookup(t.SenderID)
	if !ok {
		return nil, &DecodeError{Device: t.SenderID, Err: ErrUnknownDevice}
	}

	profile, ok := d.catalog.Lookup(device.Profile)
	if !ok {
		return nil, &DecodeError{Device: t.SenderID, Profile: device.Profile, Err: ErrUnknownProfile}
	}
	if t.RORG != profile.ID.RORG {
		return nil, &DecodeError{
			Device:  t.SenderID,
			Profile: profile.ID,
			Err:     fmt.Errorf("%w: got %s", ErrRORGMismatch, t.RORG),
		}
	}

	fields, err := profile.Layout(t.Payload)
	if err != nil {
		return nil, &DecodeError{Device: t.SenderID, Profile: profile.ID, Err: err}
	}
	values, err := DecodePayload(profile, t.Payload)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Device = t.SenderID
		}
		return nil, err
	}

	return &Result{
		Telegram: t,
		Device:   device,
		Profile:  profile,
		Fields:   fields,
		Values:   values,
	}, nil
}

// Names returns the field names in sorted order
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatResult formats decoded values in payload order
func FormatResult(r *Result) string {
	var s strings.Builder
	name := r.Device.Name
	if name == "" {
		name = r.Device.ID.String()
	}
	fmt.Fprintf(&s, "  %s [%s] %s\n", name, r.Profile.ID, r.Profile.Title)
	for _, f := range r.Fields {
		v := r.Values[f.Name]
		fmt.Fprintf(&s, "    %-6s %s", f.Name, v)
		if f.Description != "" {
			fmt.Fprintf(&s, "  (%s)", f.Description)
		}
		s.WriteString("\n")
	}
	return s.String()
}
