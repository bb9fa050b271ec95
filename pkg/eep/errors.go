// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

var (
	ErrUnknownDevice       = errors.New("eep: unknown device")
	ErrUnknownProfile      = errors.New("eep: unknown profile")
	ErrBitRangeOutOfBounds = errors.New("eep: bit range out of bounds")
	ErrRORGMismatch        = errors.New("eep: telegram RORG does not match profile")
	ErrUnknownVariant      = errors.New("eep: no layout for selector value")
	ErrInvalidProfile      = errors.New("eep: invalid profile")
	ErrNotTeachIn          = errors.New("eep: not a teach-in telegram")
	ErrNoProfileInfo       = errors.New("eep: teach-in carries no profile")
	ErrInvalidCommand      = errors.New("eep: invalid command")
)

// DecodeError adds device and profile context to a per-telegram decode failure
type DecodeError struct {
	Device  erp1.DeviceID
	Profile ProfileID
	Field   string
	Err     error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	var parts []string
	if e.Device != 0 {
		parts = append(parts, "device "+e.Device.String())
	}
	if e.Profile != (ProfileID{}) {
		parts = append(parts, "profile "+e.Profile.String())
	}
	if e.Field != "" {
		parts = append(parts, "field "+e.Field)
	}
	if len(parts) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Err)
}

// Unwrap returns the underlying sentinel error
func (e *DecodeError) Unwrap() error {
	return e.Err
}
