// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"errors"
	"fmt"
)

// FrameErrorKind classifies framing failures
type FrameErrorKind int

const (
	SyncByteMismatch FrameErrorKind = iota + 1
	HeaderCRCMismatch
	DataCRCMismatch
	TruncatedFrame
)

func (k FrameErrorKind) String() string {
	switch k {
	case SyncByteMismatch:
		return "sync byte mismatch"
	case HeaderCRCMismatch:
		return "header CRC mismatch"
	case DataCRCMismatch:
		return "data CRC mismatch"
	case TruncatedFrame:
		return "truncated frame"
	default:
		return fmt.Sprintf("frame error %d", int(k))
	}
}

// Sentinel errors, matched with errors.Is against any *FrameError of the same kind
var (
	ErrSyncByteMismatch  = &FrameError{Kind: SyncByteMismatch}
	ErrHeaderCRCMismatch = &FrameError{Kind: HeaderCRCMismatch}
	ErrDataCRCMismatch   = &FrameError{Kind: DataCRCMismatch}
	ErrTruncatedFrame    = &FrameError{Kind: TruncatedFrame}
)

// FrameError describes a malformed frame.
// For CRC errors Expected is the computed checksum and Actual the received one.
// For truncated frames Expected is the declared frame size and Actual the bytes available.
type FrameError struct {
	Kind     FrameErrorKind
	Expected int
	Actual   int
}

// Error implements the error interface
func (e *FrameError) Error() string {
	switch e.Kind {
	case SyncByteMismatch:
		return fmt.Sprintf("esp3: %s: got 0x%02X", e.Kind, e.Actual)
	case HeaderCRCMismatch, DataCRCMismatch:
		return fmt.Sprintf("esp3: %s: expected 0x%02X, got 0x%02X", e.Kind, e.Expected, e.Actual)
	case TruncatedFrame:
		return fmt.Sprintf("esp3: %s: need %d bytes, have %d", e.Kind, e.Expected, e.Actual)
	default:
		return "esp3: " + e.Kind.String()
	}
}

// Is matches frame errors by kind
func (e *FrameError) Is(target error) bool {
	var fe *FrameError
	if !errors.As(target, &fe) {
		return false
	}
	return fe.Kind == e.Kind
}

// IsCRCError reports whether err is a header or data checksum failure
func IsCRCError(err error) bool {
	return errors.Is(err, ErrHeaderCRCMismatch) || errors.Is(err, ErrDataCRCMismatch)
}
