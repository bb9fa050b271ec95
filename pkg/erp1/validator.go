// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package erp1

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

// AnomalyType represents different types of telegram anomalies
type AnomalyType int

const (
	AnomalyDecodeError AnomalyType = iota
	AnomalyUnknownRORG
	AnomalyPayloadLength
	AnomalyOptionalLength
	AnomalyInvalidSender
	AnomalyRepeaterCount
)

// ValidationError represents a telegram validation finding
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// fixedPayloadSizes lists telegram types with a fixed payload length
var fixedPayloadSizes = map[RORG]int{
	RORGRPS: 1,
	RORG1BS: 1,
	RORG4BS: 4,
}

// ValidatePacket checks a RADIO_ERP1 packet for structural anomalies.
// Returns a slice of validation errors (empty if the telegram looks sane).
func ValidatePacket(p *esp3.Packet) []ValidationError {
	t, err := Decode(p)
	if err != nil {
		details := map[string]interface{}{"data_length": len(p.Data())}
		if errors.Is(err, ErrWrongPacketType) {
			details["packet_type"] = p.Type().String()
		}
		return []ValidationError{{
			Type:    AnomalyDecodeError,
			Message: err.Error(),
			Details: details,
		}}
	}

	errs := ValidateTelegram(t)

	if n := len(p.OptionalData()); n != 0 && n != OptionalDataSize {
		errs = append(errs, ValidationError{
			Type:    AnomalyOptionalLength,
			Message: fmt.Sprintf("optional data length %d (expected 0 or %d)", n, OptionalDataSize),
			Details: map[string]interface{}{"length": n, "expected": OptionalDataSize},
		})
	}

	return errs
}

// ValidateTelegram checks a decoded telegram for anomalies
func ValidateTelegram(t *Telegram) []ValidationError {
	errs := []ValidationError{}

	if !t.RORG.Known() {
		errs = append(errs, ValidationError{
			Type:    AnomalyUnknownRORG,
			Message: fmt.Sprintf("unknown RORG 0x%02X", uint8(t.RORG)),
			Details: map[string]interface{}{"rorg": uint8(t.RORG)},
		})
	}

	if want, ok := fixedPayloadSizes[t.RORG]; ok && len(t.Payload) != want {
		errs = append(errs, ValidationError{
			Type:    AnomalyPayloadLength,
			Message: fmt.Sprintf("%s payload is %d bytes (expected %d)", t.RORG, len(t.Payload), want),
			Details: map[string]interface{}{"received": len(t.Payload), "expected": want},
		})
	}

	if t.SenderID == 0 || t.SenderID == BroadcastID {
		errs = append(errs, ValidationError{
			Type:    AnomalyInvalidSender,
			Message: fmt.Sprintf("invalid sender ID %s", t.SenderID),
			Details: map[string]interface{}{"sender": uint32(t.SenderID)},
		})
	}

	// Repeaters support at most two levels
	if t.RORG != RORGRPS && t.RepeaterCount() > 2 {
		errs = append(errs, ValidationError{
			Type:    AnomalyRepeaterCount,
			Message: fmt.Sprintf("repeater count %d (max 2)", t.RepeaterCount()),
			Details: map[string]interface{}{"count": t.RepeaterCount()},
		})
	}

	return errs
}
