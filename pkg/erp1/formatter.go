// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package erp1

import (
	"fmt"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

// Known reports whether the RORG is one of the defined telegram types
func (r RORG) Known() bool {
	switch r {
	case RORGRPS, RORG1BS, RORG4BS, RORGVLD, RORGMSC, RORGADT,
		RORGSMLrnReq, RORGSMLrnAns, RORGSMRec, RORGSysEx,
		RORGSec, RORGSecEncaps, RORGUTE:
		return true
	}
	return false
}

// String returns the short name of the telegram type
func (r RORG) String() string {
	switch r {
	case RORGRPS:
		return "RPS"
	case RORG1BS:
		return "1BS"
	case RORG4BS:
		return "4BS"
	case RORGVLD:
		return "VLD"
	case RORGMSC:
		return "MSC"
	case RORGADT:
		return "ADT"
	case RORGSMLrnReq:
		return "SM_LRN_REQ"
	case RORGSMLrnAns:
		return "SM_LRN_ANS"
	case RORGSMRec:
		return "SM_REC"
	case RORGSysEx:
		return "SYS_EX"
	case RORGSec:
		return "SEC"
	case RORGSecEncaps:
		return "SEC_ENCAPS"
	case RORGUTE:
		return "UTE"
	default:
		return fmt.Sprintf("RORG_0x%02X", uint8(r))
	}
}

// FormatTelegram formats a telegram into a human-readable string
func FormatTelegram(t *Telegram) string {
	result := fmt.Sprintf("  %s (0x%02X) from %s status=0x%02X",
		t.RORG, uint8(t.RORG), t.SenderID, t.Status)
	if t.IsTeachIn() {
		result += " [teach-in]"
	}
	result += "\n"
	result += fmt.Sprintf("  Payload: %s\n", esp3.FormatHex(t.Payload))

	if t.hasOptional() {
		result += "  Radio:"
		if t.SubTelegramCount != nil {
			result += fmt.Sprintf(" subtel=%d", *t.SubTelegramCount)
		}
		if t.DestinationID != nil {
			result += fmt.Sprintf(" dest=%s", *t.DestinationID)
		}
		if t.RSSI != nil {
			result += fmt.Sprintf(" rssi=%ddBm", *t.RSSI)
		}
		if t.SecurityLevel != nil {
			result += fmt.Sprintf(" security=%d", *t.SecurityLevel)
		}
		result += "\n"
	}

	return result
}
