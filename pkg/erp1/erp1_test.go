// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package erp1

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

// ============================================================
// Test Helpers
// ============================================================

func mustDecodeFrame(t *testing.T, frame []byte) *esp3.Packet {
	t.Helper()
	p, err := esp3.Decode(frame)
	if err != nil {
		t.Fatalf("esp3.Decode error: %v", err)
	}
	return p
}

// F6 telegram received through a repeater: subtel 2, RSSI -48 dBm
var frameRPSRepeated = []byte{
	0x55, 0x00, 0x07, 0x07, 0x01, 0x7A,
	0xF6, 0x00, 0xFE, 0xF5, 0x8F, 0xD4, 0x20,
	0x02, 0xFF, 0xFF, 0xFF, 0xFF, 0x30, 0x00,
	0x27,
}

// F6 rocker press emulated by the host (send defaults in optional data)
var frameRPSSend = []byte{
	0x55, 0x00, 0x07, 0x07, 0x01, 0x7A,
	0xF6, 0x08, 0x00, 0x00, 0x00, 0x00, 0x30,
	0x03, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00,
	0xD0,
}

// ============================================================
// Decode Tests
// ============================================================

func TestDecode_4BS(t *testing.T) {
	data := []byte{0xA5, 0x11, 0x22, 0x33, 0x44, 0x01, 0x02, 0x03, 0x04, 0x00}
	tel, err := Decode(esp3.NewPacket(esp3.PacketTypeRadioERP1, data, nil))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if tel.RORG != RORG4BS {
		t.Errorf("Expected RORG 4BS, got %s", tel.RORG)
	}
	if tel.SenderID != 0x01020304 {
		t.Errorf("Expected sender 0x01020304, got %s", tel.SenderID)
	}
	if !bytes.Equal(tel.Payload, []byte{0x11, 0x22, 0x33, 0x44}) {
		t.Errorf("Payload mismatch: %s", esp3.FormatHex(tel.Payload))
	}
	if tel.Status != 0x00 {
		t.Errorf("Expected status 0x00, got 0x%02X", tel.Status)
	}
}

func TestDecode_OptionalDataAbsent(t *testing.T) {
	data := []byte{0xA5, 0x11, 0x22, 0x33, 0x44, 0x01, 0x02, 0x03, 0x04, 0x00}
	tel, err := Decode(esp3.NewPacket(esp3.PacketTypeRadioERP1, data, nil))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if tel.SubTelegramCount != nil || tel.DestinationID != nil || tel.RSSI != nil || tel.SecurityLevel != nil {
		t.Error("Optional fields must be absent without optional data")
	}
}

func TestDecode_OptionalDataPartial(t *testing.T) {
	data := []byte{0xF6, 0x30, 0x01, 0x02, 0x03, 0x04, 0x30}

	tests := []struct {
		name        string
		opt         []byte
		subTel      bool
		destination bool
		rssi        bool
		security    bool
	}{
		{"subtel only", []byte{0x01}, true, false, false, false},
		{"partial destination", []byte{0x01, 0xFF, 0xFF}, true, false, false, false},
		{"destination", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF}, true, true, false, false},
		{"rssi", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x40}, true, true, true, false},
		{"complete", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x40, 0x00}, true, true, true, true},
		{"send marker rssi", []byte{0x03, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}, true, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel, err := Decode(esp3.NewPacket(esp3.PacketTypeRadioERP1, data, tt.opt))
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if (tel.SubTelegramCount != nil) != tt.subTel {
				t.Errorf("SubTelegramCount present=%v, want %v", tel.SubTelegramCount != nil, tt.subTel)
			}
			if (tel.DestinationID != nil) != tt.destination {
				t.Errorf("DestinationID present=%v, want %v", tel.DestinationID != nil, tt.destination)
			}
			if (tel.RSSI != nil) != tt.rssi {
				t.Errorf("RSSI present=%v, want %v", tel.RSSI != nil, tt.rssi)
			}
			if (tel.SecurityLevel != nil) != tt.security {
				t.Errorf("SecurityLevel present=%v, want %v", tel.SecurityLevel != nil, tt.security)
			}
		})
	}
}

func TestDecode_RepeatedRPS(t *testing.T) {
	tel, err := Decode(mustDecodeFrame(t, frameRPSRepeated))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if tel.RORG != RORGRPS {
		t.Errorf("Expected RPS, got %s", tel.RORG)
	}
	if tel.SenderID != 0xFEF58FD4 {
		t.Errorf("Expected sender FE:F5:8F:D4, got %s", tel.SenderID)
	}
	if tel.Status != 0x20 {
		t.Errorf("Expected status 0x20, got 0x%02X", tel.Status)
	}
	if tel.SubTelegramCount == nil || *tel.SubTelegramCount != 2 {
		t.Errorf("Expected subtel 2, got %v", tel.SubTelegramCount)
	}
	if tel.DestinationID == nil || *tel.DestinationID != BroadcastID {
		t.Errorf("Expected broadcast destination, got %v", tel.DestinationID)
	}
	if tel.RSSI == nil || *tel.RSSI != -48 {
		t.Errorf("Expected RSSI -48 dBm, got %v", tel.RSSI)
	}
	if tel.SecurityLevel == nil || *tel.SecurityLevel != 0 {
		t.Errorf("Expected security level 0, got %v", tel.SecurityLevel)
	}
	if !tel.IsBroadcast() {
		t.Error("Telegram should be a broadcast")
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(esp3.NewPacket(esp3.PacketTypeResponse, []byte{0x00}, nil))
	if !errors.Is(err, ErrWrongPacketType) {
		t.Errorf("Expected ErrWrongPacketType, got %v", err)
	}

	_, err = Decode(esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xF6, 0x01, 0x02, 0x03, 0x04}, nil))
	if !errors.Is(err, ErrPayloadTooShort) {
		t.Errorf("Expected ErrPayloadTooShort, got %v", err)
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	tel, err := Decode(esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xF6, 0x01, 0x02, 0x03, 0x04, 0x30}, nil))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if tel.RORG != RORGRPS {
		t.Errorf("Expected RORG %s, got %s", RORGRPS, tel.RORG)
	}
	if len(tel.Payload) != 0 {
		t.Errorf("Expected empty payload, got % X", tel.Payload)
	}
	if tel.SenderID != 0x01020304 {
		t.Errorf("Expected sender 01:02:03:04, got %s", tel.SenderID)
	}
	if tel.Status != 0x30 {
		t.Errorf("Expected status 0x30, got 0x%02X", tel.Status)
	}
	if tel.IsTeachIn() {
		t.Error("Empty payload should not be a teach-in")
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestTelegramPacket_SendDefaults(t *testing.T) {
	tel := NewTelegram(RORGRPS, []byte{0x08}, 0x00000000, 0x30).Addressed(BroadcastID)

	encoded := esp3.EncodePacket(tel.Packet())
	if !bytes.Equal(encoded, frameRPSSend) {
		t.Errorf("Encoding mismatch:\n  got  %s\n  want %s", esp3.FormatHex(encoded), esp3.FormatHex(frameRPSSend))
	}
}

func TestTelegramPacket_RoundTrip(t *testing.T) {
	original, err := Decode(mustDecodeFrame(t, frameRPSRepeated))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	again, err := Decode(original.Packet())
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !bytes.Equal(esp3.EncodePacket(again.Packet()), frameRPSRepeated) {
		t.Error("Re-encoded telegram differs from received frame")
	}
}

func TestTelegramPacket_NoOptional(t *testing.T) {
	p := NewTelegram(RORG1BS, []byte{0x09}, 0x01020304, 0x00).Packet()
	if len(p.OptionalData()) != 0 {
		t.Errorf("Expected no optional data, got %s", esp3.FormatHex(p.OptionalData()))
	}
	if !bytes.Equal(p.Data(), []byte{0xD5, 0x09, 0x01, 0x02, 0x03, 0x04, 0x00}) {
		t.Errorf("Data mismatch: %s", esp3.FormatHex(p.Data()))
	}
}

// ============================================================
// Device ID Tests
// ============================================================

func TestParseDeviceID(t *testing.T) {
	tests := []struct {
		input    string
		expected DeviceID
		wantErr  bool
	}{
		{"05:11:72:F7", 0x051172F7, false},
		{"051172f7", 0x051172F7, false},
		{"0x051172F7", 0x051172F7, false},
		{" FF:FF:FF:FF ", BroadcastID, false},
		{"05:11:72", 0, true},
		{"GG:11:72:F7", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := ParseDeviceID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDeviceID) {
					t.Errorf("Expected ErrInvalidDeviceID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, id)
			}
		})
	}

	if s := DeviceID(0x051172F7).String(); s != "05:11:72:F7" {
		t.Errorf("String() = %s", s)
	}
}

// ============================================================
// Status and Teach-in Tests
// ============================================================

func TestIsTeachIn(t *testing.T) {
	tests := []struct {
		name     string
		rorg     RORG
		payload  []byte
		expected bool
	}{
		{"4BS data", RORG4BS, []byte{0x00, 0xE5, 0xCC, 0x0A}, false},
		{"4BS teach-in", RORG4BS, []byte{0x10, 0x08, 0x0D, 0x80}, true},
		{"1BS data", RORG1BS, []byte{0x09}, false},
		{"1BS teach-in", RORG1BS, []byte{0x00}, true},
		{"RPS", RORGRPS, []byte{0x00}, false},
		{"UTE", RORGUTE, []byte{0xA0, 0x01, 0x46, 0x00, 0x0E, 0x01, 0xD2}, true},
		{"short 4BS", RORG4BS, []byte{0x00}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel := NewTelegram(tt.rorg, tt.payload, 0x01020304, 0)
			if got := tel.IsTeachIn(); got != tt.expected {
				t.Errorf("IsTeachIn() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRepeaterCount(t *testing.T) {
	tel := NewTelegram(RORG4BS, []byte{0, 0, 0, 8}, 1, 0x02)
	if tel.RepeaterCount() != 2 {
		t.Errorf("Expected repeater count 2, got %d", tel.RepeaterCount())
	}
}

// ============================================================
// Validator Tests
// ============================================================

func TestValidatePacket(t *testing.T) {
	tests := []struct {
		name    string
		packet  *esp3.Packet
		anomaly []AnomalyType
	}{
		{
			name:   "valid RPS",
			packet: esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xF6, 0x30, 0xFE, 0xF5, 0x8F, 0xD4, 0x30}, nil),
		},
		{
			name:    "too short",
			packet:  esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xF6, 0x30}, nil),
			anomaly: []AnomalyType{AnomalyDecodeError},
		},
		{
			name:    "4BS wrong length",
			packet:  esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xA5, 0x01, 0x02, 0x01, 0x02, 0x03, 0x04, 0x00}, nil),
			anomaly: []AnomalyType{AnomalyPayloadLength},
		},
		{
			name:    "unknown RORG",
			packet:  esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0x42, 0x01, 0x01, 0x02, 0x03, 0x04, 0x00}, nil),
			anomaly: []AnomalyType{AnomalyUnknownRORG},
		},
		{
			name:    "broadcast sender",
			packet:  esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xD5, 0x09, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}, nil),
			anomaly: []AnomalyType{AnomalyInvalidSender},
		},
		{
			name:    "bad optional length",
			packet:  esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xD5, 0x09, 0x01, 0x02, 0x03, 0x04, 0x00}, []byte{0x01, 0x02}),
			anomaly: []AnomalyType{AnomalyOptionalLength},
		},
		{
			name:    "repeater count",
			packet:  esp3.NewPacket(esp3.PacketTypeRadioERP1, []byte{0xD5, 0x09, 0x01, 0x02, 0x03, 0x04, 0x05}, nil),
			anomaly: []AnomalyType{AnomalyRepeaterCount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePacket(tt.packet)
			if len(errs) != len(tt.anomaly) {
				t.Fatalf("Expected %d anomalies, got %d: %v", len(tt.anomaly), len(errs), errs)
			}
			for i, want := range tt.anomaly {
				if errs[i].Type != want {
					t.Errorf("Anomaly %d: expected type %d, got %d (%s)", i, want, errs[i].Type, errs[i].Message)
				}
			}
		})
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatTelegram(t *testing.T) {
	tel, err := Decode(mustDecodeFrame(t, frameRPSRepeated))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	out := FormatTelegram(tel)
	for _, want := range []string{"RPS (0xF6)", "FE:F5:8F:D4", "rssi=-48dBm", "subtel=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}
