// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

// Captured frames
var (
	// A5-04-01 from 05:11:72:F7, HUM 91.6 %, TMP 32.64 °C
	frameA50401 = []byte{
		0x55, 0x00, 0x0A, 0x07, 0x01, 0xEB,
		0xA5, 0x00, 0xE5, 0xCC, 0x0A, 0x05, 0x11, 0x72, 0xF7, 0x00,
		0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x36, 0x00,
		0xD5,
	}

	// D2-01 measurement response from 05:0A:3D:6A, 19 W
	frameD2Power = []byte{
		0x55, 0x00, 0x0C, 0x07, 0x01, 0x96,
		0xD2, 0x07, 0x60, 0x00, 0x00, 0x00, 0x13, 0x05, 0x0A, 0x3D, 0x6A, 0x00,
		0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x3D, 0x00,
		0xF1,
	}

	// F6-02 rocker from 00:31:C0:F9, button A0 pressed
	frameRockerA0 = []byte{
		85, 0, 7, 7, 1, 122,
		246, 48, 0, 49, 192, 249, 48,
		1, 255, 255, 255, 255, 51, 0,
		144,
	}

	// UTE teach-in response to 05:0A:3D:6A accepting D2-01-0E
	frameUTEResponse = []byte{
		0x55, 0x00, 0x0D, 0x07, 0x01, 0xFD,
		0xD4, 0xD1, 0x01, 0x46, 0x00, 0x0E, 0x01, 0xD2, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x03, 0x05, 0x0A, 0x3D, 0x6A, 0xFF, 0x00,
		0x6D,
	}
)

func decodeTelegram(t *testing.T, frame []byte) *erp1.Telegram {
	t.Helper()
	p, err := esp3.Decode(frame)
	require.NoError(t, err)
	tel, err := erp1.Decode(p)
	require.NoError(t, err)
	return tel
}

func testDecoder(devices ...Device) *Decoder {
	return NewDecoder(NewRegistry(devices...), DefaultCatalog())
}

// ============================================================================
// Bit Extraction Tests
// ============================================================================

func TestExtractBits(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		offset  int
		size    int
		want    uint64
	}{
		{"crosses byte boundary", []byte{0x3F, 0x00}, 4, 8, 0xF0},
		{"msb of first byte", []byte{0x80}, 0, 1, 1},
		{"lsb of first byte", []byte{0x01}, 7, 1, 1},
		{"whole byte", []byte{0x00, 0xE5}, 8, 8, 0xE5},
		{"32 bit value", []byte{0x00, 0x00, 0x00, 0x13}, 0, 32, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBits(tt.payload, tt.offset, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBits_OutOfBounds(t *testing.T) {
	cases := []struct{ offset, size int }{{4, 13}, {16, 1}, {-1, 2}, {0, 0}, {0, 65}}
	for _, c := range cases {
		_, err := ExtractBits([]byte{0x00, 0x00}, c.offset, c.size)
		assert.ErrorIs(t, err, ErrBitRangeOutOfBounds, "offset %d size %d", c.offset, c.size)
	}
}

func TestInsertBits(t *testing.T) {
	payload := []byte{0xFF, 0xFF}
	require.NoError(t, InsertBits(payload, 4, 8, 0x0A))
	assert.Equal(t, []byte{0xF0, 0xAF}, payload)

	got, err := ExtractBits(payload, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0A), got)

	assert.ErrorIs(t, InsertBits(payload, 12, 5, 1), ErrBitRangeOutOfBounds)
}

// ============================================================================
// Profile Tests
// ============================================================================

func TestParseProfileID(t *testing.T) {
	id, err := ParseProfileID("a5-04-01")
	require.NoError(t, err)
	assert.Equal(t, ProfileA50401, id)
	assert.Equal(t, "A5-04-01", id.String())

	for _, s := range []string{"", "A5-04", "A5-04-1", "ZZ-04-01", "A5-04-01-00"} {
		_, err := ParseProfileID(s)
		assert.ErrorIs(t, err, ErrInvalidProfile, s)
	}
}

func TestScale_Apply(t *testing.T) {
	inverted := Scale{RawMin: 255, RawMax: 0, Min: 0, Max: 40}
	assert.InDelta(t, 40.0, inverted.Apply(0), 1e-9)
	assert.InDelta(t, 0.0, inverted.Apply(255), 1e-9)

	degenerate := Scale{RawMin: 3, RawMax: 3, Min: 7, Max: 9}
	assert.Equal(t, 7.0, degenerate.Apply(3))
}

func TestProfile_Validate(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		assert.NoError(t, p.Validate(), p.ID.String())
	}

	dup := &Profile{ID: ProfileA50401, Fields: []Field{
		{Name: "A", Offset: 0, Size: 1},
		{Name: "A", Offset: 1, Size: 1},
	}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidProfile)

	empty := &Profile{ID: ProfileA50401}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidProfile)

	selectorClash := &Profile{
		ID:       ProfileD2010E,
		Selector: &Field{Name: "CMD", Offset: 4, Size: 4},
		Variants: map[uint64][]Field{1: {{Name: "CMD", Offset: 8, Size: 1}}},
	}
	assert.ErrorIs(t, selectorClash.Validate(), ErrInvalidProfile)
}

func TestCatalog_Default(t *testing.T) {
	c := DefaultCatalog()
	profiles := c.Profiles()
	require.Len(t, profiles, len(BuiltinProfiles()))
	for i := 1; i < len(profiles); i++ {
		assert.Less(t, profiles[i-1].ID.String(), profiles[i].ID.String())
	}

	p, ok := c.Lookup(ProfileD2010E)
	require.True(t, ok)
	assert.NotNil(t, p.Selector)
}

// ============================================================================
// Decoding Tests
// ============================================================================

func TestDecode_A50401(t *testing.T) {
	tel := decodeTelegram(t, frameA50401)
	d := testDecoder(Device{ID: 0x051172F7, Profile: ProfileA50401, Name: "office"})

	r, err := d.Decode(tel)
	require.NoError(t, err)
	assert.Equal(t, "office", r.Device.Name)
	assert.Equal(t, ProfileA50401, r.Profile.ID)

	assert.InDelta(t, 91.6, r.Values["HUM"].Value, 1e-9)
	assert.InDelta(t, 32.64, r.Values["TMP"].Value, 1e-9)
	assert.Equal(t, "91.6 %", r.Values["HUM"].String())
	assert.Equal(t, "32.64 °C", r.Values["TMP"].String())
	assert.Equal(t, "Data telegram", r.Values["LRNB"].String())
	assert.Equal(t, "available", r.Values["TSN"].String())

	assert.Equal(t, []string{"HUM", "LRNB", "TMP", "TSN"}, r.Values.Names())

	out := FormatResult(r)
	assert.Contains(t, out, "office [A5-04-01]")
	assert.Contains(t, out, "32.64 °C")
}

func TestDecode_D2MeasurementResponse(t *testing.T) {
	tel := decodeTelegram(t, frameD2Power)
	d := testDecoder(Device{ID: 0x050A3D6A, Profile: ProfileD2010E})

	r, err := d.Decode(tel)
	require.NoError(t, err)
	assert.Equal(t, uint64(D201CmdMeasurementResponse), r.Values["CMD"].Raw)
	assert.Equal(t, "Power [W]", r.Values["UN"].String())
	assert.Equal(t, uint64(0), r.Values["IO"].Raw)
	assert.Equal(t, uint64(19), r.Values["MV"].Raw)

	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"CMD", "UN", "IO", "MV"}, names)

	// No PF field in this variant
	_, ok := r.Values["PF"]
	assert.False(t, ok)
}

func TestDecode_D2UnknownVariant(t *testing.T) {
	tel := erp1.NewTelegram(erp1.RORGVLD, []byte{0x0F, 0x00}, 0x050A3D6A, 0x00)
	d := testDecoder(Device{ID: 0x050A3D6A, Profile: ProfileD2010E})

	_, err := d.Decode(tel)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestDecode_Rocker(t *testing.T) {
	tel := decodeTelegram(t, frameRockerA0)
	d := testDecoder(Device{ID: 0x0031C0F9, Profile: ProfileF60202})

	r, err := d.Decode(tel)
	require.NoError(t, err)
	assert.Equal(t, "Button A0", r.Values["R1"].String())
	assert.Equal(t, "pressed", r.Values["EB"].String())
	assert.Equal(t, "No 2nd action", r.Values["SA"].String())
}

func TestDecode_RockerStyle1(t *testing.T) {
	frame := []byte{85, 0, 7, 7, 1, 122, 246, 112, 254, 245, 143, 245, 48, 1, 255, 255, 255, 255, 46, 0, 249}
	tel := decodeTelegram(t, frame)
	assert.Equal(t, erp1.DeviceID(0xFEF58FF5), tel.SenderID)

	d := testDecoder(Device{ID: tel.SenderID, Profile: ProfileF60201})
	r, err := d.Decode(tel)
	require.NoError(t, err)
	assert.Equal(t, "Button B0", r.Values["R1"].String())
	assert.Equal(t, "pressed", r.Values["EB"].String())
}

func TestDecode_Contact(t *testing.T) {
	tel := erp1.NewTelegram(erp1.RORG1BS, []byte{0x09}, 0x01020304, 0x00)
	d := testDecoder(Device{ID: 0x01020304, Profile: ProfileD50001})

	r, err := d.Decode(tel)
	require.NoError(t, err)
	assert.Equal(t, "closed", r.Values["CO"].String())
	assert.Equal(t, "Data telegram", r.Values["LRNB"].String())
}

func TestDecode_UnknownDevice(t *testing.T) {
	tel := decodeTelegram(t, frameA50401)
	d := testDecoder()

	r, err := d.Decode(tel)
	assert.Nil(t, r)
	require.ErrorIs(t, err, ErrUnknownDevice)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, erp1.DeviceID(0x051172F7), de.Device)
	assert.Contains(t, err.Error(), "05:11:72:F7")
}

func TestDecode_UnknownProfile(t *testing.T) {
	tel := decodeTelegram(t, frameA50401)
	missing := ProfileID{RORG: erp1.RORG4BS, Func: 0x3F, Type: 0x7F}
	d := NewDecoder(NewRegistry(Device{ID: 0x051172F7, Profile: missing}), NewCatalog())

	_, err := d.Decode(tel)
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestDecode_RORGMismatch(t *testing.T) {
	tel := decodeTelegram(t, frameA50401)
	d := testDecoder(Device{ID: 0x051172F7, Profile: ProfileF60201})

	_, err := d.Decode(tel)
	assert.ErrorIs(t, err, ErrRORGMismatch)
}

func TestDecode_ShortPayload(t *testing.T) {
	tel := erp1.NewTelegram(erp1.RORG4BS, []byte{0x00, 0xE5}, 0x051172F7, 0x00)
	d := testDecoder(Device{ID: 0x051172F7, Profile: ProfileA50401})

	_, err := d.Decode(tel)
	require.ErrorIs(t, err, ErrBitRangeOutOfBounds)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "TMP", de.Field)
	assert.Equal(t, erp1.DeviceID(0x051172F7), de.Device)
}

func TestLookup(t *testing.T) {
	reg := NewRegistry(Device{ID: 0x051172F7, Profile: ProfileA50401})

	id, ok := Lookup(reg, 0x051172F7)
	assert.True(t, ok)
	assert.Equal(t, ProfileA50401, id)

	_, ok = Lookup(reg, 0x01)
	assert.False(t, ok)
}

func TestDecodePayload(t *testing.T) {
	p, ok := DefaultCatalog().Lookup(ProfileA50205)
	require.True(t, ok)

	values, err := DecodePayload(p, []byte{0x00, 0x00, 0x00, 0x08})
	require.NoError(t, err)
	assert.InDelta(t, 40.0, values["TMP"].Value, 1e-9)
}

// ============================================================================
// Registry Tests
// ============================================================================

func TestRegistry(t *testing.T) {
	reg := NewRegistry(
		Device{ID: 0x20, Profile: ProfileF60201},
		Device{ID: 0x10, Profile: ProfileA50401},
	)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, erp1.DeviceID(0x10), reg.Devices()[0].ID)

	reg.Register(Device{ID: 0x10, Profile: ProfileA50205, Name: "renamed"})
	d, ok := reg.Lookup(0x10)
	require.True(t, ok)
	assert.Equal(t, ProfileA50205, d.Profile)

	assert.True(t, reg.Unregister(0x10))
	assert.False(t, reg.Unregister(0x10))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	d := NewDecoder(reg, DefaultCatalog())
	tel := decodeTelegram(t, frameA50401)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			reg.Register(Device{ID: erp1.DeviceID(0x051172F7 + i), Profile: ProfileA50401})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = d.Decode(tel)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, reg.Len())
	_, err := d.Decode(tel)
	assert.NoError(t, err)
}

// ============================================================================
// Teach-in Tests
// ============================================================================

func TestParseTeachIn_4BS(t *testing.T) {
	tel := erp1.NewTelegram(erp1.RORG4BS, []byte{0x08, 0x28, 0x2D, 0x80}, 0x01A0B0C0, 0x00)
	require.True(t, tel.IsTeachIn())

	ti, err := ParseTeachIn(tel)
	require.NoError(t, err)
	assert.Equal(t, ProfileA50205, ti.Profile)
	assert.Equal(t, uint16(0x2D), ti.Manufacturer)
	assert.Equal(t, erp1.DeviceID(0x01A0B0C0), ti.Sender)
	assert.False(t, ti.UTE)
}

func TestParseTeachIn_4BSWithoutProfile(t *testing.T) {
	tel := erp1.NewTelegram(erp1.RORG4BS, []byte{0x08, 0x28, 0x2D, 0x00}, 0x01A0B0C0, 0x00)
	_, err := ParseTeachIn(tel)
	assert.ErrorIs(t, err, ErrNoProfileInfo)
}

func TestParseTeachIn_DataTelegram(t *testing.T) {
	_, err := ParseTeachIn(decodeTelegram(t, frameA50401))
	assert.ErrorIs(t, err, ErrNotTeachIn)
}

func TestParseTeachIn_UTE(t *testing.T) {
	query := erp1.NewTelegram(erp1.RORGUTE, []byte{0x80, 0x01, 0x46, 0x00, 0x0E, 0x01, 0xD2}, 0x050A3D6A, 0x00)

	ti, err := ParseTeachIn(query)
	require.NoError(t, err)
	assert.True(t, ti.UTE)
	assert.True(t, ti.Bidirectional)
	assert.True(t, ti.ResponseExpected)
	assert.Equal(t, UTETeachIn, ti.Request)
	assert.Equal(t, ProfileD2010E, ti.Profile)
	assert.Equal(t, uint16(0x46), ti.Manufacturer)
	assert.Equal(t, uint8(1), ti.Channels)
}

func TestParseTeachIn_UTEResponseIsNotQuery(t *testing.T) {
	_, err := ParseTeachIn(decodeTelegram(t, frameUTEResponse))
	assert.ErrorIs(t, err, ErrNotTeachIn)
}

// ============================================================================
// Builder Tests
// ============================================================================

func TestNewUTETeachInResponse(t *testing.T) {
	query := &TeachIn{
		Sender:        0x050A3D6A,
		Profile:       ProfileD2010E,
		Manufacturer:  0x46,
		UTE:           true,
		Bidirectional: true,
		Channels:      1,
	}

	tel := NewUTETeachInResponse(query, 0x00000000, UTEAccepted)
	assert.Equal(t, frameUTEResponse, esp3.EncodePacket(tel.Packet()))
}

func TestNewRocker(t *testing.T) {
	press := NewRockerPress(0x0031C0F9, ButtonA0)
	assert.Equal(t, []byte{0x30}, press.Payload)
	assert.Equal(t, byte(0x30), press.Status)
	require.NotNil(t, press.DestinationID)
	assert.Equal(t, erp1.BroadcastID, *press.DestinationID)

	release := NewRockerRelease(0x0031C0F9)
	assert.Equal(t, []byte{0x00}, release.Payload)
	assert.Equal(t, byte(0x20), release.Status)

	// The press decodes back through the rocker profile
	d := testDecoder(Device{ID: 0x0031C0F9, Profile: ProfileF60202})
	r, err := d.Decode(press)
	require.NoError(t, err)
	assert.Equal(t, "Button A0", r.Values["R1"].String())
}

func TestNewActuatorCommands(t *testing.T) {
	const sender, dest = erp1.DeviceID(0xFFC6EA01), erp1.DeviceID(0x050A3D6A)

	tests := []struct {
		name string
		tel  *erp1.Telegram
		want []byte
	}{
		{"on", NewActuatorSetOutput(sender, dest, 0, 1), []byte{0x01, 0x00, 0x01}},
		{"full on", NewActuatorSetOutput(sender, dest, 0, OutputOn), []byte{0x01, 0x00, 0x64}},
		{"all channels off", NewActuatorSetOutput(sender, dest, 0x1E, OutputOff), []byte{0x01, 0x1E, 0x00}},
		{"status query", NewActuatorStatusQuery(sender, dest, 0), []byte{0x03, 0x00}},
		{"energy query", NewActuatorMeasurementQuery(sender, dest, 0, false), []byte{0x06, 0x00}},
		{"power query", NewActuatorMeasurementQuery(sender, dest, 0, true), []byte{0x06, 0x20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, erp1.RORGVLD, tt.tel.RORG)
			assert.Equal(t, tt.want, tt.tel.Payload)
			assert.Equal(t, sender, tt.tel.SenderID)
			require.NotNil(t, tt.tel.DestinationID)
			assert.Equal(t, dest, *tt.tel.DestinationID)
		})
	}
}

func TestParseRockerButton(t *testing.T) {
	for name, want := range map[string]RockerButton{"AI": ButtonAI, "a0": ButtonA0, " BI": ButtonBI, "B0": ButtonB0} {
		got, err := ParseRockerButton(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseRockerButton("C0")
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestNewActuatorCommand(t *testing.T) {
	const sender, dest = erp1.DeviceID(0xFFC6EA01), erp1.DeviceID(0x050A3D6A)

	tests := []struct {
		action string
		want   []byte
	}{
		{"on", []byte{0x01, 0x00, 0x64}},
		{"OFF", []byte{0x01, 0x00, 0x00}},
		{"50", []byte{0x01, 0x00, 0x32}},
		{"25%", []byte{0x01, 0x00, 0x19}},
		{"status", []byte{0x03, 0x00}},
		{"energy", []byte{0x06, 0x00}},
		{"power", []byte{0x06, 0x20}},
	}
	for _, tt := range tests {
		tel, err := NewActuatorCommand(tt.action, sender, dest, 0)
		require.NoError(t, err, tt.action)
		assert.Equal(t, tt.want, tel.Payload, tt.action)
	}

	for _, action := range []string{"101", "-1", "toggle", ""} {
		_, err := NewActuatorCommand(action, sender, dest, 0)
		assert.ErrorIs(t, err, ErrInvalidCommand, action)
	}
}

// ============================================================================
// Configuration Tests
// ============================================================================

const testConfig = `
devices:
  - id: "05:11:72:F7"
    eep: A5-04-01
    name: office
  - id: "0x01A0B0C0"
    eep: A5-FF-01
    name: boiler
profiles:
  - eep: A5-FF-01
    title: Boiler sensor
    fields:
      - name: TMP
        offset: 16
        size: 8
        unit: "°C"
        scale:
          raw_min: 0
          raw_max: 255
          min: 0
          max: 100
      - name: ST
        offset: 31
        size: 1
        enum:
          "0": idle
          "1": firing
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enostat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfigFile(t *testing.T) {
	cfg, err := ReadConfigFile(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Devices, 2)
	require.Len(t, cfg.Profiles, 1)
	assert.Equal(t, "office", cfg.Devices[0].Name)
	assert.Equal(t, "A5-FF-01", cfg.Profiles[0].EEP)

	catalog := DefaultCatalog()
	reg, err := cfg.Build(catalog)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	custom := ProfileID{RORG: erp1.RORG4BS, Func: 0xFF, Type: 0x01}
	p, ok := catalog.Lookup(custom)
	require.True(t, ok)
	assert.Equal(t, "Boiler sensor", p.Title)

	d := NewDecoder(reg, catalog)
	r, err := d.Decode(erp1.NewTelegram(erp1.RORG4BS, []byte{0x00, 0x00, 0xFF, 0x09}, 0x01A0B0C0, 0x00))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, r.Values["TMP"].Value, 1e-9)
	assert.Equal(t, "firing", r.Values["ST"].String())
}

func TestConfigBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			name: "bad device id",
			cfg:  Config{Devices: []DeviceConfig{{ID: "nope", EEP: "A5-04-01"}}},
			want: erp1.ErrInvalidDeviceID,
		},
		{
			name: "bad eep",
			cfg:  Config{Devices: []DeviceConfig{{ID: "01020304", EEP: "A5-04"}}},
			want: ErrInvalidProfile,
		},
		{
			name: "profile not in catalog",
			cfg:  Config{Devices: []DeviceConfig{{ID: "01020304", EEP: "A5-09-09"}}},
			want: ErrUnknownProfile,
		},
		{
			name: "bad enum key",
			cfg: Config{Profiles: []ProfileConfig{{
				EEP:    "A5-FF-02",
				Fields: []FieldConfig{{Name: "X", Offset: 0, Size: 1, Enum: map[string]string{"one": "x"}}},
			}}},
			want: ErrInvalidProfile,
		},
		{
			name: "profile without fields",
			cfg:  Config{Profiles: []ProfileConfig{{EEP: "A5-FF-03"}}},
			want: ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Build(DefaultCatalog())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadConfigFile_Missing(t *testing.T) {
	_, err := ReadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func ExampleDecoder_Decode() {
	p, _ := esp3.Decode(frameA50401)
	tel, _ := erp1.Decode(p)

	d := NewDecoder(
		NewRegistry(Device{ID: 0x051172F7, Profile: ProfileA50401}),
		DefaultCatalog(),
	)
	r, err := d.Decode(tel)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(r.Values["TMP"], r.Values["HUM"])
	// Output: 32.64 °C 91.6 %
}
