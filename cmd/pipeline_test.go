// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

const (
	sensorID   = erp1.DeviceID(0x051172F7)
	actuatorID = erp1.DeviceID(0x050A3D6A)
	testBaseID = erp1.DeviceID(0xFFC6EA00)
)

func testProcessor() *processor {
	return newProcessor(eep.NewDecoder(
		eep.NewRegistry(eep.Device{ID: sensorID, Profile: eep.ProfileA50401, Name: "office"}),
		eep.DefaultCatalog(),
	))
}

func sensorPacket() *esp3.Packet {
	return erp1.NewTelegram(erp1.RORG4BS, []byte{0x00, 0xE5, 0xCC, 0x0A}, sensorID, 0x00).Packet()
}

func uteQueryPacket() *esp3.Packet {
	return erp1.NewTelegram(erp1.RORGUTE, []byte{0x80, 0x01, 0x46, 0x00, 0x0E, 0x01, 0xD2}, actuatorID, 0x00).Packet()
}

func TestProcess_DecodesKnownDevice(t *testing.T) {
	proc := testProcessor()

	ev := proc.process(sensorPacket(), nil)
	require.NoError(t, ev.eepErr)
	require.NotNil(t, ev.result)
	assert.False(t, ev.failed())
	assert.Equal(t, "91.6 %", ev.result.Values["HUM"].String())

	st, ok := proc.store.Get(sensorID)
	require.True(t, ok)
	assert.Equal(t, "office", st.Name)
	assert.Equal(t, uint64(1), proc.stats.ValidPackets)

	out := formatEvent(ev, false)
	assert.Contains(t, out, "office [A5-04-01]")
	assert.Contains(t, out, "32.64 °C")
}

func TestProcess_UnknownDevice(t *testing.T) {
	proc := testProcessor()
	tel := erp1.NewTelegram(erp1.RORG1BS, []byte{0x09}, 0x01020304, 0x00)

	ev := proc.process(tel.Packet(), nil)
	assert.ErrorIs(t, ev.eepErr, eep.ErrUnknownDevice)
	assert.Equal(t, uint64(1), proc.stats.UnknownDevices)

	st, ok := proc.store.Get(0x01020304)
	require.True(t, ok)
	assert.False(t, st.Known)
	assert.Contains(t, formatEvent(ev, false), "EEP:")
}

func TestProcess_FrameError(t *testing.T) {
	proc := testProcessor()

	ev := proc.process(nil, esp3.ErrDataCRCMismatch)
	assert.True(t, ev.failed())
	assert.Equal(t, uint64(1), proc.stats.DataCRCErrors)
	assert.Contains(t, formatEvent(ev, false), "FRAME ERROR")
	assert.Equal(t, 0, proc.store.Len())
}

func TestProcess_NonRadioPacket(t *testing.T) {
	proc := testProcessor()
	resp := esp3.NewPacket(esp3.PacketTypeResponse, []byte{0x00}, nil)

	ev := proc.process(resp, nil)
	assert.Nil(t, ev.telegram)
	assert.Empty(t, formatEvent(ev, false))
	assert.NotEmpty(t, formatEvent(ev, true))
}

func TestProcess_TeachIn(t *testing.T) {
	tel := erp1.NewTelegram(erp1.RORG4BS, []byte{0x08, 0x28, 0x2D, 0x80}, 0x01A2B3C4, 0x00)

	t.Run("observe only", func(t *testing.T) {
		proc := testProcessor()
		ev := proc.process(tel.Packet(), nil)
		require.NotNil(t, ev.teachIn)
		assert.False(t, ev.learned)
		_, known := proc.decoder.Registry().Lookup(0x01A2B3C4)
		assert.False(t, known)
		assert.Contains(t, formatEvent(ev, false), "TEACH-IN")
		assert.Equal(t, 1, proc.store.Len())
	})

	t.Run("learn", func(t *testing.T) {
		proc := testProcessor()
		proc.learn = true
		ev := proc.process(tel.Packet(), nil)
		require.NotNil(t, ev.teachIn)
		assert.True(t, ev.learned)

		dev, known := proc.decoder.Registry().Lookup(0x01A2B3C4)
		require.True(t, known)
		assert.Equal(t, eep.ProfileA50205, dev.Profile)
		assert.Contains(t, formatEvent(ev, false), "[learned]")
	})
}

func TestUTEReply(t *testing.T) {
	proc := testProcessor()

	// Not in learn mode
	ev := proc.process(uteQueryPacket(), nil)
	require.NotNil(t, ev.teachIn)
	assert.Nil(t, proc.uteReply(ev, testBaseID))

	proc.learn = true
	ev = proc.process(uteQueryPacket(), nil)
	assert.Nil(t, proc.uteReply(ev, 0))

	reply := proc.uteReply(ev, testBaseID)
	require.NotNil(t, reply)
	assert.Equal(t, erp1.RORGUTE, reply.RORG)
	assert.Equal(t, testBaseID, reply.SenderID)
	require.NotNil(t, reply.DestinationID)
	assert.Equal(t, actuatorID, *reply.DestinationID)
	// Accepted
	assert.Equal(t, byte(eep.UTEAccepted), (reply.Payload[0]>>4)&0x03)

	_, known := proc.decoder.Registry().Lookup(actuatorID)
	assert.True(t, known)
}

func TestLockedProcessor(t *testing.T) {
	locked := &lockedProcessor{proc: testProcessor()}

	locked.process(gateway.Result{Packet: sensorPacket()})
	locked.process(gateway.Result{Err: esp3.ErrHeaderCRCMismatch})

	stats := locked.stats()
	assert.Equal(t, uint64(2), stats.TotalFrames)
	assert.Equal(t, uint64(1), stats.HeaderCRCErrors)
}

func TestProcess_SkippedBytes(t *testing.T) {
	proc := testProcessor()

	framer := esp3.NewDecoder()
	proc.countSkipped(framer.Skipped)

	stream := append([]byte{0x00, 0x12, 0xFF}, esp3.EncodePacket(sensorPacket())...)
	for p, err := range framer.Feed(stream) {
		proc.process(p, err)
	}
	assert.Equal(t, uint64(3), proc.stats.SkippedBytes)
	assert.Contains(t, proc.summary(), "Skipped Bytes")

	// A reconnect brings a fresh decoder; earlier counts are kept
	next := esp3.NewDecoder()
	proc.countSkipped(next.Skipped)
	for range next.Feed([]byte{0x01, 0x02}) {
	}
	proc.refreshStats()
	assert.Equal(t, uint64(5), proc.stats.SkippedBytes)

	proc.resetStats()
	assert.Equal(t, uint64(0), proc.stats.SkippedBytes)
	for range next.Feed([]byte{0x03}) {
	}
	proc.summary()
	assert.Equal(t, uint64(1), proc.stats.SkippedBytes)
}
