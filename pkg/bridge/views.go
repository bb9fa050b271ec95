// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"time"

	"github.com/Thermoquad/enostat/pkg/devices"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

type valueView struct {
	Raw   uint64  `json:"raw"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Label string  `json:"label,omitempty"`
	Text  string  `json:"text"`
}

type deviceView struct {
	ID        string               `json:"id"`
	Name      string               `json:"name,omitempty"`
	Profile   string               `json:"profile,omitempty"`
	Known     bool                 `json:"known"`
	RORG      string               `json:"rorg"`
	Fields    []string             `json:"fields,omitempty"`
	Values    map[string]valueView `json:"values,omitempty"`
	Payload   string               `json:"payload"`
	RSSI      *int8                `json:"rssi,omitempty"`
	Repeated  int                  `json:"repeated"`
	FirstSeen time.Time            `json:"first_seen"`
	LastSeen  time.Time            `json:"last_seen"`
	Telegrams uint64               `json:"telegrams"`
	Errors    uint64               `json:"errors"`
	LastError string               `json:"last_error,omitempty"`
}

func newDeviceView(st *devices.State) deviceView {
	v := deviceView{
		ID:        st.ID.String(),
		Name:      st.Name,
		Known:     st.Known,
		RORG:      st.RORG.String(),
		Fields:    st.Fields,
		Payload:   esp3.FormatHex(st.Payload),
		RSSI:      st.RSSI,
		Repeated:  st.Repeated,
		FirstSeen: st.FirstSeen,
		LastSeen:  st.LastSeen,
		Telegrams: st.Telegrams,
		Errors:    st.Errors,
		LastError: st.LastError,
	}
	if st.Known {
		v.Profile = st.Profile.String()
	}
	if len(st.Values) > 0 {
		v.Values = make(map[string]valueView, len(st.Values))
		for name, val := range st.Values {
			v.Values[name] = valueView{
				Raw:   val.Raw,
				Value: val.Value,
				Unit:  val.Unit,
				Label: val.Label,
				Text:  val.String(),
			}
		}
	}
	return v
}

type statsView struct {
	Uptime             float64 `json:"uptime_seconds"`
	TotalFrames        uint64  `json:"total_frames"`
	ValidPackets       uint64  `json:"valid_packets"`
	UnsupportedPackets uint64  `json:"unsupported_packets"`
	HeaderCRCErrors    uint64  `json:"header_crc_errors"`
	DataCRCErrors      uint64  `json:"data_crc_errors"`
	TruncatedFrames    uint64  `json:"truncated_frames"`
	OtherErrors        uint64  `json:"other_errors"`
	SkippedBytes       uint64  `json:"skipped_bytes"`
	TelegramErrors     uint64  `json:"telegram_errors"`
	UnknownDevices     uint64  `json:"unknown_devices"`
	ProfileErrors      uint64  `json:"profile_errors"`
	Anomalies          uint64  `json:"anomalies"`
	PacketRate         float64 `json:"packet_rate"`
	ErrorRate          float64 `json:"error_rate"`
}

func newStatsView(s *esp3.Statistics) statsView {
	return statsView{
		Uptime:             time.Since(s.StartTime).Seconds(),
		TotalFrames:        s.TotalFrames,
		ValidPackets:       s.ValidPackets,
		UnsupportedPackets: s.UnsupportedPackets,
		HeaderCRCErrors:    s.HeaderCRCErrors,
		DataCRCErrors:      s.DataCRCErrors,
		TruncatedFrames:    s.TruncatedFrames,
		OtherErrors:        s.OtherErrors,
		SkippedBytes:       s.SkippedBytes,
		TelegramErrors:     s.TelegramErrors,
		UnknownDevices:     s.UnknownDevices,
		ProfileErrors:      s.ProfileErrors,
		Anomalies:          s.Anomalies,
		PacketRate:         s.PacketRate,
		ErrorRate:          s.ErrorRate,
	}
}
