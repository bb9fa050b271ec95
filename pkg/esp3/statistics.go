// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks framing results and interpretation failures
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Framing
	TotalFrames        uint64
	ValidPackets       uint64
	UnsupportedPackets uint64
	HeaderCRCErrors    uint64
	DataCRCErrors      uint64
	TruncatedFrames    uint64
	OtherErrors        uint64
	SkippedBytes       uint64

	// Interpretation
	TelegramErrors uint64
	UnknownDevices uint64
	ProfileErrors  uint64
	Anomalies      uint64

	// Rates (calculated)
	PacketRate float64 // packets/sec
	ErrorRate  float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of one framing step
func (s *Statistics) Update(packet *Packet, frameErr error) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if frameErr != nil {
		switch {
		case errors.Is(frameErr, ErrHeaderCRCMismatch):
			s.HeaderCRCErrors++
		case errors.Is(frameErr, ErrDataCRCMismatch):
			s.DataCRCErrors++
		case errors.Is(frameErr, ErrTruncatedFrame):
			s.TruncatedFrames++
		default:
			s.OtherErrors++
		}
		return
	}

	s.ValidPackets++
	if packet != nil && !packet.Supported() {
		s.UnsupportedPackets++
	}
}

// RecordTelegramError counts an ERP1 packet that could not be interpreted
func (s *Statistics) RecordTelegramError() {
	s.TelegramErrors++
}

// RecordProfileError counts an EEP decode failure
func (s *Statistics) RecordProfileError(unknownDevice bool) {
	if unknownDevice {
		s.UnknownDevices++
		return
	}
	s.ProfileErrors++
}

// RecordAnomalies counts telegram validation findings
func (s *Statistics) RecordAnomalies(n int) {
	s.Anomalies += uint64(n)
}

// CRCErrors returns header plus data CRC failures
func (s *Statistics) CRCErrors() uint64 {
	return s.HeaderCRCErrors + s.DataCRCErrors
}

// FrameErrors returns all framing failures
func (s *Statistics) FrameErrors() uint64 {
	return s.CRCErrors() + s.TruncatedFrames + s.OtherErrors
}

// CalculateRates calculates packet and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.PacketRate = float64(s.ValidPackets) / elapsed
		errorCount := s.FrameErrors() + s.TelegramErrors + s.ProfileErrors
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, crcPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidPackets) * 100.0 / float64(s.TotalFrames)
		crcPercent = float64(s.CRCErrors()) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Packets:   %8d (%.1f%%)\n", s.ValidPackets, validPercent)

	if s.UnsupportedPackets > 0 {
		result += fmt.Sprintf("  Unsupported:      %5d\n", s.UnsupportedPackets)
	}
	if s.CRCErrors() > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors(), crcPercent)
		result += fmt.Sprintf("  Header:           %5d\n", s.HeaderCRCErrors)
		result += fmt.Sprintf("  Data:             %5d\n", s.DataCRCErrors)
	}
	if s.TruncatedFrames > 0 {
		result += fmt.Sprintf("Truncated:       %8d\n", s.TruncatedFrames)
	}
	if s.SkippedBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", s.SkippedBytes)
	}
	if s.TelegramErrors > 0 {
		result += fmt.Sprintf("Telegram Errors: %8d\n", s.TelegramErrors)
	}
	if s.UnknownDevices > 0 || s.ProfileErrors > 0 {
		result += fmt.Sprintf("EEP Errors:      %8d\n", s.UnknownDevices+s.ProfileErrors)
		result += fmt.Sprintf("  Unknown Device:   %5d\n", s.UnknownDevices)
		result += fmt.Sprintf("  Profile:          %5d\n", s.ProfileErrors)
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
	}

	result += fmt.Sprintf("Packet Rate:     %8.1f pkts/sec\n", s.PacketRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
