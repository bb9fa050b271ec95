// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/enostat/pkg/devices"
	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

// event is one received frame carried through every decoding stage
type event struct {
	time        time.Time
	packet      *esp3.Packet
	frameErr    error
	telegram    *erp1.Telegram
	telegramErr error
	anomalies   []erp1.ValidationError
	teachIn     *eep.TeachIn
	learned     bool
	result      *eep.Result
	eepErr      error
}

// failed reports whether any stage rejected the frame
func (e *event) failed() bool {
	return e.frameErr != nil || e.telegramErr != nil || len(e.anomalies) > 0
}

// processor decodes receive results and keeps statistics and device state
type processor struct {
	decoder *eep.Decoder
	stats   *esp3.Statistics
	store   *devices.Store
	learn   bool

	skipped       func() uint64 // skip counter of the current framing decoder
	skippedPrev   uint64        // final counts of earlier decoders
	skippedOffset uint64        // total at the last statistics reset
}

func newProcessor(decoder *eep.Decoder) *processor {
	return &processor{
		decoder: decoder,
		stats:   esp3.NewStatistics(),
		store:   devices.NewStore(),
	}
}

// countSkipped reports bytes skipped by fn's framing decoder in the
// statistics. Counts from an earlier decoder are kept.
func (p *processor) countSkipped(fn func() uint64) {
	if p.skipped != nil {
		p.skippedPrev += p.skipped()
	}
	p.skipped = fn
	p.syncSkipped()
}

func (p *processor) skippedTotal() uint64 {
	total := p.skippedPrev
	if p.skipped != nil {
		total += p.skipped()
	}
	return total
}

func (p *processor) syncSkipped() {
	p.stats.SkippedBytes = p.skippedTotal() - p.skippedOffset
}

// refreshStats updates skipped bytes and rates before display
func (p *processor) refreshStats() {
	p.syncSkipped()
	p.stats.CalculateRates()
}

func (p *processor) summary() string {
	p.syncSkipped()
	return p.stats.String()
}

func (p *processor) resetStats() {
	p.stats.Reset()
	p.skippedOffset = p.skippedTotal()
}

func (p *processor) process(packet *esp3.Packet, frameErr error) *event {
	ev := &event{time: time.Now(), packet: packet, frameErr: frameErr}
	p.stats.Update(packet, frameErr)
	p.syncSkipped()
	if frameErr != nil || packet.Type() != esp3.PacketTypeRadioERP1 {
		return ev
	}

	tel, err := erp1.Decode(packet)
	if err != nil {
		ev.telegramErr = err
		p.stats.RecordTelegramError()
		return ev
	}
	ev.telegram = tel

	ev.anomalies = erp1.ValidatePacket(packet)
	p.stats.RecordAnomalies(len(ev.anomalies))

	if tel.IsTeachIn() && tel.RORG != erp1.RORGRPS {
		p.handleTeachIn(ev)
		p.store.Update(tel, nil, nil)
		return ev
	}

	ev.result, ev.eepErr = p.decoder.Decode(tel)
	if ev.eepErr != nil {
		p.stats.RecordProfileError(errors.Is(ev.eepErr, eep.ErrUnknownDevice))
	}
	p.store.Update(tel, ev.result, ev.eepErr)
	return ev
}

func (p *processor) handleTeachIn(ev *event) {
	ti, err := eep.ParseTeachIn(ev.telegram)
	if err != nil {
		ev.eepErr = err
		return
	}
	ev.teachIn = ti
	if !p.learn {
		return
	}

	if _, ok := p.decoder.Catalog().Lookup(ti.Profile); !ok {
		ev.eepErr = fmt.Errorf("%w: %s", eep.ErrUnknownProfile, ti.Profile)
		return
	}
	if ti.UTE && ti.Request == eep.UTEDeletion {
		p.decoder.Registry().Unregister(ti.Sender)
		return
	}
	if _, known := p.decoder.Registry().Lookup(ti.Sender); !known {
		p.decoder.Registry().Register(eep.Device{ID: ti.Sender, Profile: ti.Profile})
		ev.learned = true
		logger.Info("device learned",
			zap.Stringer("device", ti.Sender),
			zap.Stringer("eep", ti.Profile))
	}
}

// uteReply returns the answer to a UTE teach-in query seen in learn mode,
// or nil when none is due. No answer is sent without a base ID.
func (p *processor) uteReply(ev *event, baseID erp1.DeviceID) *erp1.Telegram {
	ti := ev.teachIn
	if !p.learn || ti == nil || !ti.UTE || !ti.ResponseExpected || baseID == 0 {
		return nil
	}

	result := eep.UTEAccepted
	switch {
	case ev.eepErr != nil:
		result = eep.UTEEEPNotSupported
	case ti.Request == eep.UTEDeletion:
		result = eep.UTEDeleted
	}
	return eep.NewUTETeachInResponse(ti, baseID, result)
}

// formatEvent renders an event for the text outputs. Decoded values are
// included when verbose is set or decoding failed.
func formatEvent(ev *event, verbose bool) string {
	var s strings.Builder
	timestamp := ev.time.Format("15:04:05.000")

	switch {
	case ev.frameErr != nil:
		fmt.Fprintf(&s, "[%s] \033[1;31mFRAME ERROR:\033[0m %v\n", timestamp, ev.frameErr)
		return s.String()
	case ev.telegramErr != nil:
		fmt.Fprintf(&s, "[%s] \033[1;31mTELEGRAM ERROR:\033[0m %v\n", timestamp, ev.telegramErr)
		s.WriteString(esp3.FormatPacket(ev.packet))
		return s.String()
	case ev.telegram == nil:
		if verbose {
			s.WriteString(esp3.FormatPacket(ev.packet))
		}
		return s.String()
	}

	for _, a := range ev.anomalies {
		fmt.Fprintf(&s, "[%s] \033[1;33mANOMALY:\033[0m %s (%s)\n", timestamp, a.Message, ev.telegram.SenderID)
	}

	switch {
	case ev.teachIn != nil:
		kind := "4BS"
		if ev.teachIn.UTE {
			kind = "UTE"
		}
		fmt.Fprintf(&s, "[%s] \033[1;36mTEACH-IN:\033[0m %s %s announces %s (manufacturer 0x%03X)",
			timestamp, kind, ev.teachIn.Sender, ev.teachIn.Profile, ev.teachIn.Manufacturer)
		if ev.learned {
			s.WriteString(" [learned]")
		}
		s.WriteString("\n")
	case ev.result != nil:
		fmt.Fprintf(&s, "[%s] %s %s\n", timestamp, ev.telegram.RORG, ev.telegram.SenderID)
		s.WriteString(eep.FormatResult(ev.result))
	case ev.eepErr != nil:
		fmt.Fprintf(&s, "[%s] \033[1;33mEEP:\033[0m %v\n", timestamp, ev.eepErr)
		if verbose {
			s.WriteString(erp1.FormatTelegram(ev.telegram))
		}
	}
	return s.String()
}
