// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw transport traffic to a file and replays it.
//
// A capture file is a CBOR sequence: one Header followed by any number of
// Records, each holding the bytes of a single transport read or write.
// Replaying the received records through an esp3.Decoder reproduces the
// original stream exactly, including its chunk boundaries.
package capture

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

const (
	// Magic identifies capture files
	Magic = "enostat-capture"
	// Version is the current file format version
	Version = 1
)

var (
	ErrBadMagic           = errors.New("capture: not a capture file")
	ErrUnsupportedVersion = errors.New("capture: unsupported version")
)

// Direction of recorded traffic
type Direction uint8

const (
	Received Direction = 0
	Sent     Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Received:
		return "RX"
	case Sent:
		return "TX"
	default:
		return fmt.Sprintf("DIR_%d", uint8(d))
	}
}

// Header starts every capture file
type Header struct {
	Magic   string    `cbor:"1,keyasint"`
	Version uint8     `cbor:"2,keyasint"`
	Session uuid.UUID `cbor:"3,keyasint"`
	Started time.Time `cbor:"4,keyasint"`
	Source  string    `cbor:"5,keyasint,omitempty"`
}

// Record is one chunk of transport traffic
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Data      []byte    `cbor:"3,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Writer appends records to a capture file. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	header Header
	now    func() time.Time
}

// NewWriter writes a new header with a fresh session ID to w
func NewWriter(w io.Writer, source string) (*Writer, error) {
	cw := &Writer{
		enc: encMode.NewEncoder(w),
		now: time.Now,
	}
	cw.header = Header{
		Magic:   Magic,
		Version: Version,
		Session: uuid.New(),
		Started: cw.now(),
		Source:  source,
	}
	if err := cw.enc.Encode(cw.header); err != nil {
		return nil, fmt.Errorf("capture: write header: %w", err)
	}
	return cw, nil
}

// Header returns the header written at the start of the file
func (w *Writer) Header() Header {
	return w.header
}

// Write records one chunk of traffic. Empty chunks are skipped.
func (w *Writer) Write(dir Direction, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	rec := Record{
		Time:      w.now(),
		Direction: dir,
		Data:      append([]byte(nil), data...),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("capture: write record: %w", err)
	}
	return nil
}

// Reader reads a capture file
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the header of a capture file
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{dec: cbor.NewDecoder(r)}
	if err := cr.dec.Decode(&cr.header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if cr.header.Magic != Magic {
		return nil, ErrBadMagic
	}
	if cr.header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cr.header.Version)
	}
	return cr, nil
}

// Header returns the file header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the file
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("capture: read record: %w", err)
	}
	return &rec, nil
}

// Records yields every remaining record. Iteration stops after the first
// read error, which is yielded.
func (r *Reader) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Replay feeds the records of one direction through d and yields every
// decoded packet or frame error. A frame left incomplete at the end of the
// file is reported as esp3.ErrTruncatedFrame.
func Replay(r *Reader, d *esp3.Decoder, dir Direction) iter.Seq2[*esp3.Packet, error] {
	return func(yield func(*esp3.Packet, error) bool) {
		for rec, err := range r.Records() {
			if err != nil {
				yield(nil, err)
				return
			}
			if rec.Direction != dir {
				continue
			}
			for p, ferr := range d.Feed(rec.Data) {
				if !yield(p, ferr) {
					return
				}
			}
		}
		if err := d.Flush(); err != nil {
			yield(nil, err)
		}
	}
}
