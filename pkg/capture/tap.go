// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"io"
)

// Tap records all traffic of a connection
type Tap struct {
	conn io.ReadWriteCloser
	w    *Writer

	// OnError is called when a record cannot be written; traffic is not
	// interrupted
	OnError func(error)
}

// NewTap wraps conn so that every read and write is recorded to w
func NewTap(conn io.ReadWriteCloser, w *Writer) *Tap {
	return &Tap{conn: conn, w: w}
}

func (t *Tap) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if n > 0 {
		t.record(Received, p[:n])
	}
	return n, err
}

func (t *Tap) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	if n > 0 {
		t.record(Sent, p[:n])
	}
	return n, err
}

func (t *Tap) Close() error {
	return t.conn.Close()
}

func (t *Tap) record(dir Direction, data []byte) {
	if err := t.w.Write(dir, data); err != nil && t.OnError != nil {
		t.OnError(err)
	}
}
