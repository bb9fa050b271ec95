// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Response is a decoded RESPONSE packet
type Response struct {
	Code ReturnCode
	// Data holds the response payload following the return code
	Data         []byte
	OptionalData []byte
}

// OK reports whether the gateway accepted the command
func (r *Response) OK() bool {
	return r.Code == RetOK
}

// Err returns nil for RetOK, otherwise an error naming the return code
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("gateway returned %s (0x%02X)", r.Code, uint8(r.Code))
}

// DecodeResponse interprets a RESPONSE packet
func DecodeResponse(p *Packet) (*Response, error) {
	if p.Type() != PacketTypeResponse {
		return nil, fmt.Errorf("not a response packet: %s", p.Type())
	}
	if len(p.Data()) == 0 {
		return nil, fmt.Errorf("response without return code")
	}
	return &Response{
		Code:         ReturnCode(p.Data()[0]),
		Data:         p.Data()[1:],
		OptionalData: p.OptionalData(),
	}, nil
}

// VersionInfo is the answer to CO_RD_VERSION
type VersionInfo struct {
	AppVersion  [4]byte
	APIVersion  [4]byte
	ChipID      uint32
	ChipVersion uint32
	Description string
}

// ParseVersionInfo parses the payload of a CO_RD_VERSION response
func ParseVersionInfo(r *Response) (*VersionInfo, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(r.Data) < versionInfoSize {
		return nil, fmt.Errorf("version response too short: %d bytes (expected %d)", len(r.Data), versionInfoSize)
	}

	info := &VersionInfo{
		ChipID:      binary.BigEndian.Uint32(r.Data[8:12]),
		ChipVersion: binary.BigEndian.Uint32(r.Data[12:16]),
	}
	copy(info.AppVersion[:], r.Data[0:4])
	copy(info.APIVersion[:], r.Data[4:8])

	desc := r.Data[16 : 16+versionDescription]
	if i := bytes.IndexByte(desc, 0); i >= 0 {
		desc = desc[:i]
	}
	info.Description = string(desc)

	return info, nil
}

// FormatVersion renders a version quadruple as main.beta.alpha.build
func FormatVersion(v [4]byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// BaseID is the answer to CO_RD_IDBASE
type BaseID struct {
	ID uint32
	// RemainingWrites is the number of base ID changes left, if reported
	RemainingWrites *uint8
}

// ParseBaseID parses the payload of a CO_RD_IDBASE response
func ParseBaseID(r *Response) (*BaseID, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(r.Data) < baseIDResponseSize {
		return nil, fmt.Errorf("base ID response too short: %d bytes (expected %d)", len(r.Data), baseIDResponseSize)
	}

	id := &BaseID{ID: binary.BigEndian.Uint32(r.Data[:4])}
	if len(r.OptionalData) >= 1 {
		remaining := r.OptionalData[0]
		id.RemainingWrites = &remaining
	} else if len(r.Data) >= baseIDWithRemaining {
		remaining := r.Data[4]
		id.RemainingWrites = &remaining
	}
	return id, nil
}
