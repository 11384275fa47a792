// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
)

// Check is one per-field validation result in an inspection report.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Report is the result of inspecting a captured frame byte sequence. It
// continues past individual failures so the operator sees every broken
// field, not just the first.
type Report struct {
	Checks  []Check
	Type    MessageType
	Payload []byte
	Valid   bool
}

// Inspect validates a captured byte sequence field by field. It is the
// debugging contract behind the debug-binary command.
func Inspect(raw []byte) *Report {
	r := &Report{}

	r.add("frame length", len(raw) >= frameOverhead,
		fmt.Sprintf("%d bytes (minimum %d)", len(raw), frameOverhead))
	if len(raw) == 0 {
		return r
	}

	r.add("start marker", raw[0] == StartByte,
		fmt.Sprintf("0x%02X (want 0x%02X)", raw[0], StartByte))
	r.add("end marker", raw[len(raw)-1] == EndByte,
		fmt.Sprintf("0x%02X (want 0x%02X)", raw[len(raw)-1], EndByte))

	if len(raw) < frameOverhead {
		return r
	}

	declaredLen := binary.LittleEndian.Uint32(raw[1:5])
	declaredCRC := binary.LittleEndian.Uint16(raw[5:7])
	r.Type = MessageType(raw[7])
	r.add("message type", r.Type.Known(), r.Type.String())

	payload, err := Unescape(raw[frameHeaderSize : len(raw)-1])
	r.add("escape integrity", err == nil, detailOrOK(err))
	if err != nil {
		return r
	}
	r.Payload = payload

	r.add("declared length", uint32(len(payload)) == declaredLen,
		fmt.Sprintf("declared %d, actual %d", declaredLen, len(payload)))

	crc := Checksum(payload)
	r.add("crc", crc == declaredCRC,
		fmt.Sprintf("declared 0x%04X, computed 0x%04X", declaredCRC, crc))

	r.add("json payload", json.Valid(payload),
		fmt.Sprintf("%d payload bytes", len(payload)))

	r.Valid = true
	for _, c := range r.Checks {
		// An unknown type byte is informational, not a frame defect.
		if c.Name == "message type" || c.Name == "json payload" {
			continue
		}
		if !c.OK {
			r.Valid = false
		}
	}
	return r
}

func (r *Report) add(name string, ok bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
}

// String renders the report for terminal output.
func (r *Report) String() string {
	var b strings.Builder
	for _, c := range r.Checks {
		mark := "FAIL"
		if c.OK {
			mark = " ok "
		}
		fmt.Fprintf(&b, "  [%s] %-16s %s\n", mark, c.Name, c.Detail)
	}
	if r.Valid && len(r.Payload) > 0 {
		fmt.Fprintf(&b, "  payload: %s\n", truncatePayload(r.Payload, 120))
	}
	return b.String()
}

func detailOrOK(err error) string {
	if err == nil {
		return "all escape sequences complete"
	}
	return err.Error()
}

func truncatePayload(p []byte, max int) string {
	if len(p) <= max {
		return string(p)
	}
	return string(p[:max]) + "..."
}
