// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"strings"
	"testing"
)

func findCheck(r *Report, name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

func TestInspect_ValidFrame(t *testing.T) {
	frame := Encode(MsgVolumeSet, []byte(`{"session":"a","volume":0.5}`))
	r := Inspect(frame)

	if !r.Valid {
		t.Fatalf("valid frame reported invalid:\n%s", r)
	}
	if r.Type != MsgVolumeSet {
		t.Errorf("type = %s, want volume_set", r.Type)
	}
	for _, c := range r.Checks {
		if !c.OK {
			t.Errorf("check %q failed on a valid frame: %s", c.Name, c.Detail)
		}
	}
}

func TestInspect_ReportsAllFailures(t *testing.T) {
	frame := Encode(MsgHello, []byte(`{"firmware":"1.0"}`))
	bad := append([]byte{}, frame...)
	bad[1]++    // break the declared length
	bad[5] ^= 1 // break the CRC

	r := Inspect(bad)
	if r.Valid {
		t.Fatal("corrupted frame reported valid")
	}

	// Inspection continues past the first failure.
	if c, ok := findCheck(r, "declared length"); !ok || c.OK {
		t.Error("declared length failure not reported")
	}
	if c, ok := findCheck(r, "crc"); !ok || c.OK {
		t.Error("crc failure not reported")
	}
	if c, ok := findCheck(r, "start marker"); !ok || !c.OK {
		t.Error("start marker should still pass")
	}
}

func TestInspect_UnknownTypeInformational(t *testing.T) {
	frame := Encode(MessageType(0x99), []byte(`{}`))
	r := Inspect(frame)

	if c, ok := findCheck(r, "message type"); !ok || c.OK {
		t.Error("unknown type should be flagged")
	}
	if !r.Valid {
		t.Error("unknown type alone must not invalidate the frame")
	}
}

func TestInspect_NonJSONPayloadInformational(t *testing.T) {
	frame := Encode(MsgCrashReport, []byte{0x00, 0x01, 0x02})
	r := Inspect(frame)

	if c, ok := findCheck(r, "json payload"); !ok || c.OK {
		t.Error("non-JSON payload should be flagged")
	}
	if !r.Valid {
		t.Error("non-JSON payload alone must not invalidate the frame")
	}
}

func TestInspect_TruncatedInput(t *testing.T) {
	r := Inspect([]byte{StartByte, 0x01})
	if r.Valid {
		t.Error("truncated input reported valid")
	}

	// Empty input must not panic and must fail the length check.
	r = Inspect(nil)
	if r.Valid {
		t.Error("empty input reported valid")
	}
}

func TestReport_String(t *testing.T) {
	frame := Encode(MsgPingRequest, nil)
	frame[5] ^= 0xFF

	out := Inspect(frame).String()
	if !strings.Contains(out, "[FAIL]") {
		t.Errorf("report missing FAIL marker:\n%s", out)
	}
	if !strings.Contains(out, "[ ok ]") {
		t.Errorf("report missing ok marker:\n%s", out)
	}
}
