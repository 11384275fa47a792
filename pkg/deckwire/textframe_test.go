// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"errors"
	"testing"
)

func TestTextSplitter_Newline(t *testing.T) {
	s := NewTextSplitter(TextNewline, 0)

	lines := s.Feed([]byte("{\"messageType\":16}\n{\"messageType\":"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if string(lines[0]) != `{"messageType":16}` {
		t.Errorf("unexpected line %q", lines[0])
	}

	lines = s.Feed([]byte("17}\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line from the continued buffer, got %d", len(lines))
	}
	if string(lines[0]) != `{"messageType":17}` {
		t.Errorf("unexpected line %q", lines[0])
	}
}

func TestTextSplitter_SkipsBlankLines(t *testing.T) {
	s := NewTextSplitter(TextNewline, 0)
	lines := s.Feed([]byte("\n  \n{\"messageType\":16}\n\n"))
	if len(lines) != 1 {
		t.Errorf("expected 1 line with blanks skipped, got %d", len(lines))
	}
}

func TestTextSplitter_Markers(t *testing.T) {
	s := NewTextSplitter(TextMarkers, 0)

	lines := s.Feed([]byte(`junk<MSG>{"messageType":16}</MSG>tail<MSG>{"mess`))
	if len(lines) != 1 {
		t.Fatalf("expected 1 body, got %d", len(lines))
	}
	if string(lines[0]) != `{"messageType":16}` {
		t.Errorf("unexpected body %q", lines[0])
	}

	lines = s.Feed([]byte(`ageType":33}</MSG>`))
	if len(lines) != 1 {
		t.Fatalf("expected 1 body after completing the marker, got %d", len(lines))
	}
	if string(lines[0]) != `{"messageType":33}` {
		t.Errorf("unexpected body %q", lines[0])
	}
}

func TestTextSplitter_OversizeDropped(t *testing.T) {
	s := NewTextSplitter(TextNewline, 16)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'x'
	}
	if lines := s.Feed(long); len(lines) != 0 {
		t.Fatal("no delimiter, no lines expected")
	}

	// After the drop a fresh message still parses.
	lines := s.Feed([]byte("{\"n\":1}\n"))
	if len(lines) != 1 {
		t.Errorf("expected recovery after oversize drop, got %d lines", len(lines))
	}
}

func TestParseTextMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType MessageType
		wantErr  bool
	}{
		{"numeric type", `{"messageType":33,"session":"a","volume":0.5}`, MsgVolumeSet, false},
		{"string name", `{"messageType":"volume_set","session":"a","volume":0.5}`, MsgVolumeSet, false},
		{"legacy hello", `{"messageType":"hello","firmware":"1.0"}`, MsgHello, false},
		{"whitespace padded", "  {\"messageType\":16}\r", MsgSessionList, false},
		{"missing field", `{"session":"a"}`, 0, true},
		{"not json", `volume up please`, 0, true},
		{"unknown name", `{"messageType":"warp_drive"}`, 0, true},
		{"out of range", `{"messageType":999}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseTextMessage([]byte(tt.body), "test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("want *ParseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTextMessage failed: %v", err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("type = %s, want %s", msg.Type, tt.wantType)
			}
		})
	}
}

func TestEncodeTextMessage_RoundTrip(t *testing.T) {
	body, err := EncodeTextMessage(TextNewline, MsgVolumeSet, []byte(`{"session":"a","volume":0.5}`))
	if err != nil {
		t.Fatalf("EncodeTextMessage failed: %v", err)
	}
	if body[len(body)-1] != '\n' {
		t.Error("newline framing should terminate with \\n")
	}

	msg, err := ParseTextMessage(body, "test")
	if err != nil {
		t.Fatalf("ParseTextMessage failed: %v", err)
	}
	if msg.Type != MsgVolumeSet {
		t.Errorf("type = %s, want volume_set", msg.Type)
	}

	var p VolumeSetPayload
	if err := msg.DecodePayload(&p); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if p.Session != "a" || p.Volume != 0.5 {
		t.Errorf("payload fields lost: %+v", p)
	}
}

func TestEncodeTextMessage_Markers(t *testing.T) {
	body, err := EncodeTextMessage(TextMarkers, MsgPingRequest, nil)
	if err != nil {
		t.Fatalf("EncodeTextMessage failed: %v", err)
	}

	s := NewTextSplitter(TextMarkers, 0)
	lines := s.Feed(body)
	if len(lines) != 1 {
		t.Fatalf("marker-framed output did not split back: %q", body)
	}
	msg, err := ParseTextMessage(lines[0], "test")
	if err != nil {
		t.Fatalf("ParseTextMessage failed: %v", err)
	}
	if msg.Type != MsgPingRequest {
		t.Errorf("type = %s, want ping_request", msg.Type)
	}
}
