// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"bytes"
	"testing"
	"time"
)

func newTestAssembler() *Assembler {
	return NewAssembler(AssemblerConfig{}, NewStats())
}

func TestAssembler_SingleFrameOneChunk(t *testing.T) {
	asm := newTestAssembler()
	frame := Encode(MessageType(1), []byte(`{"a":1}`))

	frames := asm.Feed(frame)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Type != MessageType(1) {
		t.Errorf("unexpected type 0x%02X", uint8(frames[0].Type))
	}
	if string(frames[0].Payload) != `{"a":1}` {
		t.Errorf("unexpected payload %q", frames[0].Payload)
	}
	if asm.PendingBytes() != 0 {
		t.Errorf("buffer should be empty, has %d bytes", asm.PendingBytes())
	}
}

// Splitting a frame at every possible byte boundary must yield exactly
// one frame, identical to feeding it whole.
func TestAssembler_ChunkBoundaryIndependence(t *testing.T) {
	payload := []byte(`{"session":"music.exe","volume":0.7}`)
	frame := Encode(MsgVolumeSet, payload)

	for split := 1; split < len(frame); split++ {
		asm := newTestAssembler()

		frames := asm.Feed(frame[:split])
		frames = append(frames, asm.Feed(frame[split:])...)

		if len(frames) != 1 {
			t.Fatalf("split at %d: expected 1 frame, got %d", split, len(frames))
		}
		if !bytes.Equal(frames[0].Payload, payload) {
			t.Errorf("split at %d: payload mismatch", split)
		}
	}
}

func TestAssembler_ByteAtATime(t *testing.T) {
	payload := []byte{0x00, StartByte, EndByte, EscByte, 0xFF}
	frame := Encode(MsgCrashReport, payload)

	asm := newTestAssembler()
	var frames []*Frame
	for _, b := range frame {
		frames = append(frames, asm.Feed([]byte{b})...)
	}

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, payload) {
		t.Errorf("payload mismatch: % X", frames[0].Payload)
	}
}

func TestAssembler_ThreeFramesOneChunk(t *testing.T) {
	var stream []byte
	payloads := []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}
	for _, p := range payloads {
		stream = append(stream, Encode(MsgButtonEvent, []byte(p))...)
	}

	asm := newTestAssembler()
	frames := asm.Feed(stream)

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if string(f.Payload) != payloads[i] {
			t.Errorf("frame %d: payload %q, want %q", i, f.Payload, payloads[i])
		}
	}
	if got := asm.Stats().Snapshot().MessagesReceived; got != 3 {
		t.Errorf("messagesReceived = %d, want 3", got)
	}
}

func TestAssembler_GarbageResync(t *testing.T) {
	// Noise bytes must not contain START so the whole prefix is one span.
	noise := []byte{0x00, 0x11, 0x22, 0x33, 0xFF, 0x55}
	frame := Encode(MsgHello, []byte(`{"firmware":"2.1.0"}`))

	asm := newTestAssembler()
	frames := asm.Feed(append(append([]byte{}, noise...), frame...))

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame after noise, got %d", len(frames))
	}
	snap := asm.Stats().Snapshot()
	if snap.FramingErrors != 1 {
		t.Errorf("framingErrors = %d, want exactly 1 for the discarded span", snap.FramingErrors)
	}
}

func TestAssembler_CorruptCRCCountedOnce(t *testing.T) {
	frame := Encode(MsgVolumeSet, []byte(`{"session":"a","volume":1}`))
	corrupted := append([]byte{}, frame...)
	corrupted[5] ^= 0xFF

	asm := newTestAssembler()
	frames := asm.Feed(corrupted)

	if len(frames) != 0 {
		t.Fatalf("corrupt frame must not be emitted, got %d frames", len(frames))
	}
	snap := asm.Stats().Snapshot()
	if snap.CRCErrors != 1 {
		t.Errorf("crcErrors = %d, want 1", snap.CRCErrors)
	}
	if snap.MessagesReceived != 0 {
		t.Errorf("messagesReceived = %d, want 0", snap.MessagesReceived)
	}
}

func TestAssembler_RecoversAfterCorruptFrame(t *testing.T) {
	good := Encode(MsgMuteSet, []byte(`{"session":"a","muted":true}`))
	bad := append([]byte{}, good...)
	bad[6] ^= 0x01

	asm := newTestAssembler()
	frames := asm.Feed(append(append([]byte{}, bad...), good...))

	if len(frames) != 1 {
		t.Fatalf("expected the good frame after resync, got %d", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, []byte(`{"session":"a","muted":true}`)) {
		t.Errorf("payload mismatch after resync")
	}
}

// An escaped END-valued byte inside the payload must not terminate the
// frame early.
func TestAssembler_EscapedEndByteInPayload(t *testing.T) {
	payload := []byte{0x01, EndByte, 0x02, EndByte, 0x03}
	frame := Encode(MsgButtonEvent, payload)

	asm := newTestAssembler()

	// Feed up to just past the first escaped END; no frame yet.
	cut := frameHeaderSize + 3
	frames := asm.Feed(frame[:cut])
	if len(frames) != 0 {
		t.Fatalf("frame terminated early on escaped END byte")
	}

	frames = asm.Feed(frame[cut:])
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, payload) {
		t.Errorf("payload mismatch: % X", frames[0].Payload)
	}
}

func TestAssembler_BufferOverflow(t *testing.T) {
	asm := NewAssembler(AssemblerConfig{MaxPayloadSize: 32}, NewStats())

	// An unterminated frame: START + header + a long run with no END.
	junk := make([]byte, 32+200)
	for i := range junk {
		junk[i] = 0x41
	}
	chunk := append([]byte{StartByte}, junk...)

	frames := asm.Feed(chunk)
	if len(frames) != 0 {
		t.Fatalf("no frames expected, got %d", len(frames))
	}
	snap := asm.Stats().Snapshot()
	if snap.OverflowErrors != 1 {
		t.Errorf("overflowErrors = %d, want 1", snap.OverflowErrors)
	}
	if asm.PendingBytes() != 0 {
		t.Errorf("buffer should be dropped after overflow, has %d bytes", asm.PendingBytes())
	}
}

func TestAssembler_PartialFrameTimeout(t *testing.T) {
	now := time.Now()
	asm := NewAssembler(AssemblerConfig{FrameTimeout: time.Second}, NewStats())
	asm.now = func() time.Time { return now }

	// Start a frame but never finish it.
	partial := Encode(MsgPingRequest, nil)[:4]
	if frames := asm.Feed(partial); len(frames) != 0 {
		t.Fatal("partial frame must not be emitted")
	}

	// Within budget: not an error.
	now = now.Add(500 * time.Millisecond)
	if asm.CheckTimeout() {
		t.Error("timeout fired within the budget")
	}

	now = now.Add(time.Second)
	if !asm.CheckTimeout() {
		t.Error("timeout should have fired")
	}
	snap := asm.Stats().Snapshot()
	if snap.TimeoutErrors != 1 {
		t.Errorf("timeoutErrors = %d, want 1", snap.TimeoutErrors)
	}

	// The link keeps working afterwards.
	frame := Encode(MsgPingRequest, nil)
	if frames := asm.Feed(frame); len(frames) != 1 {
		t.Errorf("expected recovery after timeout, got %d frames", len(frames))
	}
}

func TestAssembler_OnErrorCallback(t *testing.T) {
	var seen []error
	asm := NewAssembler(AssemblerConfig{
		OnError: func(err error) { seen = append(seen, err) },
	}, NewStats())

	bad := Encode(MsgHello, []byte(`{}`))
	bad[5] ^= 0xFF
	asm.Feed(bad)

	if len(seen) != 1 {
		t.Fatalf("OnError called %d times, want 1", len(seen))
	}
}

func TestAssembler_TakeBuffer(t *testing.T) {
	asm := newTestAssembler()
	partial := []byte{StartByte, 0x01, 0x02}
	asm.Feed(partial)

	taken := asm.TakeBuffer()
	if !bytes.Equal(taken, partial) {
		t.Errorf("TakeBuffer = % X, want % X", taken, partial)
	}
	if asm.PendingBytes() != 0 {
		t.Error("buffer should be empty after TakeBuffer")
	}
}
