// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"bytes"
	"time"
)

// Frame is one complete, validated binary-protocol unit.
type Frame struct {
	Type      MessageType
	Payload   []byte
	Timestamp time.Time
}

// AssemblerConfig configures incremental frame reassembly.
type AssemblerConfig struct {
	// MaxPayloadSize bounds the unescaped payload. The assembler allows up
	// to twice this many escaped bytes in an unterminated frame, since
	// stuffing at worst doubles the payload.
	MaxPayloadSize int

	// FrameTimeout is the time budget for a partial frame, measured from
	// the moment its START byte is recognized.
	FrameTimeout time.Duration

	// OnError, when set, is invoked once per frame-level error after the
	// corresponding counter has been incremented.
	OnError func(error)
}

// Assembler converts an unbounded, arbitrarily-chunked byte stream into a
// sequence of complete frames. It tolerates reads that split a frame
// anywhere, reads that deliver several frames at once, and garbage bytes
// preceding a valid START. No byte is ever lost or duplicated across Feed
// calls, and a frame is emitted exactly once, fully reassembled.
//
// An Assembler is not safe for concurrent use; each session owns one.
type Assembler struct {
	cfg   AssemblerConfig
	stats *Stats

	buf        []byte
	tracking   bool
	frameStart time.Time

	now func() time.Time
}

// NewAssembler creates an assembler. A nil stats creates a private tracker.
func NewAssembler(cfg AssemblerConfig, stats *Stats) *Assembler {
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Assembler{cfg: cfg, stats: stats, now: time.Now}
}

// Stats returns the statistics tracker the assembler reports into.
func (a *Assembler) Stats() *Stats { return a.stats }

// PendingBytes returns the number of buffered bytes not yet resolved.
func (a *Assembler) PendingBytes() int { return len(a.buf) }

// TakeBuffer removes and returns the unresolved buffered bytes. Used when
// the session falls back to text framing mid-stream.
func (a *Assembler) TakeBuffer() []byte {
	out := a.buf
	a.buf = nil
	a.tracking = false
	return out
}

// Reset discards all buffered state.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.tracking = false
}

// Feed appends a chunk of raw bytes and returns zero or more complete
// frames. Partial frames are retained across calls.
func (a *Assembler) Feed(chunk []byte) []*Frame {
	a.buf = append(a.buf, chunk...)

	var frames []*Frame
	for {
		idx := bytes.IndexByte(a.buf, StartByte)
		if idx < 0 {
			// Pure noise: discard the span and count it once.
			if len(a.buf) > 0 {
				a.reportError(&FramingError{Reason: "discarded noise before start marker"})
				a.buf = a.buf[:0]
			}
			a.tracking = false
			return frames
		}
		if idx > 0 {
			a.reportError(&FramingError{Reason: "discarded noise before start marker"})
			a.buf = a.buf[idx:]
			a.tracking = false
		}

		if !a.tracking {
			a.tracking = true
			a.frameStart = a.now()
		}

		if len(a.buf) < frameHeaderSize {
			// Normal partial-frame state; wait for more data.
			if a.expireTimeout() {
				continue
			}
			return frames
		}

		end := a.findEnd()
		if end < 0 {
			if limit := a.cfg.MaxPayloadSize*2 + frameOverhead; len(a.buf) > limit {
				a.reportError(&OverflowError{Size: len(a.buf), Limit: limit})
				a.buf = a.buf[:0]
				a.tracking = false
				return frames
			}
			if a.expireTimeout() {
				continue
			}
			return frames
		}

		frameBytes := a.buf[: end+1 : end+1]
		msgType, payload, err := Decode(frameBytes)
		if err != nil {
			a.reportError(err)
			a.resyncFrom(1)
			continue
		}

		a.stats.RecordReceive(len(frameBytes))
		frames = append(frames, &Frame{
			Type:      msgType,
			Payload:   payload,
			Timestamp: a.now(),
		})

		a.buf = a.buf[end+1:]
		a.tracking = false
	}
}

// CheckTimeout expires a stale partial frame when no new bytes are
// arriving. Returns true if a timeout was declared.
func (a *Assembler) CheckTimeout() bool {
	if !a.tracking {
		return false
	}
	return a.expireTimeout()
}

// findEnd locates the unescaped END byte terminating the frame that
// begins at buf[0]. Header bytes are not escaped, so the scan starts at
// the payload region; a preceding ESC byte marks the next byte literal.
func (a *Assembler) findEnd() int {
	escaped := false
	for i := frameHeaderSize; i < len(a.buf); i++ {
		b := a.buf[i]
		if escaped {
			escaped = false
			continue
		}
		if b == EscByte {
			escaped = true
			continue
		}
		if b == EndByte {
			return i
		}
	}
	return -1
}

// expireTimeout drops a timed-out partial frame and resyncs to the next
// START. Returns true when a timeout fired (the caller should re-scan).
func (a *Assembler) expireTimeout() bool {
	if !a.tracking {
		return false
	}
	age := a.now().Sub(a.frameStart)
	if age <= a.cfg.FrameTimeout {
		return false
	}
	a.reportError(&TimeoutError{Age: age, Limit: a.cfg.FrameTimeout})
	a.resyncFrom(1)
	return true
}

// resyncFrom discards buffered bytes up to the next START at or after
// index i.
func (a *Assembler) resyncFrom(i int) {
	if i >= len(a.buf) {
		a.buf = a.buf[:0]
		a.tracking = false
		return
	}
	j := bytes.IndexByte(a.buf[i:], StartByte)
	if j < 0 {
		a.buf = a.buf[:0]
		a.tracking = false
		return
	}
	a.buf = a.buf[i+j:]
	a.tracking = true
	a.frameStart = a.now()
}

func (a *Assembler) reportError(err error) {
	a.stats.RecordDecodeError(err)
	if a.cfg.OnError != nil {
		a.cfg.OnError(err)
	}
}
