// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"fmt"
	"time"
)

// Frame-level errors are returned as tagged values, never panics. The
// assembler counts them in Stats and resynchronizes; they do not abort
// the read loop.

// FramingError reports a bad start/end marker, a truncated frame, a
// declared-length mismatch, or discarded noise between frames.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error: %s", e.Reason)
}

// CRCError reports a checksum mismatch on an otherwise well-formed frame.
type CRCError struct {
	Expected uint16 // computed over the unescaped payload
	Received uint16 // declared in the frame header
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("CRC mismatch: expected 0x%04X, got 0x%04X", e.Expected, e.Received)
}

// EscapeError reports a dangling escape byte with no following byte.
type EscapeError struct {
	Offset int
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("incomplete escape sequence at offset %d", e.Offset)
}

// OverflowError reports an unterminated frame exceeding the buffer bound.
type OverflowError struct {
	Size  int
	Limit int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("buffer overflow: %d bytes buffered (limit %d)", e.Size, e.Limit)
}

// TimeoutError reports a partial frame exceeding its time budget.
type TimeoutError struct {
	Age   time.Duration
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("partial frame timed out after %s (limit %s)", e.Age, e.Limit)
}

// ParseError reports a payload that is not the expected JSON shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("payload parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
