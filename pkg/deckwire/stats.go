// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Stats tracks per-session link statistics. Counters are updated with
// atomic increments because the reader, the writer, and the statistics
// timer all touch them; no lock is held across an update.
type Stats struct {
	startNanos atomic.Int64

	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
	bytesSent        atomic.Uint64
	bytesReceived    atomic.Uint64

	framingErrors     atomic.Uint64
	crcErrors         atomic.Uint64
	escapeErrors      atomic.Uint64
	overflowErrors    atomic.Uint64
	timeoutErrors     atomic.Uint64
	parseErrors       atomic.Uint64
	unknownTypeErrors atomic.Uint64
	transportErrors   atomic.Uint64
}

// NewStats creates a statistics tracker with the uptime clock started.
func NewStats() *Stats {
	s := &Stats{}
	s.startNanos.Store(time.Now().UnixNano())
	return s
}

// RecordSend accounts for one outbound message of the given wire size.
func (s *Stats) RecordSend(frameBytes int) {
	s.messagesSent.Add(1)
	s.bytesSent.Add(uint64(frameBytes))
}

// RecordReceive accounts for one inbound message of the given wire size.
func (s *Stats) RecordReceive(frameBytes int) {
	s.messagesReceived.Add(1)
	s.bytesReceived.Add(uint64(frameBytes))
}

// RecordDecodeError classifies a frame-level error into its counter.
func (s *Stats) RecordDecodeError(err error) {
	var (
		crcErr      *CRCError
		escErr      *EscapeError
		overflowErr *OverflowError
		timeoutErr  *TimeoutError
		parseErr    *ParseError
	)
	switch {
	case errors.As(err, &crcErr):
		s.crcErrors.Add(1)
	case errors.As(err, &escErr):
		s.escapeErrors.Add(1)
	case errors.As(err, &overflowErr):
		s.overflowErrors.Add(1)
	case errors.As(err, &timeoutErr):
		s.timeoutErrors.Add(1)
	case errors.As(err, &parseErr):
		s.parseErrors.Add(1)
	default:
		s.framingErrors.Add(1)
	}
}

// IncFramingErrors counts one framing error (e.g. a discarded noise span).
func (s *Stats) IncFramingErrors() { s.framingErrors.Add(1) }

// IncParseErrors counts one payload parse failure.
func (s *Stats) IncParseErrors() { s.parseErrors.Add(1) }

// IncUnknownType counts one message with no registered handler.
func (s *Stats) IncUnknownType() { s.unknownTypeErrors.Add(1) }

// IncTransportErrors counts one I/O failure on the underlying connection.
func (s *Stats) IncTransportErrors() { s.transportErrors.Add(1) }

// Snapshot is a read-only view of the counters with derived rates.
type Snapshot struct {
	Uptime time.Duration

	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64

	FramingErrors     uint64
	CRCErrors         uint64
	EscapeErrors      uint64
	OverflowErrors    uint64
	TimeoutErrors     uint64
	ParseErrors       uint64
	UnknownTypeErrors uint64
	TransportErrors   uint64

	TotalErrors uint64
	MessageRate float64 // messages received/sec
	ErrorRate   float64 // errors/sec
}

// Snapshot captures the current counters and derives rates over uptime.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Uptime:            time.Since(time.Unix(0, s.startNanos.Load())),
		MessagesSent:      s.messagesSent.Load(),
		MessagesReceived:  s.messagesReceived.Load(),
		BytesSent:         s.bytesSent.Load(),
		BytesReceived:     s.bytesReceived.Load(),
		FramingErrors:     s.framingErrors.Load(),
		CRCErrors:         s.crcErrors.Load(),
		EscapeErrors:      s.escapeErrors.Load(),
		OverflowErrors:    s.overflowErrors.Load(),
		TimeoutErrors:     s.timeoutErrors.Load(),
		ParseErrors:       s.parseErrors.Load(),
		UnknownTypeErrors: s.unknownTypeErrors.Load(),
		TransportErrors:   s.transportErrors.Load(),
	}

	snap.TotalErrors = snap.FramingErrors + snap.CRCErrors + snap.EscapeErrors +
		snap.OverflowErrors + snap.TimeoutErrors + snap.ParseErrors +
		snap.UnknownTypeErrors + snap.TransportErrors

	if secs := snap.Uptime.Seconds(); secs > 0 {
		snap.MessageRate = float64(snap.MessagesReceived) / secs
		snap.ErrorRate = float64(snap.TotalErrors) / secs
	}

	return snap
}

// Reset zeroes all counters and restarts the uptime clock.
func (s *Stats) Reset() {
	s.startNanos.Store(time.Now().UnixNano())
	s.messagesSent.Store(0)
	s.messagesReceived.Store(0)
	s.bytesSent.Store(0)
	s.bytesReceived.Store(0)
	s.framingErrors.Store(0)
	s.crcErrors.Store(0)
	s.escapeErrors.Store(0)
	s.overflowErrors.Store(0)
	s.timeoutErrors.Store(0)
	s.parseErrors.Store(0)
	s.unknownTypeErrors.Store(0)
	s.transportErrors.Store(0)
}

// String returns a formatted statistics summary.
func (sn Snapshot) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", sn.Uptime.Seconds())
	fmt.Fprintf(&b, "Messages Sent:     %8d (%d bytes)\n", sn.MessagesSent, sn.BytesSent)
	fmt.Fprintf(&b, "Messages Received: %8d (%d bytes)\n", sn.MessagesReceived, sn.BytesReceived)

	if sn.FramingErrors > 0 {
		fmt.Fprintf(&b, "Framing Errors:    %8d\n", sn.FramingErrors)
	}
	if sn.CRCErrors > 0 {
		fmt.Fprintf(&b, "CRC Errors:        %8d\n", sn.CRCErrors)
	}
	if sn.EscapeErrors > 0 {
		fmt.Fprintf(&b, "Escape Errors:     %8d\n", sn.EscapeErrors)
	}
	if sn.OverflowErrors > 0 {
		fmt.Fprintf(&b, "Overflow Errors:   %8d\n", sn.OverflowErrors)
	}
	if sn.TimeoutErrors > 0 {
		fmt.Fprintf(&b, "Timeout Errors:    %8d\n", sn.TimeoutErrors)
	}
	if sn.ParseErrors > 0 {
		fmt.Fprintf(&b, "Parse Errors:      %8d\n", sn.ParseErrors)
	}
	if sn.UnknownTypeErrors > 0 {
		fmt.Fprintf(&b, "Unknown Types:     %8d\n", sn.UnknownTypeErrors)
	}
	if sn.TransportErrors > 0 {
		fmt.Fprintf(&b, "Transport Errors:  %8d\n", sn.TransportErrors)
	}

	fmt.Fprintf(&b, "Message Rate:      %8.1f msgs/sec\n", sn.MessageRate)
	fmt.Fprintf(&b, "Error Rate:        %8.1f errors/sec\n", sn.ErrorRate)
	b.WriteString("================================\n")

	return b.String()
}
