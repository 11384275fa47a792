// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package capture records raw link traffic to a file for offline
// analysis with the debug-binary command. Records are a CBOR sequence,
// one per read or write, so a capture survives a crash mid-write.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a captured chunk relative to the host.
const (
	DirIn  = "in"
	DirOut = "out"
)

// Record is one captured read or write.
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Direction string    `cbor:"2,keyasint"`
	Data      []byte    `cbor:"3,keyasint"`
}

// Writer appends records to a capture stream. Safe for concurrent use;
// the session's read loop and Send path both write into it.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	c   io.Closer
}

// NewWriter captures into w. If w is also an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	cw := &Writer{enc: cbor.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		cw.c = c
	}
	return cw
}

// Create opens (truncating) a capture file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	return NewWriter(f), nil
}

// Record appends one chunk.
func (w *Writer) Record(outbound bool, data []byte) error {
	dir := DirIn
	if outbound {
		dir = DirOut
	}
	rec := Record{
		Time:      time.Now().UTC(),
		Direction: dir,
		Data:      append([]byte(nil), data...),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// ReadAll decodes every record from a capture stream.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)
	var out []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("corrupt capture record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}

// ReadFile decodes every record from a capture file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}

// InboundBytes concatenates the inbound chunks of a capture, in order.
// This is the byte stream the assembler saw.
func InboundBytes(records []Record) []byte {
	var out []byte
	for _, rec := range records {
		if rec.Direction == DirIn {
			out = append(out, rec.Data...)
		}
	}
	return out
}
