// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TextFraming selects how text-mode messages are delimited.
type TextFraming int

// Text framing variants
const (
	// TextNewline delimits messages with a trailing newline.
	TextNewline TextFraming = iota
	// TextMarkers wraps messages in <MSG>...</MSG>.
	TextMarkers
)

// Text marker tokens for TextMarkers framing.
var (
	textMsgStart = []byte("<MSG>")
	textMsgEnd   = []byte("</MSG>")
)

// TextSplitter incrementally splits a byte stream into text-mode message
// bodies. Like the binary assembler it retains partial input across Feed
// calls and never loses or duplicates bytes.
type TextSplitter struct {
	framing TextFraming
	buf     []byte
	maxLine int
}

// NewTextSplitter creates a splitter. maxLine <= 0 defaults to
// DefaultMaxTextLine; input exceeding it without a delimiter is dropped.
func NewTextSplitter(framing TextFraming, maxLine int) *TextSplitter {
	if maxLine <= 0 {
		maxLine = DefaultMaxTextLine
	}
	return &TextSplitter{framing: framing, maxLine: maxLine}
}

// Feed appends a chunk and returns zero or more complete message bodies
// (without delimiters).
func (s *TextSplitter) Feed(chunk []byte) [][]byte {
	s.buf = append(s.buf, chunk...)

	var out [][]byte
	for {
		body, rest, ok := s.next()
		if !ok {
			break
		}
		s.buf = rest
		if len(bytes.TrimSpace(body)) == 0 {
			continue
		}
		line := make([]byte, len(body))
		copy(line, body)
		out = append(out, line)
	}

	if len(s.buf) > s.maxLine {
		s.buf = s.buf[:0]
	}
	return out
}

func (s *TextSplitter) next() (body, rest []byte, ok bool) {
	switch s.framing {
	case TextMarkers:
		start := bytes.Index(s.buf, textMsgStart)
		if start < 0 {
			return nil, nil, false
		}
		from := start + len(textMsgStart)
		end := bytes.Index(s.buf[from:], textMsgEnd)
		if end < 0 {
			return nil, nil, false
		}
		return s.buf[from : from+end], s.buf[from+end+len(textMsgEnd):], true
	default:
		nl := bytes.IndexByte(s.buf, '\n')
		if nl < 0 {
			return nil, nil, false
		}
		return s.buf[:nl], s.buf[nl+1:], true
	}
}

// textEnvelope extracts the message-type discriminator from a text-mode
// JSON object. The field may be the numeric type value or the legacy
// string name.
type textEnvelope struct {
	MessageType json.RawMessage `json:"messageType"`
}

// ParseTextMessage parses one text-mode body into a Message. The full
// JSON object is retained as the payload; handlers read their fields from
// it directly.
func ParseTextMessage(body []byte, source string) (*Message, error) {
	body = bytes.TrimSpace(body)

	var env textEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(env.MessageType) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("missing messageType field")}
	}

	msgType, err := resolveTextType(env.MessageType)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      msgType,
		Payload:   json.RawMessage(body),
		Source:    source,
		Timestamp: time.Now(),
	}, nil
}

func resolveTextType(raw json.RawMessage) (MessageType, error) {
	text := string(bytes.TrimSpace(raw))

	if n, err := strconv.ParseUint(text, 10, 64); err == nil {
		if n > 0xFF {
			return 0, &ParseError{Err: fmt.Errorf("messageType %d out of range", n)}
		}
		return MessageType(n), nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, &ParseError{Err: fmt.Errorf("messageType is neither number nor string")}
	}
	t, ok := ParseMessageType(name)
	if !ok {
		return 0, &ParseError{Err: fmt.Errorf("unknown messageType name %q", name)}
	}
	return t, nil
}

// EncodeTextMessage renders a message body for the text framing: the
// payload object with a messageType field injected, wrapped according to
// the framing variant.
func EncodeTextMessage(framing TextFraming, msgType MessageType, payload []byte) ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, &ParseError{Err: err}
		}
	}
	fields["messageType"] = json.RawMessage(strconv.Itoa(int(msgType)))

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	switch framing {
	case TextMarkers:
		out := make([]byte, 0, len(body)+len(textMsgStart)+len(textMsgEnd))
		out = append(out, textMsgStart...)
		out = append(out, body...)
		out = append(out, textMsgEnd...)
		return out, nil
	default:
		return append(body, '\n'), nil
	}
}
