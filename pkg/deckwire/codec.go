// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import "encoding/binary"

// Encode builds a complete wire frame for the given message type and
// payload. The payload is treated as opaque bytes; length and CRC describe
// the unescaped payload, and byte stuffing is applied to the payload only.
func Encode(msgType MessageType, payload []byte) []byte {
	crc := Checksum(payload)

	frame := make([]byte, 0, frameOverhead+len(payload)*2)
	frame = append(frame, StartByte)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	frame = binary.LittleEndian.AppendUint16(frame, crc)
	frame = append(frame, byte(msgType))
	frame = appendEscaped(frame, payload)
	frame = append(frame, EndByte)

	return frame
}

// Decode parses a single complete frame. Every rejection returns a tagged
// error value; Decode never panics.
func Decode(frame []byte) (MessageType, []byte, error) {
	if len(frame) < MinFrameSize {
		return 0, nil, &FramingError{Reason: "frame shorter than minimum"}
	}
	if frame[0] != StartByte {
		return 0, nil, &FramingError{Reason: "missing start marker"}
	}
	if frame[len(frame)-1] != EndByte {
		return 0, nil, &FramingError{Reason: "missing end marker"}
	}
	if len(frame) < frameOverhead {
		return 0, nil, &FramingError{Reason: "truncated header"}
	}

	declaredLen := binary.LittleEndian.Uint32(frame[1:5])
	declaredCRC := binary.LittleEndian.Uint16(frame[5:7])
	msgType := MessageType(frame[7])

	payload, err := Unescape(frame[frameHeaderSize : len(frame)-1])
	if err != nil {
		return 0, nil, err
	}

	if uint32(len(payload)) != declaredLen {
		return 0, nil, &FramingError{Reason: "declared length does not match payload"}
	}

	if crc := Checksum(payload); crc != declaredCRC {
		return 0, nil, &CRCError{Expected: crc, Received: declaredCRC}
	}

	return msgType, payload, nil
}

// appendEscaped appends payload to dst, replacing reserved byte values
// (START, END, ESC) with ESC followed by the byte XOR 0x20.
func appendEscaped(dst, payload []byte) []byte {
	for _, b := range payload {
		if b == StartByte || b == EndByte || b == EscByte {
			dst = append(dst, EscByte, b^EscXor)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}

// Unescape reverses byte stuffing. An escape byte with no following byte
// is an EscapeError.
func Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	escaped := false

	for i, b := range data {
		if escaped {
			out = append(out, b^EscXor)
			escaped = false
			continue
		}
		if b == EscByte {
			if i == len(data)-1 {
				return nil, &EscapeError{Offset: i}
			}
			escaped = true
			continue
		}
		out = append(out, b)
	}

	return out, nil
}
