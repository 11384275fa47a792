// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package deckwire implements the Deckwire serial protocol.
//
// Deckwire is a binary framing protocol for communication between a host
// and a mixer deck appliance. Payloads are opaque UTF-8 JSON documents;
// this package provides frame encoding/decoding with CRC validation and
// byte stuffing, incremental frame reassembly from an arbitrary byte
// stream, message dispatch, link statistics, and the binary/text fallback
// controller. A legacy line-delimited text framing is retained for old
// firmware builds.
package deckwire

import "time"

// Protocol framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Frame geometry. The header is START + u32 length + u16 CRC + type byte;
// the trailer is a single END byte. Length and CRC are little-endian and
// describe the unescaped payload.
const (
	frameHeaderSize = 8
	frameOverhead   = 9
	MinFrameSize    = 8
)

// Size and timing defaults
const (
	DefaultMaxPayloadSize = 4096
	DefaultFrameTimeout   = time.Second
	DefaultMaxTextLine    = 8192
)

// CRC-16 configuration (reflected, MODBUS variant). This must match the
// deck firmware bit-for-bit; it is a compatibility contract, not a choice.
const (
	CRCPolynomial = 0xA001
	CRCInitial    = 0xFFFF
)

// Message types - Host → Deck 0x10-0x1F
const (
	MsgSessionList MessageType = 0x10
	MsgSessionIcon MessageType = 0x11
	MsgVolumeState MessageType = 0x12
	MsgSettings    MessageType = 0x13
	MsgPingRequest MessageType = 0x1F
)

// Message types - Deck → Host 0x20-0x2F
const (
	MsgHello         MessageType = 0x20
	MsgVolumeSet     MessageType = 0x21
	MsgMuteSet       MessageType = 0x22
	MsgSessionSelect MessageType = 0x23
	MsgButtonEvent   MessageType = 0x24
	MsgPingResponse  MessageType = 0x2F
)

// Message types - Diagnostics
const (
	MsgCrashReport MessageType = 0xE0
)
