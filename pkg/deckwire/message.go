// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies a protocol message. On the binary wire it is the
// type byte at offset 7; in the legacy text framing it appears as either
// the numeric value or the wire name in the messageType field.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgSessionList:   "session_list",
	MsgSessionIcon:   "session_icon",
	MsgVolumeState:   "volume_state",
	MsgSettings:      "settings",
	MsgPingRequest:   "ping_request",
	MsgHello:         "hello",
	MsgVolumeSet:     "volume_set",
	MsgMuteSet:       "mute_set",
	MsgSessionSelect: "session_select",
	MsgButtonEvent:   "button_event",
	MsgPingResponse:  "ping_response",
	MsgCrashReport:   "crash_report",
}

var messageTypesByName = func() map[string]MessageType {
	m := make(map[string]MessageType, len(messageTypeNames))
	for t, name := range messageTypeNames {
		m[name] = t
	}
	return m
}()

// String returns the wire name for the message type.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02X)", uint8(t))
}

// Known reports whether the type is part of the message catalog.
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// ParseMessageType resolves a legacy string name to a message type.
func ParseMessageType(name string) (MessageType, bool) {
	t, ok := messageTypesByName[name]
	return t, ok
}

// Message is a parsed protocol message ready for dispatch. Payload holds
// the raw JSON document; handlers decode it into their expected shape.
type Message struct {
	Type      MessageType
	Payload   json.RawMessage
	Source    string
	Timestamp time.Time
}

// DecodePayload unmarshals the JSON payload into v, wrapping failures as
// a ParseError so the caller can account for them.
func (m *Message) DecodePayload(v interface{}) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}
