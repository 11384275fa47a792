// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

// Typed payload shapes for the message catalog. The framer treats
// payloads as opaque JSON; these structs are the shapes handlers decode
// into and the host marshals from. In text mode the same objects carry an
// extra messageType field, which decoding ignores.

// HelloPayload announces the deck after boot or reconnect.
type HelloPayload struct {
	Firmware     string `json:"firmware"`
	Protocol     int    `json:"protocol"`
	FaderCount   int    `json:"faders"`
	ButtonCount  int    `json:"buttons"`
	DisplayLines int    `json:"displayLines,omitempty"`
}

// VolumeSetPayload is sent when a knob or fader moves.
type VolumeSetPayload struct {
	PID     int     `json:"pid,omitempty"`
	Session string  `json:"session"`
	Volume  float64 `json:"volume"` // 0.0 .. 1.0
}

// MuteSetPayload toggles mute for a session.
type MuteSetPayload struct {
	PID     int    `json:"pid,omitempty"`
	Session string `json:"session"`
	Muted   bool   `json:"muted"`
}

// SessionSelectPayload assigns a session to a physical fader slot.
type SessionSelectPayload struct {
	Slot    int    `json:"slot"`
	Session string `json:"session"`
}

// ButtonEventPayload reports a physical button press or release.
type ButtonEventPayload struct {
	Button int    `json:"button"`
	Action string `json:"action"` // "press", "release", "hold"
}

// PingResponsePayload carries deck uptime.
type PingResponsePayload struct {
	UptimeMs uint64 `json:"uptimeMs"`
}

// SessionInfo describes one audio session in a session_list.
type SessionInfo struct {
	PID    int     `json:"pid"`
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
	IconID string  `json:"iconId,omitempty"`
}

// SessionListPayload is the host's answer to hello: the dispatchable
// audio sessions.
type SessionListPayload struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionIconPayload carries one icon asset for a process.
type SessionIconPayload struct {
	Session string `json:"session"`
	MIME    string `json:"mime"`
	Data    []byte `json:"data"` // base64 in JSON
}

// VolumeStatePayload is the host's authoritative state for a session,
// sent after applying a deck command or on unsolicited change.
type VolumeStatePayload struct {
	PID     int     `json:"pid,omitempty"`
	Session string  `json:"session"`
	Volume  float64 `json:"volume"`
	Muted   bool    `json:"muted"`
}

// SettingsPayload pushes deck-side settings.
type SettingsPayload struct {
	SleepAfterS int  `json:"sleepAfterS,omitempty"`
	Brightness  int  `json:"brightness,omitempty"`
	Accel       bool `json:"accel,omitempty"`
}

// CrashReportPayload is raw diagnostic data from the deck; decoding it is
// a collaborator concern, the bridge only logs and forwards it.
type CrashReportPayload struct {
	Reason string `json:"reason"`
	Dump   []byte `json:"dump,omitempty"`
}
