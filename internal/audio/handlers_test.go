// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package audio

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

type sentMessage struct {
	Type    deckwire.MessageType
	Payload []byte
}

type recorder struct {
	sent []sentMessage
}

func (r *recorder) send(msgType deckwire.MessageType, payload []byte) error {
	r.sent = append(r.sent, sentMessage{Type: msgType, Payload: payload})
	return nil
}

type fakeIcons struct {
	icons map[string][]byte
}

func (f *fakeIcons) Icon(session string) (string, []byte, error) {
	data, ok := f.icons[session]
	if !ok {
		return "", nil, assert.AnError
	}
	return "image/png", data, nil
}

func dispatch(t *testing.T, reg *deckwire.Registry, msgType deckwire.MessageType, payload string) bool {
	t.Helper()
	return reg.Dispatch(context.Background(), &deckwire.Message{
		Type:      msgType,
		Payload:   json.RawMessage(payload),
		Source:    "test",
		Timestamp: time.Now(),
	})
}

func testBackend() *MemoryBackend {
	return NewMemoryBackend(
		deckwire.SessionInfo{PID: 100, Name: "music.exe", Volume: 0.8},
		deckwire.SessionInfo{PID: 200, Name: "game.exe", Volume: 1.0},
	)
}

func TestHello_RepliesWithSessionList(t *testing.T) {
	rec := &recorder{}
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, testBackend(), rec.send, nil, nil)

	ok := dispatch(t, reg, deckwire.MsgHello, `{"firmware":"2.1.0","protocol":1,"faders":4}`)
	require.True(t, ok)

	require.Len(t, rec.sent, 1)
	assert.Equal(t, deckwire.MsgSessionList, rec.sent[0].Type)

	var list deckwire.SessionListPayload
	require.NoError(t, json.Unmarshal(rec.sent[0].Payload, &list))
	require.Len(t, list.Sessions, 2)
	// Sessions are sorted by name.
	assert.Equal(t, "game.exe", list.Sessions[0].Name)
	assert.Equal(t, "music.exe", list.Sessions[1].Name)
}

func TestHello_StreamsIcons(t *testing.T) {
	rec := &recorder{}
	reg := deckwire.NewRegistry(nil, nil)
	icons := &fakeIcons{icons: map[string][]byte{"music.exe": {0x89, 0x50}}}
	Bind(reg, testBackend(), rec.send, icons, nil)

	require.True(t, dispatch(t, reg, deckwire.MsgHello, `{"firmware":"2.1.0"}`))

	// session_list first, then one icon for the session we have art for.
	require.Len(t, rec.sent, 2)
	assert.Equal(t, deckwire.MsgSessionIcon, rec.sent[1].Type)

	var icon deckwire.SessionIconPayload
	require.NoError(t, json.Unmarshal(rec.sent[1].Payload, &icon))
	assert.Equal(t, "music.exe", icon.Session)
	assert.Equal(t, "image/png", icon.MIME)
	assert.Equal(t, []byte{0x89, 0x50}, icon.Data)
}

func TestVolumeSet_AppliesAndConfirms(t *testing.T) {
	rec := &recorder{}
	backend := testBackend()
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, backend, rec.send, nil, nil)

	ok := dispatch(t, reg, deckwire.MsgVolumeSet, `{"session":"music.exe","volume":0.25}`)
	require.True(t, ok)

	sessions, _ := backend.Sessions()
	for _, s := range sessions {
		if s.Name == "music.exe" {
			assert.InDelta(t, 0.25, s.Volume, 1e-9)
		}
	}

	require.Len(t, rec.sent, 1)
	assert.Equal(t, deckwire.MsgVolumeState, rec.sent[0].Type)

	var state deckwire.VolumeStatePayload
	require.NoError(t, json.Unmarshal(rec.sent[0].Payload, &state))
	assert.Equal(t, "music.exe", state.Session)
	assert.InDelta(t, 0.25, state.Volume, 1e-9)
}

func TestVolumeSet_RejectsOutOfRange(t *testing.T) {
	rec := &recorder{}
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, testBackend(), rec.send, nil, nil)

	ok := dispatch(t, reg, deckwire.MsgVolumeSet, `{"session":"music.exe","volume":1.5}`)
	assert.False(t, ok)
	assert.Empty(t, rec.sent, "no state confirmation for a rejected change")
}

func TestVolumeSet_UnknownSession(t *testing.T) {
	rec := &recorder{}
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, testBackend(), rec.send, nil, nil)

	ok := dispatch(t, reg, deckwire.MsgVolumeSet, `{"session":"ghost.exe","volume":0.5}`)
	assert.False(t, ok)
}

func TestMuteSet_AppliesAndConfirms(t *testing.T) {
	rec := &recorder{}
	backend := testBackend()
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, backend, rec.send, nil, nil)

	ok := dispatch(t, reg, deckwire.MsgMuteSet, `{"session":"game.exe","muted":true}`)
	require.True(t, ok)

	require.Len(t, rec.sent, 1)
	var state deckwire.VolumeStatePayload
	require.NoError(t, json.Unmarshal(rec.sent[0].Payload, &state))
	assert.True(t, state.Muted)
	assert.InDelta(t, 1.0, state.Volume, 1e-9, "mute must not touch the volume")
}

func TestMalformedPayloadRejected(t *testing.T) {
	rec := &recorder{}
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, testBackend(), rec.send, nil, nil)

	ok := dispatch(t, reg, deckwire.MsgVolumeSet, `{"volume":"loud"}`)
	assert.False(t, ok)
	assert.Empty(t, rec.sent)
}

func TestInformationalHandlers(t *testing.T) {
	rec := &recorder{}
	reg := deckwire.NewRegistry(nil, nil)
	Bind(reg, testBackend(), rec.send, nil, nil)

	assert.True(t, dispatch(t, reg, deckwire.MsgSessionSelect, `{"slot":2,"session":"music.exe"}`))
	assert.True(t, dispatch(t, reg, deckwire.MsgButtonEvent, `{"button":1,"action":"press"}`))
	assert.True(t, dispatch(t, reg, deckwire.MsgPingResponse, `{"uptimeMs":500}`))
	assert.True(t, dispatch(t, reg, deckwire.MsgCrashReport, `{"reason":"watchdog"}`))
	assert.Empty(t, rec.sent, "informational messages produce no replies")
}
