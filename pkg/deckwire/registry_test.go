// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newMessage(t MessageType, payload string) *Message {
	return &Message{
		Type:      t,
		Payload:   json.RawMessage(payload),
		Source:    "test",
		Timestamp: time.Now(),
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry(nil, nil)

	var got *Message
	reg.Register(MsgVolumeSet, func(ctx context.Context, msg *Message) error {
		got = msg
		return nil
	})

	msg := newMessage(MsgVolumeSet, `{"session":"a","volume":0.5}`)
	if !reg.Dispatch(context.Background(), msg) {
		t.Fatal("Dispatch should succeed for a registered type")
	}
	if got != msg {
		t.Error("handler did not receive the dispatched message")
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	stats := NewStats()
	reg := NewRegistry(nil, stats)

	if reg.Dispatch(context.Background(), newMessage(MsgHello, `{}`)) {
		t.Error("Dispatch should return false for an unregistered type")
	}
	if got := stats.Snapshot().UnknownTypeErrors; got != 1 {
		t.Errorf("unknownTypeErrors = %d, want 1", got)
	}
}

func TestRegistry_ReplaceHandler(t *testing.T) {
	reg := NewRegistry(nil, nil)

	var calls []string
	reg.Register(MsgHello, func(ctx context.Context, msg *Message) error {
		calls = append(calls, "first")
		return nil
	})
	reg.Register(MsgHello, func(ctx context.Context, msg *Message) error {
		calls = append(calls, "second")
		return nil
	})

	reg.Dispatch(context.Background(), newMessage(MsgHello, `{}`))
	if len(calls) != 1 || calls[0] != "second" {
		t.Errorf("replacement handler not in effect: %v", calls)
	}
}

func TestRegistry_HandlerErrorAbsorbed(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(MsgMuteSet, func(ctx context.Context, msg *Message) error {
		return errors.New("backend unavailable")
	})

	if reg.Dispatch(context.Background(), newMessage(MsgMuteSet, `{}`)) {
		t.Error("Dispatch should return false when the handler fails")
	}
}

func TestRegistry_HandlerPanicRecovered(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(MsgButtonEvent, func(ctx context.Context, msg *Message) error {
		panic("bad index")
	})

	// Must not propagate the panic.
	if reg.Dispatch(context.Background(), newMessage(MsgButtonEvent, `{}`)) {
		t.Error("Dispatch should return false when the handler panics")
	}
}

func TestRegistry_ParseErrorCounted(t *testing.T) {
	stats := NewStats()
	reg := NewRegistry(nil, stats)
	reg.Register(MsgVolumeSet, func(ctx context.Context, msg *Message) error {
		var p VolumeSetPayload
		return msg.DecodePayload(&p)
	})

	msg := newMessage(MsgVolumeSet, `{"volume":"not a number"`)
	if reg.Dispatch(context.Background(), msg) {
		t.Error("Dispatch should fail on a malformed payload")
	}
	if got := stats.Snapshot().ParseErrors; got != 1 {
		t.Errorf("parseErrors = %d, want 1", got)
	}
}

func TestRegistry_Handles(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(MsgPingResponse, func(ctx context.Context, msg *Message) error { return nil })

	if !reg.Handles(MsgPingResponse) {
		t.Error("Handles should report the registered type")
	}
	if reg.Handles(MsgCrashReport) {
		t.Error("Handles should not report an unregistered type")
	}
}
