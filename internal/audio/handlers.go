// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package audio

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

// Sender pushes one message back to the deck. session.Session.Send
// satisfies this.
type Sender func(msgType deckwire.MessageType, payload []byte) error

// IconStore resolves per-session icon assets. May be nil when no asset
// directory is configured.
type IconStore interface {
	Icon(session string) (mime string, data []byte, err error)
}

// Bind registers the deck-to-host message handlers on the registry.
// Handlers reply through send using whatever framing mode the session
// is in at that moment.
func Bind(registry *deckwire.Registry, backend Backend, send Sender, icons IconStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{backend: backend, send: send, icons: icons, logger: logger}

	registry.Register(deckwire.MsgHello, h.hello)
	registry.Register(deckwire.MsgVolumeSet, h.volumeSet)
	registry.Register(deckwire.MsgMuteSet, h.muteSet)
	registry.Register(deckwire.MsgSessionSelect, h.sessionSelect)
	registry.Register(deckwire.MsgButtonEvent, h.buttonEvent)
	registry.Register(deckwire.MsgPingResponse, h.pingResponse)
	registry.Register(deckwire.MsgCrashReport, h.crashReport)
}

type handlers struct {
	backend Backend
	send    Sender
	icons   IconStore
	logger  *zap.Logger
}

// hello answers a (re)booted deck with the session list, then streams
// any icons we have for those sessions.
func (h *handlers) hello(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.HelloPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}
	h.logger.Info("deck announced",
		zap.String("firmware", p.Firmware),
		zap.Int("protocol", p.Protocol),
		zap.Int("faders", p.FaderCount),
	)

	sessions, err := h.backend.Sessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if err := h.reply(deckwire.MsgSessionList, deckwire.SessionListPayload{Sessions: sessions}); err != nil {
		return err
	}

	if h.icons == nil {
		return nil
	}
	for _, s := range sessions {
		mime, data, err := h.icons.Icon(s.Name)
		if err != nil {
			continue
		}
		err = h.reply(deckwire.MsgSessionIcon, deckwire.SessionIconPayload{
			Session: s.Name,
			MIME:    mime,
			Data:    data,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *handlers) volumeSet(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.VolumeSetPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}

	state, err := h.backend.SetVolume(p.Session, p.PID, p.Volume)
	if err != nil {
		h.logger.Warn("volume change rejected",
			zap.String("session", p.Session),
			zap.Float64("volume", p.Volume),
			zap.Error(err),
		)
		return err
	}

	return h.reply(deckwire.MsgVolumeState, deckwire.VolumeStatePayload{
		PID:     state.PID,
		Session: state.Name,
		Volume:  state.Volume,
		Muted:   state.Muted,
	})
}

func (h *handlers) muteSet(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.MuteSetPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}

	state, err := h.backend.SetMute(p.Session, p.PID, p.Muted)
	if err != nil {
		h.logger.Warn("mute change rejected",
			zap.String("session", p.Session),
			zap.Bool("muted", p.Muted),
			zap.Error(err),
		)
		return err
	}

	return h.reply(deckwire.MsgVolumeState, deckwire.VolumeStatePayload{
		PID:     state.PID,
		Session: state.Name,
		Volume:  state.Volume,
		Muted:   state.Muted,
	})
}

func (h *handlers) sessionSelect(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.SessionSelectPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}
	h.logger.Info("fader slot assigned",
		zap.Int("slot", p.Slot),
		zap.String("session", p.Session),
	)
	return nil
}

func (h *handlers) buttonEvent(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.ButtonEventPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}
	h.logger.Debug("button event",
		zap.Int("button", p.Button),
		zap.String("action", p.Action),
	)
	return nil
}

func (h *handlers) pingResponse(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.PingResponsePayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}
	h.logger.Debug("pong", zap.Uint64("deck_uptime_ms", p.UptimeMs))
	return nil
}

func (h *handlers) crashReport(ctx context.Context, msg *deckwire.Message) error {
	var p deckwire.CrashReportPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}
	h.logger.Error("deck crash report",
		zap.String("reason", p.Reason),
		zap.Int("dump_bytes", len(p.Dump)),
	)
	return nil
}

func (h *handlers) reply(msgType deckwire.MessageType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return h.send(msgType, body)
}
