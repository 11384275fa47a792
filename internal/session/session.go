// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package session runs the long-lived link to one deck: it owns the
// connection, reassembles frames, dispatches messages, falls back to
// text framing when the deck turns out to speak the legacy protocol,
// and reconnects with a fixed delay when the transport drops.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/volumedeck/deckbridge/internal/logging"
	"github.com/volumedeck/deckbridge/internal/transport"
	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

// State is the connection lifecycle phase.
type State int32

// Session states
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "invalid"
	}
}

// ErrNotConnected is returned by Send while the link is down.
var ErrNotConnected = errors.New("session not connected")

// Dialer opens the transport. The session calls it on every connection
// attempt so a reconnect gets a fresh port or socket.
type Dialer func() (transport.Connection, string, error)

// Config parameterizes a session.
type Config struct {
	// Source labels inbound messages, e.g. the port name.
	Source string

	// Protocol behavior.
	BinaryEnabled     bool
	FallbackThreshold int
	TextMarkers       bool
	MaxPayloadSize    int
	FrameTimeout      time.Duration

	// Timing. Zero values get sensible defaults.
	ReconnectDelay time.Duration
	StatsInterval  time.Duration

	// Observers. All are optional and are invoked from session
	// goroutines; they must not block.
	OnState   func(state State, desc string)
	OnMessage func(msg *deckwire.Message)
	OnRaw     func(outbound bool, data []byte)
}

// Session is one deck link. Create with New, drive with Run.
type Session struct {
	cfg      Config
	dial     Dialer
	registry *deckwire.Registry
	stats    *deckwire.Stats
	mode     *deckwire.ModeController
	logger   *zap.Logger

	state atomic.Int32

	// connMu guards conn; writeMu serializes writers so frames never
	// interleave on the wire.
	connMu  sync.RWMutex
	conn    transport.Connection
	writeMu sync.Mutex

	// protoMu guards the reassembly state shared between the read loop
	// and the frame-timeout ticker.
	protoMu      sync.Mutex
	asm          *deckwire.Assembler
	splitter     *deckwire.TextSplitter
	binaryProven bool
}

// New creates a session. The registry and logger are required; stats
// may be shared with other components.
func New(cfg Config, dial Dialer, registry *deckwire.Registry, stats *deckwire.Stats, logger *zap.Logger) *Session {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if stats == nil {
		stats = deckwire.NewStats()
	}
	if logger == nil {
		logger = logging.Silent()
	}

	s := &Session{
		cfg:      cfg,
		dial:     dial,
		registry: registry,
		stats:    stats,
		mode:     deckwire.NewModeController(cfg.BinaryEnabled, cfg.FallbackThreshold),
		logger:   logger,
	}

	s.asm = deckwire.NewAssembler(deckwire.AssemblerConfig{
		MaxPayloadSize: cfg.MaxPayloadSize,
		FrameTimeout:   cfg.FrameTimeout,
		OnError:        s.onDecodeError,
	}, stats)
	s.splitter = deckwire.NewTextSplitter(s.textFraming(), 0)

	return s
}

// Stats returns the shared statistics tracker.
func (s *Session) Stats() *deckwire.Stats { return s.stats }

// Mode returns the current framing mode.
func (s *Session) Mode() deckwire.Mode { return s.mode.Mode() }

// State returns the connection state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) textFraming() deckwire.TextFraming {
	if s.cfg.TextMarkers {
		return deckwire.TextMarkers
	}
	return deckwire.TextNewline
}

// Run connects and services the link until ctx is canceled. Transport
// failures trigger reconnect attempts with a fixed delay; Run only
// returns on cancellation.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(StateDisconnected, "")

	first := true
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if first {
			s.setState(StateConnecting, "")
		} else {
			s.setState(StateReconnecting, "")
		}

		conn, desc, err := s.dial()
		if err != nil {
			s.stats.IncTransportErrors()
			s.logger.Warn("connection failed",
				zap.Error(err),
				zap.Duration("retry_in", s.cfg.ReconnectDelay),
			)
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				return ctx.Err()
			}
			first = false
			continue
		}

		s.logger.Info("connected", zap.String("transport", desc))
		s.setConn(conn)
		s.setState(StateConnected, desc)

		err = s.serve(ctx, conn)
		s.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.stats.IncTransportErrors()
		s.logger.Warn("connection lost",
			zap.Error(err),
			zap.Duration("retry_in", s.cfg.ReconnectDelay),
		)
		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			return ctx.Err()
		}
		first = false
	}
}

// serve reads the connection until it fails or ctx is canceled.
func (s *Session) serve(ctx context.Context, conn transport.Connection) error {
	// Close the connection on cancellation so the blocking Read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go s.tickers(ctx, done)

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if s.cfg.OnRaw != nil {
				s.cfg.OnRaw(false, append([]byte(nil), buf[:n]...))
			}
			s.ingest(ctx, buf[:n])
		}
		if err != nil {
			return err
		}
	}
}

// tickers drives the frame timeout check and the periodic statistics
// log while one connection is being served.
func (s *Session) tickers(ctx context.Context, done <-chan struct{}) {
	timeoutEvery := s.cfg.FrameTimeout
	if timeoutEvery <= 0 {
		timeoutEvery = deckwire.DefaultFrameTimeout
	}
	timeout := time.NewTicker(timeoutEvery / 2)
	defer timeout.Stop()

	var statsC <-chan time.Time
	if s.cfg.StatsInterval > 0 {
		statsTicker := time.NewTicker(s.cfg.StatsInterval)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-timeout.C:
			s.protoMu.Lock()
			s.asm.CheckTimeout()
			s.protoMu.Unlock()
		case <-statsC:
			s.logger.Info("link statistics", zap.String("stats", "\n"+s.stats.Snapshot().String()))
		}
	}
}

// ingest routes a received chunk through the framing for the current
// mode. A mid-chunk fallback hands the assembler's leftover bytes to
// the text splitter so nothing is lost.
func (s *Session) ingest(ctx context.Context, chunk []byte) {
	s.protoMu.Lock()
	defer s.protoMu.Unlock()

	if s.mode.Mode() == deckwire.ModeBinary {
		var frames []*deckwire.Frame
		var combined []byte
		if s.binaryProven {
			frames = s.asm.Feed(chunk)
		} else {
			// While the fallback is still possible, reclaim the pending
			// partial bytes and feed them back together with the new
			// chunk. Feed is prefix-stable, so this is a no-op for binary
			// traffic, but it keeps the whole unconsumed stream in hand
			// in case this very chunk triggers the text fallback.
			combined = append(s.asm.TakeBuffer(), chunk...)
			frames = s.asm.Feed(combined)
		}
		for _, f := range frames {
			s.binaryProven = true
			s.mode.RecordSuccess()
			msg := &deckwire.Message{
				Type:      f.Type,
				Payload:   f.Payload,
				Source:    s.cfg.Source,
				Timestamp: f.Timestamp,
			}
			s.deliver(ctx, msg)
		}
		if s.mode.Mode() == deckwire.ModeBinary {
			return
		}
		// Fallback fired inside Feed. No frame has ever decoded on this
		// link, so the whole unconsumed stream is text; reparse it from
		// the top.
		s.asm.Reset()
		chunk = combined
	}

	for _, body := range s.splitter.Feed(chunk) {
		msg, err := deckwire.ParseTextMessage(body, s.cfg.Source)
		if err != nil {
			s.stats.RecordDecodeError(err)
			s.logger.Debug("text message rejected", zap.Error(err), logging.HexField("body", body))
			continue
		}
		s.stats.RecordReceive(len(body))
		s.deliver(ctx, msg)
	}
}

func (s *Session) deliver(ctx context.Context, msg *deckwire.Message) {
	if s.cfg.OnMessage != nil {
		s.cfg.OnMessage(msg)
	}
	s.registry.Dispatch(ctx, msg)
}

// onDecodeError runs inside the assembler while protoMu is held.
func (s *Session) onDecodeError(err error) {
	s.logger.Debug("frame rejected", zap.Error(err))
	if s.mode.RecordFailure() {
		s.logger.Warn("falling back to text framing",
			zap.Uint64("failures", s.mode.Failures()),
			zap.Error(err),
		)
	}
}

// Send encodes and writes one message using the current framing mode.
func (s *Session) Send(msgType deckwire.MessageType, payload []byte) error {
	var wire []byte
	switch s.mode.Mode() {
	case deckwire.ModeBinary:
		wire = deckwire.Encode(msgType, payload)
	default:
		var err error
		wire, err = deckwire.EncodeTextMessage(s.textFraming(), msgType, payload)
		if err != nil {
			return fmt.Errorf("failed to encode text message: %w", err)
		}
	}

	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	_, err := conn.Write(wire)
	s.writeMu.Unlock()
	if err != nil {
		s.stats.IncTransportErrors()
		return fmt.Errorf("write failed: %w", err)
	}

	s.stats.RecordSend(len(wire))
	if s.cfg.OnRaw != nil {
		s.cfg.OnRaw(true, wire)
	}
	s.logger.Debug("message sent",
		zap.Stringer("type", msgType),
		zap.Int("wire_bytes", len(wire)),
	)
	return nil
}

func (s *Session) setConn(conn transport.Connection) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *Session) setState(state State, desc string) {
	s.state.Store(int32(state))
	if s.cfg.OnState != nil {
		s.cfg.OnState(state, desc)
	}
}

// sleepCtx waits for d or cancellation; it reports false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
