// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package audio connects deck commands to the host's audio sessions.
package audio

import (
	"fmt"
	"sort"
	"sync"

	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

// Backend is the host mixer abstraction. Implementations talk to the
// platform audio stack; the memory backend below stands in on platforms
// without one and in tests.
type Backend interface {
	// Sessions lists the controllable audio sessions.
	Sessions() ([]deckwire.SessionInfo, error)

	// SetVolume applies a 0.0-1.0 volume to the named session and
	// returns the resulting state.
	SetVolume(session string, pid int, volume float64) (deckwire.SessionInfo, error)

	// SetMute applies mute state to the named session.
	SetMute(session string, pid int, muted bool) (deckwire.SessionInfo, error)
}

// MemoryBackend is an in-memory mixer. It holds a session table and
// applies volume and mute changes to it.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*deckwire.SessionInfo
}

// NewMemoryBackend creates a backend pre-populated with the given
// sessions.
func NewMemoryBackend(sessions ...deckwire.SessionInfo) *MemoryBackend {
	b := &MemoryBackend{sessions: make(map[string]*deckwire.SessionInfo)}
	for i := range sessions {
		s := sessions[i]
		b.sessions[s.Name] = &s
	}
	return b
}

// AddSession inserts or replaces a session.
func (b *MemoryBackend) AddSession(s deckwire.SessionInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[s.Name] = &s
}

// RemoveSession deletes a session by name.
func (b *MemoryBackend) RemoveSession(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, name)
}

func (b *MemoryBackend) Sessions() ([]deckwire.SessionInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]deckwire.SessionInfo, 0, len(b.sessions))
	for _, s := range b.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *MemoryBackend) SetVolume(session string, pid int, volume float64) (deckwire.SessionInfo, error) {
	if volume < 0 || volume > 1 {
		return deckwire.SessionInfo{}, fmt.Errorf("volume %v out of range", volume)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[session]
	if !ok {
		return deckwire.SessionInfo{}, fmt.Errorf("unknown session %q", session)
	}
	s.Volume = volume
	return *s, nil
}

func (b *MemoryBackend) SetMute(session string, pid int, muted bool) (deckwire.SessionInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[session]
	if !ok {
		return deckwire.SessionInfo{}, fmt.Errorf("unknown session %q", session)
	}
	s.Muted = muted
	return *s, nil
}
