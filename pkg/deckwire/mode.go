// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import "sync/atomic"

// Mode is the framing the link is currently using.
type Mode int32

// Mode values
const (
	ModeUndetermined Mode = iota
	ModeBinary
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeUndetermined:
		return "undetermined"
	case ModeBinary:
		return "binary"
	case ModeText:
		return "text"
	default:
		return "invalid"
	}
}

// ModeController owns the binary-vs-text decision. It starts in binary
// mode when binary framing is enabled, falls back to text framing after
// the configured number of decode failures with no successful binary
// decode, and never switches back.
type ModeController struct {
	mode      atomic.Int32
	binaryOK  atomic.Bool
	failures  atomic.Uint64
	threshold uint64
}

// NewModeController creates the controller. With binary disabled the link
// goes straight to text mode. failureThreshold <= 0 defaults to 1.
func NewModeController(binaryEnabled bool, failureThreshold int) *ModeController {
	c := &ModeController{threshold: 1}
	if failureThreshold > 0 {
		c.threshold = uint64(failureThreshold)
	}
	if binaryEnabled {
		c.mode.Store(int32(ModeBinary))
	} else {
		c.mode.Store(int32(ModeText))
	}
	return c
}

// Mode returns the current framing mode.
func (c *ModeController) Mode() Mode {
	return Mode(c.mode.Load())
}

// RecordSuccess marks a successful binary decode. After the first success
// the link is presumed healthy and failures no longer trigger fallback.
func (c *ModeController) RecordSuccess() {
	c.binaryOK.Store(true)
}

// RecordFailure counts a binary decode failure. Returns true exactly once,
// on the failure that transitions the link to text framing.
func (c *ModeController) RecordFailure() bool {
	if Mode(c.mode.Load()) != ModeBinary || c.binaryOK.Load() {
		return false
	}
	if c.failures.Add(1) < c.threshold {
		return false
	}
	return c.mode.CompareAndSwap(int32(ModeBinary), int32(ModeText))
}

// Failures returns the number of decode failures observed before the
// first binary success.
func (c *ModeController) Failures() uint64 {
	return c.failures.Load()
}
