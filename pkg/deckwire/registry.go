// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler processes one dispatched message. Returning an error marks the
// message as mishandled; the error is logged and absorbed, never
// propagated to the read loop.
type Handler func(ctx context.Context, msg *Message) error

// Registry maps message types to handlers for O(1) dispatch.
type Registry struct {
	mu       sync.RWMutex
	handlers map[MessageType]Handler
	logger   *zap.Logger
	stats    *Stats
}

// NewRegistry creates a registry. The logger is required; stats may be
// nil when dispatch accounting is not wanted.
func NewRegistry(logger *zap.Logger, stats *Stats) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[MessageType]Handler),
		logger:   logger,
		stats:    stats,
	}
}

// Register installs the handler for a message type, replacing any
// previous registration.
func (r *Registry) Register(t MessageType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Handles reports whether a handler is registered for the type.
func (r *Registry) Handles(t MessageType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[t]
	return ok
}

// Dispatch routes a message to its handler. It returns false, without
// panicking or propagating, when no handler is registered, when the
// payload fails to deserialize into the handler's expected shape, or when
// the handler itself fails; a single bad message never aborts the read
// loop.
func (r *Registry) Dispatch(ctx context.Context, msg *Message) bool {
	r.mu.RLock()
	h, ok := r.handlers[msg.Type]
	r.mu.RUnlock()

	if !ok {
		if r.stats != nil {
			r.stats.IncUnknownType()
		}
		r.logger.Debug("no handler registered",
			zap.Stringer("type", msg.Type),
			zap.String("source", msg.Source),
		)
		return false
	}

	if err := r.invoke(ctx, h, msg); err != nil {
		if r.stats != nil && isParseError(err) {
			r.stats.IncParseErrors()
		}
		r.logger.Debug("handler failed",
			zap.Stringer("type", msg.Type),
			zap.String("source", msg.Source),
			zap.Error(err),
		)
		return false
	}

	return true
}

// invoke runs the handler, converting a panic into an error.
func (r *Registry) invoke(ctx context.Context, h Handler, msg *Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &handlerPanicError{value: rec}
		}
	}()
	return h(ctx, msg)
}

type handlerPanicError struct {
	value interface{}
}

func (e *handlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.value)
}

func isParseError(err error) bool {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
