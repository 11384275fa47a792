// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package transport opens the byte stream to the deck, over a local
// serial port or a WebSocket relay.
package transport

import (
	"errors"
	"fmt"
	"io"
)

// Connection is a byte stream to the deck. Text mode is handled above
// this layer; a Connection only moves bytes.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Options selects and parameterizes the transport. URL takes precedence
// over Port when both are set.
type Options struct {
	Port string
	Baud int

	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
}

// Dial opens the connection described by opts and returns it with a
// human-readable description for logs.
func Dial(opts Options) (Connection, string, error) {
	if opts.URL != "" {
		conn, err := DialWebSocket(opts.URL, opts.Username, opts.Password, opts.SkipSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", opts.URL), nil
	}

	if opts.Port != "" {
		conn, err := DialSerial(opts.Port, opts.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", opts.Port, opts.Baud), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}
