// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialConnection wraps a serial port.
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// DialSerial opens a serial port at 8N1 with the given baud rate.
func DialSerial(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// ListPorts returns the serial port names visible on this machine.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
