// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import "github.com/sigurn/crc16"

// crcTable is the precomputed table for CRC-16/MODBUS: polynomial 0xA001
// (reflected), initial register 0xFFFF, no final XOR.
var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum computes the CRC-16 checksum the deck firmware uses.
// Empty input returns the initial register value (0xFFFF).
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
