// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

package deckwire

import "testing"

func TestChecksum_Empty(t *testing.T) {
	crc := Checksum([]byte{})
	if crc != CRCInitial {
		t.Errorf("CRC of empty data should be initial value 0x%04X, got 0x%04X", CRCInitial, crc)
	}
}

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0x4B37, // Standard CRC-16/MODBUS check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x40BF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := Checksum(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", tt.expected, crc)
			}
		})
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	data := []byte{0x21, 0x7E, 0x7F, 0x7D, 0x00, 0xFF}
	crc1 := Checksum(data)
	crc2 := Checksum(data)
	if crc1 != crc2 {
		t.Errorf("CRC should be deterministic: 0x%04X != 0x%04X", crc1, crc2)
	}
}

func TestChecksum_SensitiveToOrder(t *testing.T) {
	a := Checksum([]byte{0x01, 0x02})
	b := Checksum([]byte{0x02, 0x01})
	if a == b {
		t.Error("CRC should differ for reordered input")
	}
}
