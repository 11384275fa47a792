// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the deckbridge authors

package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/volumedeck/deckbridge/internal/capture"
	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

var (
	debugBinaryFile    string
	debugBinaryCapture string
	debugBinaryChunk   int
)

var debugBinaryCmd = &cobra.Command{
	Use:   "debug-binary [hex bytes...]",
	Short: "Inspect captured Deckwire frames field by field",
	Long: `Validate raw frame bytes against the Deckwire binary framing.

Bytes can be given as hex arguments ("7E 0700..." or "7e0700..."), read
from a raw binary file with --file, or taken from a traffic capture made
with 'run --capture' or the capture command.

Each check (markers, escaping, declared length, CRC, payload JSON) is
reported separately, so a single broken field is visible alongside the
ones that are fine. With --chunk the bytes are additionally replayed
through the stream reassembler in chunks of the given size, which shows
how the live session would have resynced across the damage.`,
	RunE: runDebugBinary,
}

func init() {
	rootCmd.AddCommand(debugBinaryCmd)
	debugBinaryCmd.Flags().StringVar(&debugBinaryFile, "file", "", "Read raw bytes from a binary file")
	debugBinaryCmd.Flags().StringVar(&debugBinaryCapture, "from-capture", "", "Read inbound bytes from a capture file")
	debugBinaryCmd.Flags().IntVar(&debugBinaryChunk, "chunk", 0, "Replay through the reassembler in chunks of this size")
}

func runDebugBinary(cmd *cobra.Command, args []string) error {
	raw, err := debugBinaryInput(args)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("no input bytes; pass hex arguments, --file, or --from-capture")
	}

	fmt.Printf("Deckbridge - Binary Frame Inspector\n")
	fmt.Printf("Input: %d bytes\n\n", len(raw))

	if debugBinaryChunk > 0 {
		return replayChunks(raw, debugBinaryChunk)
	}

	ok := true
	for i, frame := range splitFrames(raw) {
		fmt.Printf("Frame %d (%d bytes):\n", i+1, len(frame))
		report := deckwire.Inspect(frame)
		fmt.Print(report)
		if !report.Valid {
			ok = false
		}
		fmt.Println()
	}

	if !ok {
		os.Exit(1)
	}
	return nil
}

// debugBinaryInput gathers the bytes to inspect from whichever source
// was given.
func debugBinaryInput(args []string) ([]byte, error) {
	if debugBinaryFile != "" {
		data, err := os.ReadFile(debugBinaryFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", debugBinaryFile, err)
		}
		return data, nil
	}
	if debugBinaryCapture != "" {
		records, err := capture.ReadFile(debugBinaryCapture)
		if err != nil {
			return nil, err
		}
		return capture.InboundBytes(records), nil
	}
	if len(args) == 0 {
		return nil, nil
	}

	cleaned := strings.NewReplacer(" ", "", ":", "", ",", "", "0x", "").Replace(strings.ToLower(strings.Join(args, "")))
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// splitFrames slices the input at START markers so multi-frame dumps are
// inspected frame by frame. Damaged inputs with no markers come back
// whole.
func splitFrames(raw []byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 1; i < len(raw); i++ {
		if raw[i] == deckwire.StartByte && raw[i-1] == deckwire.EndByte {
			out = append(out, raw[start:i])
			start = i
		}
	}
	return append(out, raw[start:])
}

// replayChunks runs the bytes through a fresh assembler in fixed-size
// chunks and prints what a live session would have recovered.
func replayChunks(raw []byte, chunkSize int) error {
	stats := deckwire.NewStats()
	asm := deckwire.NewAssembler(deckwire.AssemblerConfig{
		OnError: func(err error) {
			fmt.Printf("  [err ] %v\n", err)
		},
	}, stats)

	total := 0
	for off := 0; off < len(raw); off += chunkSize {
		end := off + chunkSize
		if end > len(raw) {
			end = len(raw)
		}
		for _, frame := range asm.Feed(raw[off:end]) {
			total++
			fmt.Printf("  [ ok ] frame %d: %s, %d byte payload\n", total, frame.Type, len(frame.Payload))
		}
	}
	if pending := asm.PendingBytes(); pending > 0 {
		fmt.Printf("  [....] %d bytes still buffered (incomplete trailing frame)\n", pending)
	}

	fmt.Println()
	fmt.Print(stats.Snapshot())
	if total == 0 {
		os.Exit(1)
	}
	return nil
}
