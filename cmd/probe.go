// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the deckbridge authors

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

var (
	probeTimeout int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test connection by waiting for a valid Deckwire frame",
	Long: `Wait for a valid Deckwire message on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
valid Deckwire frame (passing CRC check) or legacy text message. Invalid
bytes are ignored.

Exit codes:
  0 - Message received before timeout
  1 - Timeout reached without receiving a valid message
  2 - Connection error

Useful for checking that a deck is alive and which framing it speaks.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for a message")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(2)
	}

	conn, connInfo, err := openConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Deckbridge - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for valid Deckwire message...\n\n")

	type result struct {
		frame *deckwire.Frame
		text  *deckwire.Message
	}
	resultChan := make(chan result, 1)
	errChan := make(chan error, 1)

	go func() {
		stats := deckwire.NewStats()
		asm := deckwire.NewAssembler(deckwire.AssemblerConfig{}, stats)
		splitter := deckwire.NewTextSplitter(deckwire.TextNewline, 0)

		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			// Try binary framing first, then the legacy text framing on
			// a copy of the same bytes.
			if frames := asm.Feed(buf[:n]); len(frames) > 0 {
				resultChan <- result{frame: frames[0]}
				return
			}
			for _, body := range splitter.Feed(buf[:n]) {
				msg, err := deckwire.ParseTextMessage(body, connInfo)
				if err != nil {
					continue
				}
				resultChan <- result{text: msg}
				return
			}
		}
	}()

	select {
	case res := <-resultChan:
		if res.frame != nil {
			fmt.Printf("SUCCESS: Received valid binary frame\n")
			fmt.Printf("  Type: %s (0x%02X)\n", res.frame.Type, uint8(res.frame.Type))
			fmt.Printf("  Payload: %d bytes\n", len(res.frame.Payload))
		} else {
			fmt.Printf("SUCCESS: Received valid text message\n")
			fmt.Printf("  Type: %s (0x%02X)\n", res.text.Type, uint8(res.text.Type))
			fmt.Printf("  Body: %d bytes\n", len(res.text.Payload))
			fmt.Printf("  NOTE: deck speaks the legacy text framing\n")
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(probeTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid message received within %d seconds\n", probeTimeout)
		os.Exit(1)
	}

	return nil
}
