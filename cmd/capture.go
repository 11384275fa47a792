// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the deckbridge authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/volumedeck/deckbridge/internal/capture"
	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

var (
	captureOut      string
	captureDuration int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record raw link traffic to a file",
	Long: `Connect to the deck and record every inbound chunk to a capture
file, without interpreting or answering anything.

The capture can be replayed later with 'debug-binary --from-capture'.
Recording stops on Ctrl-C or after --duration seconds. A live frame
count is printed so you can see whether anything decodable is arriving.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "deck.capture", "Capture file to write")
	captureCmd.Flags().IntVar(&captureDuration, "duration", 0, "Stop after this many seconds (0 = until Ctrl-C)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, connInfo, err := openConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	w, err := capture.Create(captureOut)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if captureDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(captureDuration)*time.Second)
		defer cancel()
	}
	// Unblock the pending Read when we are told to stop.
	release := context.AfterFunc(ctx, func() { conn.Close() })
	defer release()

	fmt.Printf("Deckbridge - Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Writing to: %s\n", captureOut)
	fmt.Printf("Press Ctrl-C to stop.\n\n")

	stats := deckwire.NewStats()
	asm := deckwire.NewAssembler(deckwire.AssemblerConfig{}, stats)

	chunks := 0
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := w.Record(false, buf[:n]); werr != nil {
				return werr
			}
			chunks++
			for _, frame := range asm.Feed(buf[:n]) {
				fmt.Printf("  %s  %s (%d byte payload)\n",
					frame.Timestamp.Format("15:04:05.000"), frame.Type, len(frame.Payload))
			}
		}
		if err != nil {
			break
		}
	}

	snap := stats.Snapshot()
	fmt.Printf("\nCaptured %d chunks, %d valid frames, %d frame errors -> %s\n",
		chunks, snap.MessagesReceived, snap.TotalErrors, captureOut)

	if ctx.Err() != nil {
		return nil
	}
	fmt.Fprintln(os.Stderr, "connection closed by peer")
	return nil
}
