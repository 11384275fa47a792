// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the deckbridge authors

package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

var (
	sendText   bool
	sendListen int
)

var sendCmd = &cobra.Command{
	Use:   "send <type> [json payload]",
	Short: "Send one message to the deck",
	Long: `Encode and send a single Deckwire message.

The type is a message name (e.g. session_list, ping_request) or a
numeric value. The payload, when given, must be a JSON object. By
default the message is sent with binary framing; --text uses the legacy
line-delimited framing instead.

With --listen the connection is held open afterwards and decoded
replies are printed for the given number of seconds.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendText, "text", false, "Use the legacy text framing")
	sendCmd.Flags().IntVar(&sendListen, "listen", 0, "Print replies for this many seconds after sending")
}

func runSend(cmd *cobra.Command, args []string) error {
	msgType, err := parseTypeArg(args[0])
	if err != nil {
		return err
	}

	var payload []byte
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("payload is not valid JSON")
		}
		payload = []byte(args[1])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, connInfo, err := openConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var wire []byte
	if sendText {
		wire, err = deckwire.EncodeTextMessage(deckwire.TextNewline, msgType, payload)
		if err != nil {
			return err
		}
	} else {
		wire = deckwire.Encode(msgType, payload)
	}

	if _, err := conn.Write(wire); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	fmt.Printf("Sent %s (%d wire bytes) via %s\n", msgType, len(wire), connInfo)

	if sendListen <= 0 {
		return nil
	}

	fmt.Printf("Listening for replies for %d seconds...\n", sendListen)
	asm := deckwire.NewAssembler(deckwire.AssemblerConfig{}, nil)
	splitter := deckwire.NewTextSplitter(deckwire.TextNewline, 0)

	deadline := time.Now().Add(time.Duration(sendListen) * time.Second)
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		n, err := conn.Read(buf)
		if err != nil {
			return nil
		}
		for _, frame := range asm.Feed(buf[:n]) {
			fmt.Printf("  <- %s: %s\n", frame.Type, frame.Payload)
		}
		for _, body := range splitter.Feed(buf[:n]) {
			if msg, err := deckwire.ParseTextMessage(body, connInfo); err == nil {
				fmt.Printf("  <- %s (text): %s\n", msg.Type, msg.Payload)
			}
		}
	}
	return nil
}

// parseTypeArg accepts a message name or a decimal/hex numeric type.
func parseTypeArg(arg string) (deckwire.MessageType, error) {
	if t, ok := deckwire.ParseMessageType(arg); ok {
		return t, nil
	}
	if n, err := strconv.ParseUint(arg, 0, 8); err == nil {
		return deckwire.MessageType(n), nil
	}
	return 0, fmt.Errorf("unknown message type %q", arg)
}
