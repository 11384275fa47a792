// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the deckbridge authors

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/volumedeck/deckbridge/internal/config"
	"github.com/volumedeck/deckbridge/internal/logging"
	"github.com/volumedeck/deckbridge/internal/transport"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Global flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "deckbridge",
	Short: "Host bridge for the Deckwire volume mixer deck",
	Long: `Deckbridge - the host-side daemon and debugging toolkit for a Deckwire
volume mixer deck.

The run command services the deck: it dispatches volume and mute commands
to the host mixer and answers with session lists and state. The remaining
commands are diagnostics for the wire protocol itself.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the
DECKBRIDGE_PASSWORD environment variable, or prompted interactively if
not set. The --password flag is intentionally not provided to avoid
leaking credentials in shell history.`,
	Version: "1.2.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/deckbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the config file and lays the command-line flags over
// it. Flags always win.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if portName != "" {
		cfg.Port = portName
	}
	if baudRate > 0 {
		cfg.Baud = baudRate
	}
	if wsURL != "" {
		cfg.URL = wsURL
	}
	if wsUsername != "" {
		cfg.Username = wsUsername
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger builds the logger for a command run.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel)
}

// transportOptions assembles dial options from the effective config,
// prompting for a password when WebSocket auth is in play.
func transportOptions(cfg *config.Config) (transport.Options, error) {
	opts := transport.Options{
		Port:          cfg.Port,
		Baud:          cfg.Baud,
		URL:           cfg.URL,
		Username:      cfg.Username,
		SkipSSLVerify: wsNoSSLVerify,
	}
	if opts.URL != "" && opts.Username != "" {
		password, err := getPassword()
		if err != nil {
			return transport.Options{}, err
		}
		opts.Password = password
	}
	return opts, nil
}

// openConnection opens the transport described by the effective config.
func openConnection(cfg *config.Config) (transport.Connection, string, error) {
	opts, err := transportOptions(cfg)
	if err != nil {
		return nil, "", err
	}
	return transport.Dial(opts)
}

// getPassword retrieves the password from the environment or prompts.
func getPassword() (string, error) {
	if pw := os.Getenv("DECKBRIDGE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}
