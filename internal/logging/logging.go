// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package logging builds the zap logger shared by the bridge commands.
package logging

import (
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar controls verbosity when no --log-level flag is given.
// Valid values: "debug", "info", "warn", "error". Unset means warn, so
// interactive commands stay quiet unless something is wrong.
const LogLevelEnvVar = "DECKBRIDGE_LOG_LEVEL"

// New builds a console logger at the given level. An empty level falls
// back to DECKBRIDGE_LOG_LEVEL, then to warn.
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		level = "warn"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Silent returns a logger that discards everything.
func Silent() *zap.Logger {
	return zap.NewNop()
}

// HexField renders raw protocol bytes for a debug log line, truncated so
// a runaway frame cannot flood the output.
func HexField(key string, data []byte) zap.Field {
	const limit = 256
	if len(data) > limit {
		return zap.String(key, hex.EncodeToString(data[:limit])+"...")
	}
	return zap.String(key, hex.EncodeToString(data))
}
