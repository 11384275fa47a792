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
	"go.uber.org/zap"

	"github.com/volumedeck/deckbridge/internal/assets"
	"github.com/volumedeck/deckbridge/internal/audio"
	"github.com/volumedeck/deckbridge/internal/capture"
	"github.com/volumedeck/deckbridge/internal/session"
	"github.com/volumedeck/deckbridge/internal/transport"
	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

var (
	runCaptureFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge daemon",
	Long: `Service the deck link until interrupted.

The daemon connects to the deck, answers hello with the session list,
applies volume and mute commands to the host mixer, confirms each change
with a volume_state message, and pings the deck on the poll interval.
Lost connections are redialed automatically.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runCaptureFile, "capture", "", "Also record raw link traffic to this file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := transportOptions(cfg)
	if err != nil {
		return err
	}

	var icons audio.IconStore
	if cfg.AssetDir != "" {
		store, err := assets.NewDirStore(cfg.AssetDir)
		if err != nil {
			return err
		}
		icons = store
	}

	var capw *capture.Writer
	if runCaptureFile != "" {
		capw, err = capture.Create(runCaptureFile)
		if err != nil {
			return err
		}
		defer capw.Close()
	}

	stats := deckwire.NewStats()
	registry := deckwire.NewRegistry(logger, stats)
	backend := audio.NewMemoryBackend()

	source := cfg.Port
	if cfg.URL != "" {
		source = cfg.URL
	}

	sessCfg := session.Config{
		Source:            source,
		BinaryEnabled:     cfg.Binary,
		FallbackThreshold: cfg.FallbackThreshold,
		TextMarkers:       cfg.TextMarkers,
		MaxPayloadSize:    cfg.MaxPayload,
		FrameTimeout:      cfg.FrameTimeout,
		ReconnectDelay:    cfg.ReconnectDelay,
		StatsInterval:     cfg.StatsInterval,
	}
	if capw != nil {
		sessCfg.OnRaw = func(outbound bool, data []byte) {
			if err := capw.Record(outbound, data); err != nil {
				logger.Warn("capture write failed", zap.Error(err))
			}
		}
	}

	sess := session.New(sessCfg, func() (transport.Connection, string, error) {
		return transport.Dial(opts)
	}, registry, stats, logger)

	audio.Bind(registry, backend, sess.Send, icons, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PollInterval > 0 {
		go pingLoop(ctx, sess, cfg.PollInterval)
	}

	fmt.Printf("Deckbridge - bridge daemon\n")
	if runCaptureFile != "" {
		fmt.Printf("Capturing to: %s\n", runCaptureFile)
	}

	err = sess.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Println()
	fmt.Print(stats.Snapshot())
	return nil
}

// pingLoop keeps the deck's watchdog fed while the link is up.
func pingLoop(ctx context.Context, sess *session.Session, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sess.State() != session.StateConnected {
				continue
			}
			if err := sess.Send(deckwire.MsgPingRequest, nil); err != nil && err != session.ErrNotConnected {
				fmt.Fprintf(os.Stderr, "ping failed: %v\n", err)
			}
		}
	}
}
