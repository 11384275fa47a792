// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the deckbridge authors

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/volumedeck/deckbridge/internal/session"
	"github.com/volumedeck/deckbridge/internal/transport"
	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of deck traffic",
	Long: `Connect to the deck and show a live dashboard: link state, framing
mode, per-counter statistics, the faders the deck is moving, and a
scrolling event log. Nothing is written to the host mixer; watch is a
read-only diagnostic view of what a running bridge would see.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Event log entry
type watchLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type watchTickMsg time.Time
type watchStateMsg struct {
	state session.State
	desc  string
}
type watchMessageMsg struct {
	msg *deckwire.Message
}

type faderState struct {
	volume float64
	muted  bool
	seen   time.Time
}

// watch TUI model
type watchModel struct {
	sess          *session.Session
	spin          spinner.Model
	state         session.State
	desc          string
	faders        map[string]faderState
	eventLog      []watchLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
}

func newWatchModel(sess *session.Session) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	return watchModel{
		sess:          sess,
		spin:          sp,
		state:         session.StateConnecting,
		faders:        make(map[string]faderState),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		watchTickCmd(),
		m.spin.Tick,
		tea.EnterAltScreen,
	)
}

func watchTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.sess.Stats().Reset()
			m.addLogEntry("statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case watchTickMsg:
		return m, watchTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case watchStateMsg:
		m.state = msg.state
		if msg.desc != "" {
			m.desc = msg.desc
		}
		m.addLogEntry(fmt.Sprintf("link %s", msg.state), msg.state != session.StateConnected)

	case watchMessageMsg:
		m.observe(msg.msg)
	}

	return m, nil
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, watchLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// observe folds one inbound message into the dashboard state.
func (m *watchModel) observe(msg *deckwire.Message) {
	switch msg.Type {
	case deckwire.MsgVolumeSet:
		var p deckwire.VolumeSetPayload
		if msg.DecodePayload(&p) != nil {
			return
		}
		f := m.faders[p.Session]
		f.volume = p.Volume
		f.seen = time.Now()
		m.faders[p.Session] = f
		m.addLogEntry(fmt.Sprintf("volume_set %s -> %.0f%%", p.Session, p.Volume*100), false)

	case deckwire.MsgMuteSet:
		var p deckwire.MuteSetPayload
		if msg.DecodePayload(&p) != nil {
			return
		}
		f := m.faders[p.Session]
		f.muted = p.Muted
		f.seen = time.Now()
		m.faders[p.Session] = f
		m.addLogEntry(fmt.Sprintf("mute_set %s -> %v", p.Session, p.Muted), false)

	case deckwire.MsgHello:
		var p deckwire.HelloPayload
		if msg.DecodePayload(&p) != nil {
			return
		}
		m.addLogEntry(fmt.Sprintf("hello: firmware %s, %d faders", p.Firmware, p.FaderCount), false)

	case deckwire.MsgCrashReport:
		m.addLogEntry("CRASH REPORT received", true)

	default:
		m.addLogEntry(msg.Type.String(), false)
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("DECKBRIDGE - WATCH"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'r' to reset stats, 'q' to quit", m.desc)))
	s.WriteString("\n\n")

	// Link state
	switch m.state {
	case session.StateConnected:
		s.WriteString(valueStyle.Render("✓ Connected"))
		s.WriteString(headerStyle.Render(fmt.Sprintf(" | framing: %s", m.sess.Mode())))
	case session.StateConnecting, session.StateReconnecting:
		s.WriteString(m.spin.View())
		s.WriteString(warningStyle.Render(fmt.Sprintf(" %s...", m.state)))
	default:
		s.WriteString(errorStyle.Render("✗ Disconnected"))
	}
	s.WriteString("\n\n")

	// Statistics
	snap := m.sess.Stats().Snapshot()
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Received:"), valueStyle.Render(fmt.Sprintf("%d", snap.MessagesReceived)),
		labelStyle.Render("Sent:"), valueStyle.Render(fmt.Sprintf("%d", snap.MessagesSent)),
		labelStyle.Render("Errors:"), func() string {
			if snap.TotalErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", snap.TotalErrors))
			}
			return valueStyle.Render("0")
		}(),
	))
	if snap.TotalErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s crc %d, framing %d, escape %d, timeout %d, parse %d, transport %d\n",
			labelStyle.Render("Breakdown:"),
			snap.CRCErrors, snap.FramingErrors, snap.EscapeErrors,
			snap.TimeoutErrors, snap.ParseErrors, snap.TransportErrors,
		))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Message Rate:"), valueStyle.Render(fmt.Sprintf("%.1f msgs/s", snap.MessageRate)),
		labelStyle.Render("Error Rate:"), func() string {
			if snap.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
			}
			return valueStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
		}(),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Faders the deck has touched
	if len(m.faders) > 0 {
		s.WriteString(labelStyle.Render("Faders:"))
		s.WriteString("\n")

		names := make([]string, 0, len(m.faders))
		for name := range m.faders {
			names = append(names, name)
		}
		sort.Strings(names)

		faderContent := strings.Builder{}
		for _, name := range names {
			f := m.faders[name]
			bar := volumeBar(f.volume, 20)
			mute := ""
			if f.muted {
				mute = errorStyle.Render(" [MUTED]")
			}
			faderContent.WriteString(fmt.Sprintf("%-20s %s %s%s\n",
				name, bar, valueStyle.Render(fmt.Sprintf("%3.0f%%", f.volume*100)), mute))
		}
		s.WriteString(boxStyle.Render(strings.TrimRight(faderContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16 - len(m.faders)
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					valueStyle.Render("· "+entry.message),
				))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(logContent.String(), "\n")))

	return s.String()
}

// volumeBar renders a fixed-width unicode level bar.
func volumeBar(volume float64, width int) string {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	filled := int(volume*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := transportOptions(cfg)
	if err != nil {
		return err
	}

	stats := deckwire.NewStats()
	registry := deckwire.NewRegistry(nil, stats)

	source := cfg.Port
	if cfg.URL != "" {
		source = cfg.URL
	}

	var program *tea.Program
	sessCfg := session.Config{
		Source:            source,
		BinaryEnabled:     cfg.Binary,
		FallbackThreshold: cfg.FallbackThreshold,
		TextMarkers:       cfg.TextMarkers,
		MaxPayloadSize:    cfg.MaxPayload,
		FrameTimeout:      cfg.FrameTimeout,
		ReconnectDelay:    cfg.ReconnectDelay,
		OnState: func(state session.State, desc string) {
			if program != nil {
				program.Send(watchStateMsg{state: state, desc: desc})
			}
		},
		OnMessage: func(msg *deckwire.Message) {
			if program != nil {
				program.Send(watchMessageMsg{msg: msg})
			}
		},
	}

	sess := session.New(sessCfg, func() (transport.Connection, string, error) {
		return transport.Dial(opts)
	}, registry, stats, nil)

	m := newWatchModel(sess)
	m.desc = source
	program = tea.NewProgram(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	_, err = program.Run()
	return err
}
