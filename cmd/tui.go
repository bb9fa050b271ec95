// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/enostat/pkg/devices"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	proc          *processor
	devices       table.Model
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	framesBefore  int
	closed        bool
	closeErr      error
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type resultMsg gateway.Result
type closedMsg struct {
	err error
}

var deviceColumns = []table.Column{
	{Title: "Device", Width: 12},
	{Title: "Name", Width: 14},
	{Title: "EEP", Width: 9},
	{Title: "RSSI", Width: 5},
	{Title: "Count", Width: 6},
	{Title: "Last seen", Width: 9},
	{Title: "Values", Width: 44},
}

// formatAge formats the time since t compactly (4s, 3m, 2h, 5d)
func formatAge(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// formatValues renders decoded values in payload order
func formatValues(st devices.State) string {
	if !st.Known {
		if st.LastError != "" {
			return "(" + st.LastError + ")"
		}
		return fmt.Sprintf("% X", st.Payload)
	}
	parts := make([]string, 0, len(st.Fields))
	for _, name := range st.Fields {
		if name == "LRNB" {
			continue
		}
		parts = append(parts, name+"="+st.Values[name].String())
	}
	return strings.Join(parts, " ")
}

func deviceRows(states []devices.State, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(states))
	for _, st := range states {
		rssi := "-"
		if st.RSSI != nil {
			rssi = fmt.Sprintf("%d", *st.RSSI)
		}
		eepID := "?"
		if st.Known {
			eepID = st.Profile.String()
		}
		rows = append(rows, table.Row{
			st.ID.String(),
			st.Name,
			eepID,
			rssi,
			fmt.Sprintf("%d", st.Telegrams),
			formatAge(now, st.LastSeen),
			formatValues(st),
		})
	}
	return rows
}

func initialModel(connInfo string, statsInterval int, showAll bool, proc *processor) model {
	t := table.New(
		table.WithColumns(deviceColumns),
		table.WithHeight(6),
		table.WithFocused(false),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)

	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		proc:          proc,
		devices:       t,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.proc.resetStats()
			m.proc.store.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.devices.SetHeight(max(3, m.height/3))

	case tickMsg:
		m.proc.refreshStats()
		m.devices.SetRows(deviceRows(m.proc.store.Snapshot(), time.Time(msg)))
		return m, tickCmd()

	case closedMsg:
		m.closed = true
		m.closeErr = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", true)
		}

	case resultMsg:
		ev := m.proc.process(msg.Packet, msg.Err)
		if !m.synchronized {
			if ev.frameErr != nil {
				// noise before the first good frame
				m.framesBefore++
				return m, nil
			}
			m.synchronized = true
			if m.framesBefore > 0 {
				m.addLogEntry(fmt.Sprintf("Synchronized after %d malformed frames", m.framesBefore), false)
			} else {
				m.addLogEntry("Synchronized", false)
			}
		}
		m.logEvent(ev)
	}

	return m, nil
}

func (m *model) logEvent(ev *event) {
	switch {
	case ev.frameErr != nil:
		m.addLogEntry(fmt.Sprintf("FRAME ERROR: %v", ev.frameErr), true)
	case ev.telegramErr != nil:
		m.addLogEntry(fmt.Sprintf("TELEGRAM ERROR: %v", ev.telegramErr), true)
	case len(ev.anomalies) > 0:
		for _, a := range ev.anomalies {
			m.addLogEntry(fmt.Sprintf("%s %s: %s", ev.telegram.RORG, ev.telegram.SenderID, a.Message), true)
		}
	case ev.teachIn != nil:
		m.addLogEntry(fmt.Sprintf("Teach-in from %s: %s", ev.teachIn.Sender, ev.teachIn.Profile), false)
	case ev.eepErr != nil:
		m.addLogEntry(ev.eepErr.Error(), false)
	case m.showAll && ev.telegram != nil:
		m.addLogEntry(fmt.Sprintf("%s %s (valid)", ev.telegram.RORG, ev.telegram.SenderID), false)
	case m.showAll:
		m.addLogEntry(fmt.Sprintf("%s (valid)", ev.packet.Type()), false)
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
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

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
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

	mode := "Errors only"
	if m.showAll {
		mode = "All packets"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("ENOSTAT - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset, 'q' quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	switch {
	case m.closed:
		s.WriteString(errorStyle.Render("✗ Disconnected"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.framesBefore > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (ignored %d malformed frames)", m.framesBefore)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	stats := m.proc.stats
	var validPercent, errorPercent float64
	totalErrors := stats.FrameErrors() + stats.TelegramErrors
	if stats.TotalFrames > 0 {
		validPercent = float64(stats.ValidPackets) * 100.0 / float64(stats.TotalFrames)
		errorPercent = float64(totalErrors) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidPackets, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if stats.CRCErrors() > 0 || stats.TruncatedFrames > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d)   %s %s\n",
			statsLabelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.CRCErrors())),
			headerStyle.Render("header"), stats.HeaderCRCErrors,
			headerStyle.Render("data"), stats.DataCRCErrors,
			statsLabelStyle.Render("Truncated:"), errorStyle.Render(fmt.Sprintf("%d", stats.TruncatedFrames)),
		))
	}

	if stats.TelegramErrors > 0 || stats.Anomalies > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", stats.TelegramErrors)),
			statsLabelStyle.Render("Anomalies:"), warningStyle.Render(fmt.Sprintf("%d", stats.Anomalies)),
		))
	}

	if stats.UnknownDevices > 0 || stats.ProfileErrors > 0 || stats.UnsupportedPackets > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Unknown devices:"), warningStyle.Render(fmt.Sprintf("%d", stats.UnknownDevices)),
			statsLabelStyle.Render("Profile errors:"), warningStyle.Render(fmt.Sprintf("%d", stats.ProfileErrors)),
			statsLabelStyle.Render("Unsupported:"), headerStyle.Render(fmt.Sprintf("%d", stats.UnsupportedPackets)),
		))
	}

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	if stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Packet Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f pkts/s", stats.PacketRate)),
		statsLabelStyle.Render("Error Rate:"), errorRate,
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Devices
	s.WriteString(statsLabelStyle.Render(fmt.Sprintf("Devices (%d):", m.proc.store.Len())))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.devices.View()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20 - m.devices.Height()
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
