// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusDeviceList = iota
	focusValueInput
	focusButton
)

// actuatorActions are the buttons of the control panel, in display order
var actuatorActions = []string{"on", "off", "status", "energy", "power"}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// actuator is a D2-01 device that can be controlled
type actuator struct {
	id      erp1.DeviceID
	name    string
	profile eep.ProfileID
	output  string
}

// Implement list.Item interface
func (a actuator) Title() string {
	if a.name != "" {
		return a.name
	}
	return a.id.String()
}
func (a actuator) Description() string { return fmt.Sprintf("%s  %s", a.profile, a.output) }
func (a actuator) FilterValue() string { return a.id.String() + " " + a.name }

// isActuator reports whether a profile is a D2-01 electronic switch
func isActuator(id eep.ProfileID) bool {
	return id.RORG == erp1.RORGVLD && id.Func == 0x01
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	connMgr  *connectionManager
	connInfo string

	// Decoding and device state (shared with the other outputs)
	proc *processor

	actuators  []actuator
	deviceList list.Model

	errorLog      []errorLogEntry
	maxLogEntries int

	valueInput   textinput.Model
	focusedField int
	buttonIndex  int

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlBatchMsg struct {
	results []gateway.Result
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
	skipped  func() uint64
}

type sendResultMsg struct {
	description string
	err         error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connMgr *connectionManager, connInfo string, proc *processor) controlModel {
	ti := textinput.New()
	ti.Placeholder = "50"
	ti.CharLimit = 3
	ti.Width = 5

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	deviceList := list.New([]list.Item{}, delegate, 30, 10)
	deviceList.Title = "Actuators"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)

	m := controlModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		proc:          proc,
		deviceList:    deviceList,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		valueInput:    ti,
		focusedField:  focusDeviceList,
		width:         80,
		height:        24,
	}
	m.refreshActuators()
	m.addLogEntry(fmt.Sprintf("%d actuator(s) configured", len(m.actuators)), false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.deviceList, _ = m.deviceList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		m.proc.refreshStats()
		m.refreshActuators()
		return m, controlTickCmd()

	case controlBatchMsg:
		for _, r := range msg.results {
			cmds = append(cmds, m.processResult(r))
		}
		m.refreshActuators()

	case sendResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.description, msg.err), true)
		} else {
			m.addLogEntry("Sent "+msg.description, false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		text := "Connection lost - reconnecting..."
		if msg.err != nil {
			text = fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err)
		}
		m.addLogEntry(text, true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.proc.countSkipped(msg.skipped)
		m.addLogEntry("Reconnected", false)
	}

	var cmd tea.Cmd
	if m.focusedField == focusValueInput {
		m.valueInput, cmd = m.valueInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focusedField == focusDeviceList {
		m.deviceList, cmd = m.deviceList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.focusedField != focusValueInput || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m, m.handleEnter()

	case "left", "h":
		if m.focusedField == focusButton {
			m.buttonIndex = (m.buttonIndex + len(actuatorActions) - 1) % len(actuatorActions)
			return m, nil
		}

	case "right", "l":
		if m.focusedField == focusButton {
			m.buttonIndex = (m.buttonIndex + 1) % len(actuatorActions)
			return m, nil
		}

	case "up", "k", "down", "j":
		if m.focusedField == focusDeviceList {
			m.deviceList, _ = m.deviceList.Update(msg)
			return m, nil
		}
	}

	if m.focusedField == focusValueInput {
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *controlModel) cycleFocus(delta int) *controlModel {
	if m.getSelectedActuator() == nil {
		m.focusedField = focusDeviceList
		return m
	}

	maxFocus := focusButton
	m.focusedField = (m.focusedField + delta + maxFocus + 1) % (maxFocus + 1)

	if m.focusedField == focusValueInput {
		m.valueInput.Focus()
	} else {
		m.valueInput.Blur()
	}
	return m
}

func (m *controlModel) handleEnter() tea.Cmd {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return nil
	}

	switch m.focusedField {
	case focusValueInput:
		value := m.valueInput.Value()
		if value == "" {
			value = m.valueInput.Placeholder
		}
		return m.sendActuatorCommand(value)
	case focusButton:
		return m.sendActuatorCommand(actuatorActions[m.buttonIndex])
	}
	return nil
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 1)

	focusedButtonStyle := buttonStyle.
		Background(lipgloss.Color("10"))

	// Header
	s.WriteString(titleStyle.Render("ENOSTAT CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	_, sender := m.connMgr.getSession()
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | sender %s | q=quit Tab=switch", connStatus, sender)))
	s.WriteString("\n\n")

	// Layout: left panel (actuators) | right panel (control)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusDeviceList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	devicePanel := listStyle.Render(m.deviceList.View())

	controlContent := m.renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle)
	controlPanel := boxStyle.Width(rightWidth).Render(controlContent)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, devicePanel, " ", controlPanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder

	selected := m.getSelectedActuator()
	if selected == nil {
		s.WriteString(headerStyle.Render("No actuator selected"))
		if len(m.actuators) == 0 {
			s.WriteString("\n")
			s.WriteString(headerStyle.Render("Add D2-01 devices to the config file or use --learn"))
		}
		return s.String()
	}

	s.WriteString(fmt.Sprintf("%s %s [%s]\n", statsLabelStyle.Render("Selected:"), selected.id, selected.profile))
	if st, ok := m.proc.store.Get(selected.id); ok {
		s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Last seen:"), formatAge(time.Now(), st.LastSeen)))
		for _, name := range st.Fields {
			s.WriteString(fmt.Sprintf("  %-4s %s\n", name, statsValueStyle.Render(st.Values[name].String())))
		}
		if st.LastError != "" {
			s.WriteString(headerStyle.Render("  " + st.LastError))
			s.WriteString("\n")
		}
	} else {
		s.WriteString(headerStyle.Render("No telegram received yet"))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(statsLabelStyle.Render("Output %: "))
	if m.focusedField == focusValueInput {
		s.WriteString(m.valueInput.View())
	} else {
		val := m.valueInput.Value()
		if val == "" {
			val = m.valueInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	for i, action := range actuatorActions {
		text := "[ " + action + " ]"
		if m.focusedField == focusButton && i == m.buttonIndex {
			s.WriteString(focusedButtonStyle.Render(text))
		} else {
			s.WriteString(buttonStyle.Render(text))
		}
		s.WriteString(" ")
	}

	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	stats := m.proc.stats
	var validPercent, errorPercent float64
	if stats.TotalFrames > 0 {
		validPercent = float64(stats.ValidPackets) * 100.0 / float64(stats.TotalFrames)
		errorPercent = float64(stats.FrameErrors()) * 100.0 / float64(stats.TotalFrames)
	}

	errText := statsValueStyle.Render("0.0%")
	if errorPercent > 0 {
		errText = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		statsLabelStyle.Render("Errors:"), errText,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f pkt/s", stats.PacketRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := min(8, len(m.errorLog))
	startIdx := len(m.errorLog) - logHeight

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.errorLog[startIdx:] {
		icon := "i"
		style := warningStyle
		if entry.isError {
			icon = "x"
			style = errorStyleLocal
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

// processResult decodes one receive result. It returns a command when a
// UTE teach-in query has to be answered.
func (m *controlModel) processResult(r gateway.Result) tea.Cmd {
	ev := m.proc.process(r.Packet, r.Err)

	switch {
	case ev.frameErr != nil:
		m.addLogEntry(fmt.Sprintf("FRAME ERROR: %v", ev.frameErr), true)
	case ev.telegramErr != nil:
		m.addLogEntry(fmt.Sprintf("TELEGRAM ERROR: %v", ev.telegramErr), true)
	case ev.teachIn != nil:
		text := fmt.Sprintf("Teach-in: %s announces %s", ev.teachIn.Sender, ev.teachIn.Profile)
		if ev.learned {
			text += " [learned]"
		}
		m.addLogEntry(text, false)
	case ev.result != nil && isActuator(ev.result.Profile.ID):
		m.addLogEntry(fmt.Sprintf("%s: %s", ev.result.Device.ID, formatResultInline(ev.result)), false)
	}

	reply := m.proc.uteReply(ev, m.connMgr.uteSender())
	if reply == nil {
		return nil
	}
	return func() tea.Msg {
		err := m.connMgr.send(func(erp1.DeviceID) (*erp1.Telegram, error) { return reply, nil })
		return sendResultMsg{description: "UTE response to " + ev.teachIn.Sender.String(), err: err}
	}
}

// formatResultInline renders decoded values on one line
func formatResultInline(r *eep.Result) string {
	parts := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name, r.Values[f.Name]))
	}
	return strings.Join(parts, " ")
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// sendActuatorCommand sends asynchronously so rate limiting never blocks the UI
func (m *controlModel) sendActuatorCommand(action string) tea.Cmd {
	selected := m.getSelectedActuator()
	if selected == nil {
		return nil
	}
	dest := selected.id

	// Validate before handing off
	if _, err := eep.NewActuatorCommand(action, 0, dest, 0); err != nil {
		m.addLogEntry(err.Error(), true)
		return nil
	}

	connMgr := m.connMgr
	return func() tea.Msg {
		err := connMgr.send(func(sender erp1.DeviceID) (*erp1.Telegram, error) {
			return eep.NewActuatorCommand(action, sender, dest, 0)
		})
		return sendResultMsg{description: fmt.Sprintf("%s to %s", action, dest), err: err}
	}
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
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

func (m *controlModel) getSelectedActuator() *actuator {
	idx := m.deviceList.Index()
	if idx < 0 || idx >= len(m.actuators) {
		return nil
	}
	return &m.actuators[idx]
}

// refreshActuators rebuilds the list from the registry, which grows when
// devices are learned
func (m *controlModel) refreshActuators() {
	m.actuators = m.actuators[:0]
	for _, d := range m.proc.decoder.Registry().Devices() {
		if !isActuator(d.Profile) {
			continue
		}
		a := actuator{id: d.ID, name: d.Name, profile: d.Profile, output: "unknown"}
		if st, ok := m.proc.store.Get(d.ID); ok {
			if ov, ok := st.Values["OV"]; ok {
				a.output = "output " + ov.String()
			}
		}
		m.actuators = append(m.actuators, a)
	}

	items := make([]list.Item, len(m.actuators))
	for i, a := range m.actuators {
		items[i] = a
	}
	m.deviceList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	m.deviceList.SetSize(28, max(5, m.height/3))
}
