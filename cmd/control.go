// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

var (
	controlLearn  bool
	controlSender string
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling D2-01 actuators",
	Long: `Control EnOcean electronic switches (D2-01) via an interactive terminal UI.

Actuators are taken from the device configuration. With --learn, actuators
that send a UTE teach-in query are added and the query is answered.

Features:
  - Switching outputs on, off or to a dim value
  - Status and energy/power queries
  - Live decoded responses
  - Statistics tracking
  - Event logging
  - Automatic reconnection on connection loss

Tab switches between device list, value input and buttons. Arrow keys
navigate the device list and the buttons.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().BoolVar(&controlLearn, "learn", false, "Accept UTE teach-in from new actuators")
	controlCmd.Flags().StringVar(&controlSender, "sender", "", "Sender ID (default: gateway base ID)")
}

// connectionManager handles session lifecycle and reconnection
type connectionManager struct {
	ctx      context.Context
	mu       sync.RWMutex
	session  *session
	senderID erp1.DeviceID
	p        *tea.Program
	done     chan struct{}
}

func (cm *connectionManager) getSession() (*session, erp1.DeviceID) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.session, cm.senderID
}

func (cm *connectionManager) setSession(s *session, sender erp1.DeviceID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.session = s
	cm.senderID = sender
}

func runControl(cmd *cobra.Command, args []string) error {
	decoder, err := loadDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	cm := &connectionManager{ctx: ctx, done: make(chan struct{})}
	s, sender, err := cm.connect()
	if err != nil {
		return err
	}
	cm.setSession(s, sender)

	proc := newProcessor(decoder)
	proc.learn = controlLearn
	proc.countSkipped(s.comm.Skipped)
	m := initialControlModel(cm, s.connInfo, proc)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	cm.p = p

	go cm.readerLoop()

	_, err = p.Run()
	close(cm.done)
	if s, _ := cm.getSession(); s != nil {
		s.Close()
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// connect opens a session and resolves the sender ID
func (cm *connectionManager) connect() (*session, erp1.DeviceID, error) {
	s, err := openSession(cm.ctx, "")
	if err != nil {
		return nil, 0, err
	}

	if controlSender != "" {
		id, err := erp1.ParseDeviceID(controlSender)
		if err != nil {
			s.Close()
			return nil, 0, err
		}
		return s, id, nil
	}

	qctx, cancel := context.WithTimeout(cm.ctx, 2*time.Second)
	defer cancel()
	baseID, err := s.comm.ReadBaseID(qctx)
	if err != nil {
		s.Close()
		return nil, 0, fmt.Errorf("failed to read base ID (use --sender): %w", err)
	}
	return s, erp1.DeviceID(baseID.ID), nil
}

// readerLoop forwards receive results and reconnects when the session ends
func (cm *connectionManager) readerLoop() {
	for {
		s, _ := cm.getSession()
		if !cm.readFromSession(s) {
			return
		}

		cm.p.Send(connectionLostMsg{err: s.comm.Err()})
		s.Close()
		if !cm.reconnect() {
			return
		}
	}
}

// readFromSession batches results to the TUI until the session ends.
// Returns true if the connection was lost, false if shutdown was requested.
func (cm *connectionManager) readFromSession(s *session) bool {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var batch controlBatchMsg
	for {
		select {
		case <-cm.done:
			return false
		case r, ok := <-s.comm.Receive():
			if !ok {
				if len(batch.results) > 0 {
					cm.p.Send(batch)
				}
				return true
			}
			batch.results = append(batch.results, r)
		case <-ticker.C:
			if len(batch.results) > 0 {
				cm.p.Send(batch)
				batch = controlBatchMsg{}
			}
		}
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (cm *connectionManager) reconnect() bool {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		s, sender, err := cm.connect()
		if err == nil {
			cm.setSession(s, sender)
			cm.p.Send(reconnectedMsg{connInfo: s.connInfo, skipped: s.comm.Skipped})
			return true
		}
		logger.Debug("reconnect failed", zap.Error(err), zap.Duration("backoff", backoff))

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// send transmits a telegram built for the current sender ID
func (cm *connectionManager) send(build func(sender erp1.DeviceID) (*erp1.Telegram, error)) error {
	s, sender := cm.getSession()
	if s == nil {
		return gateway.ErrClosed
	}
	tel, err := build(sender)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cm.ctx, 2*time.Second)
	defer cancel()
	return s.comm.Send(ctx, tel.Packet())
}

// uteSender returns the sender ID for UTE responses
func (cm *connectionManager) uteSender() erp1.DeviceID {
	_, sender := cm.getSession()
	return sender
}
