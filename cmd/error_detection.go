// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and telegrams",
	Long: `Track framing errors, malformed telegrams and decode failures with statistics.

This command checks every frame and detects:
  - Header and data CRC errors, truncated frames
  - Malformed RADIO_ERP1 packets (short data, bad optional data length)
  - Telegram anomalies (unknown RORG, wrong payload size, invalid sender,
    implausible repeater count)
  - Telegrams from unregistered devices and profile decode failures
  - Statistics and trends (packet rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid packets too.

The terminal UI also lists every device heard with its latest decoded values.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all packets (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	decoder, err := loadDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, "")
	if err != nil {
		return err
	}
	defer s.Close()

	proc := newProcessor(decoder)
	proc.countSkipped(s.comm.Skipped)
	if useTUI {
		return runTUIMode(s, proc)
	}
	return runTextMode(s, proc, ctx.Done())
}

// printValidationErrors prints telegram anomalies in highlighted format
func printValidationErrors(ev *event) {
	timestamp := ev.time.Format("15:04:05.000")
	t := ev.telegram

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s from %s\n", timestamp, t.RORG, t.SenderID)
	fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")

	for i, a := range ev.anomalies {
		switch a.Type {
		case erp1.AnomalyPayloadLength:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a.Message)
			if received, ok := a.Details["received"].(int); ok {
				if expected, ok := a.Details["expected"].(int); ok {
					fmt.Printf("    Payload: received=%d, expected=%d\n", received, expected)
				}
			}

		case erp1.AnomalyOptionalLength, erp1.AnomalyDecodeError:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a.Message)

		case erp1.AnomalyUnknownRORG, erp1.AnomalyInvalidSender, erp1.AnomalyRepeaterCount:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, a.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, a.Message)
		}
	}

	fmt.Printf("  Payload: % X  Status: 0x%02X\n", t.Payload, t.Status)
	fmt.Printf("  >>> TELEGRAM REJECTED <<<\n\n")
}

// readResults forwards communicator results to handle until the channel closes
func readResults(comm *gateway.Communicator, handle func(gateway.Result)) {
	for r := range comm.Receive() {
		handle(r)
	}
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(s *session, proc *processor) error {
	m := initialModel(s.connInfo, statsInterval, showAll, proc)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		readResults(s.comm, func(r gateway.Result) {
			p.Send(resultMsg(r))
		})
		p.Send(closedMsg{err: s.comm.Err()})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection with plain text output
func runTextMode(s *session, proc *processor, done <-chan struct{}) error {
	fmt.Printf("Enostat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All packets\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case r, ok := <-s.comm.Receive():
			if !ok {
				fmt.Println("Connection closed")
				fmt.Print(proc.summary())
				return s.comm.Err()
			}
			ev := proc.process(r.Packet, r.Err)
			switch {
			case len(ev.anomalies) > 0:
				printValidationErrors(ev)
			case ev.failed() || ev.eepErr != nil:
				fmt.Print(formatEvent(ev, true))
			case showAll:
				fmt.Print(formatEvent(ev, true))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(proc.summary())
			fmt.Println()

		case <-done:
			fmt.Println()
			fmt.Print(proc.summary())
			return nil
		}
	}
}
