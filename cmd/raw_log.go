// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

var rawLogRecord string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw packet log in human-readable format",
	Long: `Continuously decode and display ESP3 packets as they arrive.

Each packet is shown with timestamp, packet type, header fields and a hex dump
of its data. RADIO_ERP1 packets are additionally split into RORG, payload,
sender ID, status and the optional sub-telegram fields (destination, RSSI,
security level). No device profiles are applied.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Record all traffic to a capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, rawLogRecord)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Enostat - Raw Packet Log\n")
	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-s.comm.Receive():
			if !ok {
				fmt.Println("Connection closed")
				return s.comm.Err()
			}
			if r.Err != nil {
				fmt.Printf("[ERROR] %v\n", r.Err)
				continue
			}
			fmt.Print(esp3.FormatPacket(r.Packet))
			if r.Packet.Type() == esp3.PacketTypeRadioERP1 {
				if t, err := erp1.Decode(r.Packet); err == nil {
					fmt.Print(erp1.FormatTelegram(t))
				} else {
					fmt.Printf("  [ERP1 ERROR] %v\n", err)
				}
			}
		}
	}
}
