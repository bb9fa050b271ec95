// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

var (
	packetTestTimeout int
	packetTestActive  bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid ESP3 packet",
	Long: `Wait for a valid ESP3 packet on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
ESP3 packet (both header and data CRC correct). Corrupted frames and noise
before the first sync byte are ignored.

With --active a CO_RD_VERSION command is sent first, so an idle gateway
answers immediately instead of waiting for radio traffic.

Exit codes:
  0 - Packet received before timeout
  1 - Timeout reached without receiving a valid packet
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a packet")
	packetTestCmd.Flags().BoolVar(&packetTestActive, "active", false, "Query the gateway version instead of waiting passively")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Enostat - Packet Test\n")
	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid ESP3 packet...\n\n")

	ctx, cancel := context.WithTimeout(ctx, time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	if packetTestActive {
		version, err := s.comm.ReadVersion(ctx)
		if err == nil {
			fmt.Printf("SUCCESS: Gateway answered CO_RD_VERSION\n")
			fmt.Printf("  App: %s  API: %s  Chip: 0x%08X\n",
				esp3.FormatVersion(version.AppVersion), esp3.FormatVersion(version.APIVersion), version.ChipID)
			s.Close()
			os.Exit(0)
		}
		if ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Command error: %v\n", err)
			s.Close()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "TIMEOUT: No response within %d seconds\n", packetTestTimeout)
		s.Close()
		os.Exit(1)
	}

	skipped := 0
	for {
		select {
		case r, ok := <-s.comm.Receive():
			if !ok {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", s.comm.Err())
				s.Close()
				os.Exit(2)
			}
			if r.Err != nil {
				skipped++
				continue
			}
			if skipped > 0 {
				fmt.Printf("(ignored %d malformed frames)\n", skipped)
			}
			fmt.Printf("SUCCESS: Received valid packet\n")
			fmt.Printf("  Type: %s (0x%02X)\n", r.Packet.Type(), uint8(r.Packet.Type()))
			fmt.Printf("  Data: %d bytes, Optional: %d bytes\n", len(r.Packet.Data()), len(r.Packet.OptionalData()))
			s.Close()
			os.Exit(0)

		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid packet received within %d seconds\n", packetTestTimeout)
			s.Close()
			os.Exit(1)
		}
	}
}
