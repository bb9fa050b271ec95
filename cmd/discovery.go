// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Thermoquad/enostat/pkg/esp3"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

var (
	discoveryTimeout int
	discoveryScan    bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover gateways and nearby EnOcean devices",
	Long: `Discover ESP3 gateways or the radio devices around one.

Modes:
  Radio (default): Listen on the configured connection for --timeout seconds
                   and list every sender heard, with signal strength and
                   whether a profile is configured for it.

  Scan (--scan):   Probe every serial port with CO_RD_VERSION and list the
                   ones that answer as ESP3 gateways. --port and --url are
                   ignored.

Examples:
  # Which devices are in range?
  enostat discovery --port /dev/ttyUSB0 --timeout 60

  # Which port is the USB stick on?
  enostat discovery --scan

Exit codes:
  0 - Discovery successful (at least one device or gateway found)
  1 - Discovery failed (nothing found)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 30, "Timeout in seconds (per port with --scan)")
	discoveryCmd.Flags().BoolVar(&discoveryScan, "scan", false, "Scan serial ports for gateways")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	if discoveryScan {
		return runPortScan()
	}

	decoder, err := loadDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Enostat - Device Discovery\n")
	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Listening for %d seconds...\n\n", discoveryTimeout)

	proc := newProcessor(decoder)
	timeout := time.After(time.Duration(discoveryTimeout) * time.Second)

listen:
	for {
		select {
		case <-ctx.Done():
			break listen
		case <-timeout:
			break listen
		case r, ok := <-s.comm.Receive():
			if !ok {
				fmt.Printf("READ FAILED: %v\n", s.comm.Err())
				os.Exit(2)
			}
			seen := proc.store.Len()
			ev := proc.process(r.Packet, r.Err)
			if ev.telegram != nil && proc.store.Len() > seen {
				fmt.Printf("Device found: %s (%s)\n", ev.telegram.SenderID, ev.telegram.RORG)
			}
			if ev.teachIn != nil {
				fmt.Printf("  teach-in announces %s\n", ev.teachIn.Profile)
			}
		}
	}

	states := proc.store.Snapshot()
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Devices found: %d\n", len(states))
	for _, st := range states {
		rssi := "   n/a"
		if st.RSSI != nil {
			rssi = fmt.Sprintf("%3d dBm", *st.RSSI)
		}
		fmt.Printf("  %s  %-4s %s  telegrams=%-4d %s\n",
			st.ID, st.RORG, rssi, st.Telegrams, profileLabel(st.Known, st.Profile.String()))
	}

	if len(states) == 0 {
		fmt.Printf("No devices heard. Check the gateway antenna and that devices are transmitting.\n")
		os.Exit(1)
	}
	return nil
}

// runPortScan probes each serial port for an ESP3 gateway
func runPortScan() error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot list serial ports: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Enostat - Gateway Scan\n")
	fmt.Printf("Probing %d port(s) at %d baud\n\n", len(ports), baudRate)

	ctx, stop := signalContext()
	defer stop()

	found := 0
	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		info, err := probePort(ctx, port, time.Duration(discoveryTimeout)*time.Second)
		if err != nil {
			logger.Debug("probe failed", zap.String("port", port), zap.Error(err))
			fmt.Printf("  %-20s -\n", port)
			continue
		}
		found++
		fmt.Printf("  %-20s %s v%s (chip 0x%08X)\n", port, info.Description, esp3.FormatVersion(info.AppVersion), info.ChipID)
	}

	fmt.Printf("\n--- Scan summary ---\n")
	fmt.Printf("Gateways found: %d\n", found)
	if found == 0 {
		os.Exit(1)
	}
	return nil
}

func probePort(ctx context.Context, port string, timeout time.Duration) (*esp3.VersionInfo, error) {
	conn, err := OpenSerialConnection(port, baudRate)
	if err != nil {
		return nil, err
	}
	comm := gateway.New(conn, gateway.WithLogger(logger.Named("probe")))
	defer comm.Close()

	go func() {
		for range comm.Receive() {
		}
	}()

	// Short per-port timeout keeps the scan bounded
	qctx, cancel := context.WithTimeout(ctx, min(timeout, 2*time.Second))
	defer cancel()
	return comm.ReadVersion(qctx)
}
