// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

var (
	gatewayInfoTimeout time.Duration
	gatewayInfoReset   bool
)

var gatewayInfoCmd = &cobra.Command{
	Use:   "gateway_info",
	Short: "Show gateway firmware version and base ID",
	Long: `Query the gateway with CO_RD_VERSION and CO_RD_IDBASE and print the
application/API versions, chip ID, description and the base ID used as
sender address for outgoing telegrams.

With --reset the gateway is restarted (CO_WR_RESET) first.`,
	RunE: runGatewayInfo,
}

func init() {
	rootCmd.AddCommand(gatewayInfoCmd)
	gatewayInfoCmd.Flags().DurationVar(&gatewayInfoTimeout, "timeout", 2*time.Second, "Timeout per command")
	gatewayInfoCmd.Flags().BoolVar(&gatewayInfoReset, "reset", false, "Reset the gateway before querying")
}

func runGatewayInfo(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, "")
	if err != nil {
		return err
	}
	defer s.Close()

	// Nothing consumes received telegrams here
	go func() {
		for range s.comm.Receive() {
		}
	}()

	fmt.Printf("Enostat - Gateway Info\n")
	fmt.Printf("Connection: %s\n\n", s.connInfo)

	if gatewayInfoReset {
		cctx, cancel := context.WithTimeout(ctx, gatewayInfoTimeout)
		err := s.comm.Reset(cctx)
		cancel()
		if err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		fmt.Printf("Gateway reset\n")
		// The gateway needs a moment before it answers again
		time.Sleep(100 * time.Millisecond)
	}

	cctx, cancel := context.WithTimeout(ctx, gatewayInfoTimeout)
	version, err := s.comm.ReadVersion(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("CO_RD_VERSION failed: %w", err)
	}

	cctx, cancel = context.WithTimeout(ctx, gatewayInfoTimeout)
	baseID, err := s.comm.ReadBaseID(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("CO_RD_IDBASE failed: %w", err)
	}

	fmt.Printf("App version:  %s\n", esp3.FormatVersion(version.AppVersion))
	fmt.Printf("API version:  %s\n", esp3.FormatVersion(version.APIVersion))
	fmt.Printf("Chip ID:      0x%08X\n", version.ChipID)
	fmt.Printf("Chip version: 0x%08X\n", version.ChipVersion)
	fmt.Printf("Description:  %s\n", version.Description)
	fmt.Printf("Base ID:      0x%08X\n", baseID.ID)
	if baseID.RemainingWrites != nil {
		fmt.Printf("Base ID writes remaining: %d\n", *baseID.RemainingWrites)
	}
	return nil
}
