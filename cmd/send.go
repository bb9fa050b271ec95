// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

var (
	sendSender  string
	sendDest    string
	sendChannel uint8
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send telegrams and commands through the gateway",
	Long: `Send radio telegrams or raw ESP3 packets through the gateway.

The sender ID defaults to the gateway base ID (read with CO_RD_IDBASE).
Actuators must have been taught in to that sender before they react.`,
}

var sendRockerCmd = &cobra.Command{
	Use:   "rocker <AI|A0|BI|B0>",
	Short: "Emulate a rocker switch press and release (F6-02)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSendRocker,
}

var sendActuatorCmd = &cobra.Command{
	Use:   "actuator <on|off|0-100|status|energy|power>",
	Short: "Control a D2-01 electronic switch",
	Args:  cobra.ExactArgs(1),
	RunE:  runSendActuator,
}

var sendRawCmd = &cobra.Command{
	Use:   "raw <type> [data-hex] [optional-hex]",
	Short: "Send an arbitrary ESP3 packet and print the response",
	Long: `Send an arbitrary ESP3 packet. The type is a packet type code (e.g. 0x05
for COMMON_COMMAND); data and optional data are hex strings.

For COMMON_COMMAND packets the gateway RESPONSE is printed.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runSendRaw,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.AddCommand(sendRockerCmd, sendActuatorCmd, sendRawCmd)

	sendCmd.PersistentFlags().StringVar(&sendSender, "sender", "", "Sender ID (default: gateway base ID)")
	sendCmd.PersistentFlags().DurationVar(&sendTimeout, "timeout", 2*time.Second, "Timeout for gateway responses")
	sendActuatorCmd.Flags().StringVar(&sendDest, "dest", "", "Actuator device ID (required)")
	sendActuatorCmd.Flags().Uint8Var(&sendChannel, "channel", 0, "Output channel (0x1E for all)")
	_ = sendActuatorCmd.MarkFlagRequired("dest")
}

// withSendSession runs fn with an open session and the resolved sender ID
func withSendSession(fn func(ctx context.Context, s *session, sender erp1.DeviceID) error) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, "")
	if err != nil {
		return err
	}
	defer s.Close()

	go func() {
		for range s.comm.Receive() {
		}
	}()

	var sender erp1.DeviceID
	if sendSender != "" {
		sender, err = erp1.ParseDeviceID(sendSender)
		if err != nil {
			return err
		}
	} else {
		cctx, cancel := context.WithTimeout(ctx, sendTimeout)
		baseID, err := s.comm.ReadBaseID(cctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to read base ID (use --sender): %w", err)
		}
		sender = erp1.DeviceID(baseID.ID)
	}

	return fn(ctx, s, sender)
}

func runSendRocker(cmd *cobra.Command, args []string) error {
	button, err := eep.ParseRockerButton(args[0])
	if err != nil {
		return err
	}

	return withSendSession(func(ctx context.Context, s *session, sender erp1.DeviceID) error {
		if err := s.comm.Send(ctx, eep.NewRockerPress(sender, button).Packet()); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
		if err := s.comm.Send(ctx, eep.NewRockerRelease(sender).Packet()); err != nil {
			return err
		}
		fmt.Printf("Sent rocker %s press/release from %s\n", strings.ToUpper(args[0]), sender)
		return nil
	})
}

func runSendActuator(cmd *cobra.Command, args []string) error {
	dest, err := erp1.ParseDeviceID(sendDest)
	if err != nil {
		return err
	}

	return withSendSession(func(ctx context.Context, s *session, sender erp1.DeviceID) error {
		tel, err := eep.NewActuatorCommand(args[0], sender, dest, sendChannel)
		if err != nil {
			return err
		}
		if err := s.comm.Send(ctx, tel.Packet()); err != nil {
			return err
		}
		fmt.Printf("Sent %s to %s\n", erp1.FormatTelegram(tel), dest)
		return nil
	})
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	return hex.DecodeString(s)
}

func runSendRaw(cmd *cobra.Command, args []string) error {
	var packetType uint8
	if _, err := fmt.Sscanf(args[0], "%v", &packetType); err != nil {
		return fmt.Errorf("invalid packet type %q", args[0])
	}
	var data, optional []byte
	var err error
	if len(args) > 1 {
		if data, err = parseHex(args[1]); err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
	}
	if len(args) > 2 {
		if optional, err = parseHex(args[2]); err != nil {
			return fmt.Errorf("invalid optional data: %w", err)
		}
	}

	p := esp3.NewPacket(esp3.PacketType(packetType), data, optional)
	if err := p.Validate(); err != nil {
		return err
	}
	fmt.Print(esp3.FormatPacket(p))

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, "")
	if err != nil {
		return err
	}
	defer s.Close()

	if p.Type() != esp3.PacketTypeCommonCmd {
		return s.comm.Send(ctx, p)
	}

	cctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	resp, err := s.comm.Command(cctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("Response: %s", resp.Code)
	if len(resp.Data) > 0 {
		fmt.Printf(" data=%s", esp3.FormatHex(resp.Data))
	}
	if len(resp.OptionalData) > 0 {
		fmt.Printf(" optional=%s", esp3.FormatHex(resp.OptionalData))
	}
	fmt.Println()
	return nil
}
