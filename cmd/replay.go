// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/capture"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

var (
	replayDirection string
	replayVerbose   bool
	replayLearn     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a recorded capture file",
	Long: `Replay a capture file written with --record through the same decoding
pipeline as listen. Received traffic is replayed by default; use
--direction tx to inspect what was sent to the gateway.

No gateway connection is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayDirection, "direction", "rx", "Traffic to replay (rx or tx)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Show every packet")
	replayCmd.Flags().BoolVar(&replayLearn, "learn", false, "Register devices from teach-in telegrams")
}

func parseDirection(s string) (capture.Direction, error) {
	switch strings.ToLower(s) {
	case "rx", "received":
		return capture.Received, nil
	case "tx", "sent":
		return capture.Sent, nil
	}
	return 0, fmt.Errorf("unknown direction %q (use rx or tx)", s)
}

func runReplay(cmd *cobra.Command, args []string) error {
	dir, err := parseDirection(replayDirection)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	decoder, err := loadDecoder()
	if err != nil {
		return err
	}
	proc := newProcessor(decoder)
	proc.learn = replayLearn
	framer := esp3.NewDecoder()
	proc.countSkipped(framer.Skipped)

	h := r.Header()
	fmt.Printf("Enostat - Replay\n")
	fmt.Printf("Capture: %s (session %s)\n", args[0], h.Session)
	fmt.Printf("Source:  %s\n", h.Source)
	fmt.Printf("Started: %s\n\n", h.Started.Format("2006-01-02 15:04:05"))

	for packet, frameErr := range capture.Replay(r, framer, dir) {
		ev := proc.process(packet, frameErr)
		fmt.Print(formatEvent(ev, replayVerbose))
	}

	fmt.Printf("\n%s", proc.summary())
	if n := proc.store.Len(); n > 0 {
		fmt.Printf("\nDevices seen: %d\n", n)
		for _, st := range proc.store.Snapshot() {
			fmt.Printf("  %s  %-9s telegrams=%d errors=%d\n", st.ID, profileLabel(st.Known, st.Profile.String()), st.Telegrams, st.Errors)
		}
	}
	return nil
}

func profileLabel(known bool, profile string) string {
	if !known {
		return "unknown"
	}
	return profile
}
