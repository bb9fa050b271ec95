// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

var (
	listenLearn   bool
	listenVerbose bool
	listenRecord  string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode device telegrams using the configured profiles",
	Long: `Listen for radio telegrams and decode them with the EEP profile registered
for each sender in the config file.

Telegrams from unregistered devices are reported as unknown and are not
decoded. Teach-in telegrams (4BS with EEP, UTE) are shown with the profile they
announce; with --learn those devices are added to the registry for the rest
of the session and UTE queries are answered with "accepted".`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().BoolVar(&listenLearn, "learn", false, "Register devices that send teach-in telegrams")
	listenCmd.Flags().BoolVarP(&listenVerbose, "verbose", "v", false, "Also show non-radio packets and undecoded telegrams")
	listenCmd.Flags().StringVar(&listenRecord, "record", "", "Record all traffic to a capture file")
}

func runListen(cmd *cobra.Command, args []string) error {
	decoder, err := loadDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, listenRecord)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Enostat - Listen\n")
	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Registered devices: %d\n", decoder.Registry().Len())

	// UTE responses are sent from the gateway base ID
	var baseID erp1.DeviceID
	if listenLearn {
		qctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		id, err := s.comm.ReadBaseID(qctx)
		cancel()
		if err != nil {
			logger.Warn("could not read base ID, UTE queries will not be answered", zap.Error(err))
		} else {
			baseID = erp1.DeviceID(id.ID)
			fmt.Printf("Learn mode: on (base ID %s)\n", baseID)
		}
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	proc := newProcessor(decoder)
	proc.learn = listenLearn
	proc.countSkipped(s.comm.Skipped)

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(proc.summary())
			return nil
		case r, ok := <-s.comm.Receive():
			if !ok {
				fmt.Println("Connection closed")
				return s.comm.Err()
			}
			ev := proc.process(r.Packet, r.Err)
			fmt.Print(formatEvent(ev, listenVerbose))

			if reply := proc.uteReply(ev, baseID); reply != nil {
				if err := s.comm.Send(ctx, reply.Packet()); err != nil {
					logger.Warn("UTE response failed", zap.Error(err))
				}
			}
		}
	}
}
