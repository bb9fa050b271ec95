// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Thermoquad/enostat/pkg/bridge"
	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve device state and control over HTTP",
	Long: `Run a long-lived bridge between the gateway and HTTP clients.

Received telegrams are decoded continuously and the latest state of every
device is served as JSON. Actuators and rocker switches can be driven with
POST requests; telegrams are sent from the gateway base ID.

Endpoints:
  GET  /healthz, /readyz, /metrics
  GET  /api/devices, /api/devices/:id, /api/stats
  POST /api/devices/:id/actuator   {"action": "on|off|0-100|status|energy|power", "channel": 0}
  POST /api/rocker                 {"button": "AI|A0|BI|B0", "sender": "optional"}`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	flags := bridgeCmd.Flags()
	flags.String("listen", ":8080", "HTTP listen address")
	flags.Bool("learn", false, "Register devices that send teach-in telegrams")
	flags.String("record", "", "Record all traffic to a capture file")
	_ = viper.BindPFlag("bridge.addr", flags.Lookup("listen"))
	_ = viper.BindPFlag("bridge.learn", flags.Lookup("learn"))
	_ = viper.BindPFlag("bridge.record", flags.Lookup("record"))

	viper.SetDefault("bridge.read_timeout", 10*time.Second)
	viper.SetDefault("bridge.write_timeout", 10*time.Second)
}

// lockedProcessor serializes the receive loop against HTTP stats reads
type lockedProcessor struct {
	mu   sync.Mutex
	proc *processor
}

func (l *lockedProcessor) process(r gateway.Result) *event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.proc.process(r.Packet, r.Err)
}

func (l *lockedProcessor) stats() esp3.Statistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proc.syncSkipped()
	return *l.proc.stats
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg := bridge.Config{
		Addr:         viper.GetString("bridge.addr"),
		ReadTimeout:  viper.GetDuration("bridge.read_timeout"),
		WriteTimeout: viper.GetDuration("bridge.write_timeout"),
		APIKeys:      viper.GetStringSlice("bridge.api_keys"),
	}

	decoder, err := loadDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	reg := gateway.NewRegistry()
	metrics := gateway.NewMetrics(reg)

	s, err := openSession(ctx, viper.GetString("bridge.record"), gateway.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer s.Close()

	qctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	id, err := s.comm.ReadBaseID(qctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to read gateway base ID: %w", err)
	}
	baseID := erp1.DeviceID(id.ID)

	proc := newProcessor(decoder)
	proc.learn = viper.GetBool("bridge.learn")
	proc.countSkipped(s.comm.Skipped)
	locked := &lockedProcessor{proc: proc}

	gin.SetMode(gin.ReleaseMode)
	srv := bridge.New(cfg, proc.store, s.comm, baseID,
		bridge.WithLogger(logger.Named("bridge")),
		bridge.WithMetrics(gateway.Handler(reg)),
		bridge.WithStats(locked.stats),
		bridge.WithReady(func() bool { return s.comm.Err() == nil }),
	)

	logger.Info("bridge started",
		zap.String("connection", s.connInfo),
		zap.Stringer("base_id", baseID),
		zap.Int("devices", decoder.Registry().Len()),
		zap.Bool("learn", proc.learn))

	srvCtx, cancelSrv := context.WithCancel(ctx)
	defer cancelSrv()
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Run(srvCtx)
	}()

	for {
		select {
		case err := <-srvErr:
			return err
		case r, ok := <-s.comm.Receive():
			if !ok {
				cancelSrv()
				<-srvErr
				if err := s.comm.Err(); err != nil {
					return err
				}
				return errors.New("gateway connection closed")
			}
			ev := locked.process(r)
			logEvent(ev)
			if reply := proc.uteReply(ev, baseID); reply != nil {
				if err := s.comm.Send(ctx, reply.Packet()); err != nil {
					logger.Warn("UTE response failed", zap.Error(err))
				}
			}
		}
	}
}

// logEvent reports an event in structured form
func logEvent(ev *event) {
	switch {
	case ev.frameErr != nil:
		logger.Warn("frame error", zap.Error(ev.frameErr))
	case ev.telegramErr != nil:
		logger.Warn("telegram error", zap.Error(ev.telegramErr))
	case ev.teachIn != nil:
		logger.Info("teach-in",
			zap.Stringer("device", ev.teachIn.Sender),
			zap.Stringer("eep", ev.teachIn.Profile),
			zap.Bool("ute", ev.teachIn.UTE),
			zap.Bool("learned", ev.learned))
	case ev.result != nil:
		fields := []zap.Field{zap.Stringer("device", ev.telegram.SenderID), zap.Stringer("eep", ev.result.Profile.ID)}
		for _, f := range ev.result.Fields {
			fields = append(fields, zap.Stringer(f.Name, ev.result.Values[f.Name]))
		}
		logger.Debug("telegram", fields...)
	case ev.eepErr != nil:
		logger.Debug("telegram not decoded", zap.Stringer("device", ev.telegram.SenderID), zap.Error(ev.eepErr))
	}
	for _, a := range ev.anomalies {
		logger.Info("anomaly", zap.String("message", a.Message))
	}
}
