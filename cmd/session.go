// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Thermoquad/enostat/pkg/capture"
	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/gateway"
)

// session is an open gateway connection
type session struct {
	comm     *gateway.Communicator
	connInfo string
	capture  *os.File
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openSession connects to the gateway. When recordPath is set, all traffic
// is also written to a capture file.
func openSession(ctx context.Context, recordPath string, opts ...gateway.Option) (*session, error) {
	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return nil, err
	}

	s := &session{connInfo: connInfo}
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create capture file: %w", err)
		}
		w, err := capture.NewWriter(f, connInfo)
		if err != nil {
			f.Close()
			conn.Close()
			return nil, err
		}
		tap := capture.NewTap(conn, w)
		tap.OnError = func(err error) {
			logger.Warn("capture write failed", zap.Error(err))
		}
		conn = tap
		s.capture = f
		logger.Info("recording traffic",
			zap.String("file", recordPath),
			zap.Stringer("session", w.Header().Session))
	}

	s.comm = gateway.New(conn, append(gatewayOptions(), opts...)...)
	return s, nil
}

// Close stops the communicator and closes the capture file
func (s *session) Close() error {
	err := s.comm.Close()
	if s.capture != nil {
		if cerr := s.capture.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// gatewayOptions builds communicator options from the gateway config section
func gatewayOptions() []gateway.Option {
	return []gateway.Option{
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithQueueSize(viper.GetInt("gateway.queue_size")),
		gateway.WithSendLimit(rate.Limit(viper.GetFloat64("gateway.send_rate")), viper.GetInt("gateway.send_burst")),
	}
}

// loadDecoder builds the EEP decoder from the devices and profiles config
func loadDecoder() (*eep.Decoder, error) {
	cfg, err := eep.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	catalog := eep.DefaultCatalog()
	registry, err := cfg.Build(catalog)
	if err != nil {
		return nil, fmt.Errorf("invalid device configuration: %w", err)
	}
	logger.Debug("device registry loaded",
		zap.Int("devices", registry.Len()),
		zap.Int("profiles", len(catalog.Profiles())))
	return eep.NewDecoder(registry, catalog), nil
}
