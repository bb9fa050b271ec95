// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

// NewRegistry creates a Prometheus registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the /metrics HTTP handler for reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics holds the communicator counters
type Metrics struct {
	FramesTotal     *prometheus.CounterVec // labels: result
	PacketsSent     *prometheus.CounterVec // labels: type
	CommandsTotal   *prometheus.CounterVec // labels: code
	BytesReceived   prometheus.Counter
	BytesSent       prometheus.Counter
	CommandDuration prometheus.Histogram
}

// NewMetrics registers and returns the communicator metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esp3_frames_received_total",
			Help: "ESP3 frames received by decode result.",
		}, []string{"result"}),
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esp3_packets_sent_total",
			Help: "ESP3 packets written to the gateway by packet type.",
		}, []string{"type"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esp3_commands_total",
			Help: "Gateway commands by response code.",
		}, []string{"code"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esp3_bytes_received_total",
			Help: "Total bytes read from the transport.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esp3_bytes_sent_total",
			Help: "Total bytes written to the transport.",
		}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "esp3_command_duration_seconds",
			Help:    "Time from sending a command to receiving its response.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
	reg.MustRegister(m.FramesTotal, m.PacketsSent, m.CommandsTotal, m.BytesReceived, m.BytesSent, m.CommandDuration)
	return m
}

// frameResult is the "result" label for a decoded frame
func frameResult(p *esp3.Packet, err error) string {
	if err == nil {
		if p.Supported() {
			return "ok"
		}
		return "unsupported"
	}

	var fe *esp3.FrameError
	if !errors.As(err, &fe) {
		return "error"
	}
	switch fe.Kind {
	case esp3.HeaderCRCMismatch:
		return "header_crc"
	case esp3.DataCRCMismatch:
		return "data_crc"
	case esp3.TruncatedFrame:
		return "truncated"
	default:
		return "sync"
	}
}
