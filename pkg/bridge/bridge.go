// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge exposes device state and telegram sending over HTTP.
package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Thermoquad/enostat/pkg/devices"
	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/erp1"
	"github.com/Thermoquad/enostat/pkg/esp3"
)

// Sender transmits packets to the gateway. *gateway.Communicator implements it.
type Sender interface {
	Send(ctx context.Context, p *esp3.Packet) error
}

// Config holds the HTTP listener settings
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// APIKeys protect the POST endpoints. Empty disables authentication.
	APIKeys []string
}

// Server serves the bridge API
type Server struct {
	cfg      Config
	srv      *http.Server
	store    *devices.Store
	sender   Sender
	senderID erp1.DeviceID
	stats    func() esp3.Statistics
	metrics  http.Handler
	ready    func() bool
	logger   *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and error logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves h on /metrics
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithStats serves a statistics snapshot on /api/stats
func WithStats(fn func() esp3.Statistics) Option {
	return func(s *Server) { s.stats = fn }
}

// WithReady sets the readiness check for /readyz
func WithReady(fn func() bool) Option {
	return func(s *Server) { s.ready = fn }
}

// New creates the server. Telegrams are sent with senderID as sender address.
func New(cfg Config, store *devices.Store, sender Sender, senderID erp1.DeviceID, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		sender:   sender,
		senderID: senderID,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("bridge listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if s.ready == nil || s.ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api")
	api.GET("/devices", s.listDevices)
	api.GET("/devices/:id", s.getDevice)
	api.GET("/stats", s.getStats)

	send := api.Group("", apiKeyAuth(s.cfg.APIKeys, s.logger))
	send.POST("/devices/:id/actuator", s.actuator)
	send.POST("/rocker", s.rocker)
	return r
}

func (s *Server) listDevices(c *gin.Context) {
	states := s.store.Snapshot()
	list := make([]deviceView, 0, len(states))
	for i := range states {
		list = append(list, newDeviceView(&states[i]))
	}
	c.JSON(http.StatusOK, gin.H{"devices": list})
}

func (s *Server) getDevice(c *gin.Context) {
	id, err := erp1.ParseDeviceID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := s.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, newDeviceView(&st))
}

func (s *Server) getStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statistics not available"})
		return
	}
	st := s.stats()
	st.CalculateRates()
	c.JSON(http.StatusOK, newStatsView(&st))
}

type actuatorRequest struct {
	Action  string `json:"action" binding:"required"`
	Channel uint8  `json:"channel"`
}

func (s *Server) actuator(c *gin.Context) {
	dest, err := erp1.ParseDeviceID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req actuatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tel, err := eep.NewActuatorCommand(req.Action, s.senderID, dest, req.Channel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.sender.Send(c.Request.Context(), tel.Packet()); err != nil {
		s.sendFailed(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"sender":  s.senderID.String(),
		"dest":    dest.String(),
		"payload": esp3.FormatHex(tel.Payload),
	})
}

type rockerRequest struct {
	Button string `json:"button" binding:"required"`
	// Sender overrides the bridge sender ID
	Sender string `json:"sender"`
}

func (s *Server) rocker(c *gin.Context) {
	var req rockerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	button, err := eep.ParseRockerButton(req.Button)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender := s.senderID
	if req.Sender != "" {
		if sender, err = erp1.ParseDeviceID(req.Sender); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	if err := s.sender.Send(ctx, eep.NewRockerPress(sender, button).Packet()); err != nil {
		s.sendFailed(c, err)
		return
	}
	if err := s.sender.Send(ctx, eep.NewRockerRelease(sender).Packet()); err != nil {
		s.sendFailed(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"sender": sender.String(), "button": req.Button})
}

func (s *Server) sendFailed(c *gin.Context, err error) {
	s.logger.Warn("send failed", zap.String("path", c.FullPath()), zap.Error(err))
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
