// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gateway connects the ESP3 codec to a byte-stream transport.
//
// A Communicator owns one read loop that feeds the framing decoder and
// publishes every decoded packet or frame error on a bounded channel, and one
// write loop that serializes outbound packets. The two directions never wait
// on each other. Closing the Communicator closes the transport, which is what
// unblocks a pending read or write.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

// ErrClosed is returned by operations on a closed Communicator
var ErrClosed = errors.New("gateway: communicator closed")

const (
	// DefaultQueueSize is the capacity of the receive channel
	DefaultQueueSize = 64

	readBufferSize = 1024

	// ESP3 allows 500 ms; doubled for bridged transports
	responseTimeout = time.Second
)

// Result is one item of the receive sequence: a packet or a frame error
type Result struct {
	Packet *esp3.Packet
	Err    error
}

type writeRequest struct {
	frame      []byte
	packetType esp3.PacketType
	pending    *pendingResponse
	done       chan error
}

// pendingResponse is a written packet the gateway has not answered yet.
// The gateway answers in order, so each RESPONSE belongs to the oldest entry.
type pendingResponse struct {
	waiter   chan *esp3.Packet // nil unless a Command is still waiting
	deadline time.Time
}

// Option configures a Communicator
type Option func(*Communicator)

// WithLogger sets the logger (default: no-op)
func WithLogger(logger *zap.Logger) Option {
	return func(c *Communicator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables Prometheus counters
func WithMetrics(m *Metrics) Option {
	return func(c *Communicator) {
		c.metrics = m
	}
}

// WithSendLimit limits outbound packets to r per second with the given burst.
// A zero or negative rate disables limiting.
func WithSendLimit(r rate.Limit, burst int) Option {
	return func(c *Communicator) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithQueueSize sets the capacity of the receive channel.
// When the queue is full the read loop waits for the consumer.
func WithQueueSize(n int) Option {
	return func(c *Communicator) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// Communicator is a duplex packet interface over a transport
type Communicator struct {
	conn      io.ReadWriteCloser
	logger    *zap.Logger
	metrics   *Metrics
	limiter   *rate.Limiter
	queueSize int

	decoder  *esp3.Decoder
	results  chan Result
	writes   chan writeRequest
	done     chan struct{}
	readDone chan struct{}

	// one command in flight at a time; the read loop hands it the next RESPONSE
	commandSlot chan struct{}

	mu      sync.Mutex
	pending []*pendingResponse
	readErr error

	skipped atomic.Uint64

	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// New starts the read and write loops over conn
func New(conn io.ReadWriteCloser, opts ...Option) *Communicator {
	c := &Communicator{
		conn:      conn,
		logger:    zap.NewNop(),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.decoder = esp3.NewDecoder()
	c.results = make(chan Result, c.queueSize)
	c.writes = make(chan writeRequest)
	c.done = make(chan struct{})
	c.readDone = make(chan struct{})
	c.commandSlot = make(chan struct{}, 1)

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	return c
}

// Receive returns the channel of decoded packets and frame errors.
// The channel is closed when the read loop stops; see Err for the cause.
// RESPONSE packets claimed by Command are not published here.
func (c *Communicator) Receive() <-chan Result {
	return c.results
}

// Err returns the transport error that stopped the read loop, or nil
func (c *Communicator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Skipped returns the number of received bytes discarded while searching
// for sync
func (c *Communicator) Skipped() uint64 {
	return c.skipped.Load()
}

// Send encodes p and writes it to the transport. It waits for the send rate
// limiter and for the write to complete, whichever ctx allows.
// The gateway's RESPONSE to p is published on Receive.
func (c *Communicator) Send(ctx context.Context, p *esp3.Packet) error {
	return c.send(ctx, p, &pendingResponse{})
}

func (c *Communicator) send(ctx context.Context, p *esp3.Packet, pending *pendingResponse) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req := writeRequest{
		frame:      esp3.EncodePacket(p),
		packetType: p.Type(),
		pending:    pending,
		done:       make(chan error, 1),
	}

	select {
	case c.writes <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Command sends p and waits for the gateway's RESPONSE to it. Answers to
// earlier packets, including commands that timed out, go to Receive.
func (c *Communicator) Command(ctx context.Context, p *esp3.Packet) (*esp3.Response, error) {
	select {
	case c.commandSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
	defer func() { <-c.commandSlot }()

	waiter := make(chan *esp3.Packet, 1)
	pending := &pendingResponse{waiter: waiter}
	defer func() {
		// a late answer is published instead
		c.mu.Lock()
		pending.waiter = nil
		c.mu.Unlock()
	}()

	start := time.Now()
	if err := c.send(ctx, p, pending); err != nil {
		return nil, err
	}

	select {
	case packet := <-waiter:
		resp, err := esp3.DecodeResponse(packet)
		if err != nil {
			return nil, err
		}
		if c.metrics != nil {
			c.metrics.CommandDuration.Observe(time.Since(start).Seconds())
			c.metrics.CommandsTotal.WithLabelValues(resp.Code.String()).Inc()
		}
		c.logger.Debug("command response",
			zap.Stringer("code", resp.Code),
			zap.Duration("elapsed", time.Since(start)))
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.readDone:
		if err := c.Err(); err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}
}

// ReadVersion queries the gateway firmware version (CO_RD_VERSION)
func (c *Communicator) ReadVersion(ctx context.Context) (*esp3.VersionInfo, error) {
	resp, err := c.checkedCommand(ctx, esp3.NewReadVersion())
	if err != nil {
		return nil, err
	}
	return esp3.ParseVersionInfo(resp)
}

// ReadBaseID queries the gateway base ID (CO_RD_IDBASE)
func (c *Communicator) ReadBaseID(ctx context.Context) (*esp3.BaseID, error) {
	resp, err := c.checkedCommand(ctx, esp3.NewReadIDBase())
	if err != nil {
		return nil, err
	}
	return esp3.ParseBaseID(resp)
}

// Reset restarts the gateway (CO_WR_RESET)
func (c *Communicator) Reset(ctx context.Context) error {
	_, err := c.checkedCommand(ctx, esp3.NewReset())
	return err
}

func (c *Communicator) checkedCommand(ctx context.Context, p *esp3.Packet) (*esp3.Response, error) {
	resp, err := c.Command(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close stops both loops and closes the transport. Packets already queued
// remain readable from Receive.
func (c *Communicator) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.conn.Close()
		c.wg.Wait()
	})
	return c.closeErr
}

func (c *Communicator) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Communicator) readLoop() {
	defer c.wg.Done()
	defer close(c.results)
	defer close(c.readDone)

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if c.metrics != nil {
				c.metrics.BytesReceived.Add(float64(n))
			}
			for p, ferr := range c.decoder.Feed(buf[:n]) {
				c.skipped.Store(c.decoder.Skipped())
				if !c.dispatch(p, ferr) {
					return
				}
			}
			c.skipped.Store(c.decoder.Skipped())
		}
		if err != nil {
			ferr := c.decoder.Flush()
			c.skipped.Store(c.decoder.Skipped())
			if ferr != nil {
				c.dispatch(nil, ferr)
			}
			if c.isClosed() || errors.Is(err, io.EOF) {
				c.logger.Debug("read loop stopped", zap.Error(err))
				return
			}
			c.logger.Warn("transport read failed", zap.Error(err))
			c.mu.Lock()
			c.readErr = fmt.Errorf("gateway: read: %w", err)
			c.mu.Unlock()
			return
		}
	}
}

// dispatch routes one decoder result, reporting false once the
// Communicator is closing
func (c *Communicator) dispatch(p *esp3.Packet, err error) bool {
	if c.metrics != nil {
		c.metrics.FramesTotal.WithLabelValues(frameResult(p, err)).Inc()
	}

	if err != nil {
		c.logger.Debug("frame error", zap.Error(err))
		return c.publish(Result{Err: err})
	}

	if p.Type() == esp3.PacketTypeResponse {
		if waiter := c.claimResponse(); waiter != nil {
			waiter <- p
			return !c.isClosed()
		}
	}

	c.logger.Debug("packet received",
		zap.Stringer("packet_type", p.Type()),
		zap.Int("data_len", len(p.Data())),
		zap.Int("optional_len", len(p.OptionalData())))
	return c.publish(Result{Packet: p})
}

// claimResponse pops the oldest unanswered packet and returns its Command
// waiter, or nil when no Command is waiting for this RESPONSE.
// Entries past their deadline are dropped while a newer one is queued,
// so a gateway that skips an answer cannot shift every later one.
func (c *Communicator) claimResponse() chan *esp3.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for len(c.pending) > 1 && now.After(c.pending[0].deadline) {
		c.pending = c.pending[1:]
	}
	if len(c.pending) == 0 {
		return nil
	}
	next := c.pending[0]
	c.pending = c.pending[1:]
	return next.waiter
}

// expectResponse queues pr before its frame is written, dropping expired
// entries since pr is newer than all of them
func (c *Communicator) expectResponse(pr *pendingResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.pending = slices.DeleteFunc(c.pending, func(e *pendingResponse) bool {
		return now.After(e.deadline)
	})
	pr.deadline = now.Add(responseTimeout)
	c.pending = append(c.pending, pr)
}

func (c *Communicator) forgetResponse(pr *pendingResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.pending, pr); i >= 0 {
		c.pending = slices.Delete(c.pending, i, i+1)
	}
}

func (c *Communicator) publish(r Result) bool {
	select {
	case c.results <- r:
		return true
	case <-c.done:
		// keep what still fits in the queue
		select {
		case c.results <- r:
		default:
			c.logger.Warn("receive queue full at close, dropping result")
		}
		return false
	}
}

func (c *Communicator) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case req := <-c.writes:
			// the host does not get answers to its own RESPONSE packets
			expects := req.pending != nil && req.packetType != esp3.PacketTypeResponse
			if expects {
				c.expectResponse(req.pending)
			}
			_, err := c.conn.Write(req.frame)
			if err != nil {
				if expects {
					c.forgetResponse(req.pending)
				}
				c.logger.Warn("transport write failed", zap.Error(err))
				err = fmt.Errorf("gateway: write: %w", err)
			} else {
				if c.metrics != nil {
					c.metrics.BytesSent.Add(float64(len(req.frame)))
					c.metrics.PacketsSent.WithLabelValues(req.packetType.String()).Inc()
				}
				c.logger.Debug("packet sent",
					zap.Stringer("packet_type", req.packetType),
					zap.Int("bytes", len(req.frame)))
			}
			req.done <- err
		case <-c.done:
			return
		}
	}
}
