package net

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erinngo/server/internal/config"
	"github.com/erinngo/server/internal/metrics"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/erinngo/server/internal/violation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// flushTimeout bounds how long a closing session keeps writing frames that
// were queued before Close.
const flushTimeout = time.Second

// Conn is the byte stream a session runs on: a TCP connection or a
// WebSocket adapted by the gateway.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// PacketHandler consumes what a session reads. All calls for one session
// come from that session's reader goroutine, in arrival order.
type PacketHandler interface {
	HandlePacket(s *Session, p *packet.Packet)
	HandleMalformed(s *Session, err error)
	OnClose(s *Session)
}

// Session represents a single client connection. The reader goroutine
// decodes frames and dispatches them in-line; the writer goroutine drains
// OutQueue.
type Session struct {
	ID   uint64
	conn Conn

	state atomic.Int32 // packet.SessionState stored as int32

	OutQueue chan []byte

	IP      string
	Autoban *violation.Autoban

	account atomic.Pointer[string]
	dataMu  sync.Mutex
	data    any

	framer  *Framer
	handler PacketHandler
	limiter *rate.Limiter
	cfg     config.NetworkConfig
	metrics *metrics.Metrics

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool
	writing   atomic.Bool // writer goroutine owns closing conn

	log *zap.Logger
}

// SessionOptions carries what the server hands every new session.
type SessionOptions struct {
	Network   config.NetworkConfig
	RateLimit config.RateLimitConfig
	Autoban   config.AutobanConfig
	Bans      violation.BanStore
	Framer    *Framer
	Handler   PacketHandler
	Metrics   *metrics.Metrics
}

func NewSession(conn Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		conn:     conn,
		OutQueue: make(chan []byte, opts.Network.OutQueueSize),
		IP:       conn.RemoteAddr().String(),
		framer:   opts.Framer,
		handler:  opts.Handler,
		cfg:      opts.Network,
		metrics:  opts.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		log:      log.With(zap.Uint64("session", id)),
	}
	if opts.RateLimit.Enabled && opts.RateLimit.PacketsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit.PacketsPerSecond), opts.RateLimit.Burst)
	}
	s.Autoban = violation.NewAutoban(s, opts.Bans, opts.Autoban, s.log)
	s.state.Store(int32(packet.StateConnected))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Log() *zap.Logger {
	return s.log
}

// AccountName returns the account logged in on this connection, or "" before
// channel login.
func (s *Session) AccountName() string {
	if p := s.account.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *Session) SetAccountName(name string) {
	s.account.Store(&name)
}

// Data returns the value attached by the packet handlers.
func (s *Session) Data() any {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.data
}

func (s *Session) SetData(v any) {
	s.dataMu.Lock()
	s.data = v
	s.dataMu.Unlock()
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	s.writing.Store(true)
	go s.readLoop()
	go s.writeLoop()
}

// Send frames p and queues it for the writer. p is only read, so a packet
// built once may be sent to many sessions.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) Send(p *packet.Packet) {
	if s.closed.Load() {
		return
	}
	s.log.Debug("TX", zap.String("op", fmt.Sprintf("0x%04X", p.Op)), zap.Int("size", p.GetSize()))
	s.SendFrame(s.framer.Encode(p))
}

// SendFrame queues an already encoded frame.
func (s *Session) SendFrame(frame []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- frame:
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
	}
}

// Close shuts the session down. Frames queued before Close are still
// written, for at most flushTimeout, before the connection closes. Safe to
// call from any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		s.cancel()
		// wake the reader; the writer closes conn after flushing
		s.conn.SetReadDeadline(time.Now())
		if !s.writing.Load() {
			s.conn.Close()
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames, parses them and hands them to the handler in
// arrival order. It owns the connection's logical flow: the next frame is
// not read until the handler returns.
func (s *Session) readLoop() {
	defer func() {
		s.Close()
		s.handler.OnClose(s)
	}()

	for {
		if s.cfg.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		raw, err := s.framer.ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		s.metrics.FramesIn.Inc()

		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Warn("封包速率超限，斷開連線")
			return
		}

		p, err := packet.Parse(raw, 0)
		if err != nil {
			s.handler.HandleMalformed(s, err)
		} else {
			s.handler.HandlePacket(s, p)
		}
		if s.closed.Load() {
			return
		}
	}
}

// writeLoop writes queued frames until the session closes, then flushes
// what is left and closes the connection.
func (s *Session) writeLoop() {
	defer func() {
		s.Close()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.OutQueue:
			if !s.writeOneFrame(frame, time.Time{}) {
				return
			}
		case <-s.ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *Session) flush() {
	deadline := time.Now().Add(flushTimeout)
	for {
		select {
		case frame := <-s.OutQueue:
			if !s.writeOneFrame(frame, deadline) {
				return
			}
		default:
			return
		}
	}
}

// writeOneFrame writes frame with the configured write timeout, or with
// deadline when it is set.
func (s *Session) writeOneFrame(frame []byte, deadline time.Time) bool {
	if deadline.IsZero() && s.cfg.WriteTimeout > 0 {
		deadline = time.Now().Add(s.cfg.WriteTimeout)
	}
	if !deadline.IsZero() {
		s.conn.SetWriteDeadline(deadline)
	}
	if _, err := s.conn.Write(frame); err != nil {
		s.log.Debug("寫入錯誤", zap.Error(err))
		return false
	}
	s.metrics.FramesOut.Inc()
	return true
}
