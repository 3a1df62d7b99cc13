package net

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and WebSocket upgrades and runs a Session
// for each.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	opts     SessionOptions
	log      *zap.Logger
	closeCh  chan struct{}

	mu       sync.Mutex
	sessions map[uint64]*Session
}

func NewServer(bindAddr string, opts SessionOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return newServer(ln, opts, log), nil
}

func newServer(ln net.Listener, opts SessionOptions, log *zap.Logger) *Server {
	srv := &Server{
		listener: ln,
		log:      log,
		closeCh:  make(chan struct{}),
		sessions: make(map[uint64]*Session),
	}
	// wrap the handler so the server sees every close
	opts.Handler = &trackingHandler{PacketHandler: opts.Handler, srv: srv}
	srv.opts = opts
	return srv
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}
		s.Attach(conn)
	}
}

// Attach starts a session on conn.
func (s *Server) Attach(conn Conn) *Session {
	id := s.nextID.Add(1)
	sess := NewSession(conn, id, s.opts, s.log)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.opts.Metrics.Sessions.Inc()

	s.log.Info(fmt.Sprintf("玩家連線  session=%d  ip=%s", id, sess.IP))
	sess.Start()
	return sess
}

// Count returns the number of open sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) forget(sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	if ok {
		s.opts.Metrics.Sessions.Dec()
		s.log.Info(fmt.Sprintf("玩家離線  session=%d  ip=%s", sess.ID, sess.IP))
	}
}

// Shutdown stops accepting new connections and closes every session.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()

	s.mu.Lock()
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()
	for _, sess := range open {
		sess.Close()
	}
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

type trackingHandler struct {
	PacketHandler
	srv *Server
}

func (h *trackingHandler) OnClose(s *Session) {
	h.PacketHandler.OnClose(s)
	h.srv.forget(s)
}
